package profit

import (
	"math"
	"time"

	"invest-service/internal/model"
)

const (
	ROITypeHourly  = "hourly"
	ROITypeDaily   = "daily"
	ROITypeWeekly  = "weekly"
	ROITypeMonthly = "monthly"
	ROITypeTotal   = "total"
)

const (
	DurationMinute = "minute"
	DurationHour   = "hour"
	DurationDay    = "day"
	DurationWeek   = "week"
	DurationMonth  = "month" // 30 days for term math
)

// Quote is the profit contract computed once at investment creation and
// cached on the investment row.
type Quote struct {
	ExpectedProfit float64
	IntervalProfit float64
	Interval       time.Duration
	Term           time.Duration
}

// QuotePlan derives the total expected profit, the amount paid on each
// scheduler firing and the payout cadence for a principal staked into a plan.
// Weekly, monthly and total ROI are spread over daily payouts; only hourly
// plans pay on an hourly cadence.
func QuotePlan(principal float64, plan *model.InvestmentPlan) Quote {
	totalMinutes := durationMinutes(plan.Duration, plan.DurationUnit)
	rate := plan.ROIPercent / 100

	var expected float64
	switch plan.ROIType {
	case ROITypeHourly:
		expected = principal * rate * (totalMinutes / 60)
	case ROITypeDaily:
		expected = principal * rate * (totalMinutes / 1440)
	case ROITypeWeekly:
		expected = principal * rate * (totalMinutes / 10080)
	case ROITypeMonthly:
		expected = principal * rate * (totalMinutes / 43200)
	case ROITypeTotal:
		expected = principal * rate
	}

	var perInterval float64
	switch plan.ROIType {
	case ROITypeHourly, ROITypeDaily:
		perInterval = principal * rate
	case ROITypeWeekly:
		perInterval = principal * rate / 7
	case ROITypeMonthly:
		perInterval = principal * rate / 30
	case ROITypeTotal:
		totalDays := math.Floor(totalMinutes / 1440)
		if totalDays < 1 {
			totalDays = 1
		}
		perInterval = principal * rate / totalDays
	}

	return Quote{
		ExpectedProfit: RoundCents(expected),
		IntervalProfit: RoundCents(perInterval),
		Interval:       PayoutInterval(plan.ROIType),
		Term:           time.Duration(totalMinutes) * time.Minute,
	}
}

// PayoutInterval is the cadence between two payouts for a plan's ROI type.
func PayoutInterval(roiType string) time.Duration {
	if roiType == ROITypeHourly {
		return time.Hour
	}
	return 24 * time.Hour
}

func durationMinutes(duration int, unit string) float64 {
	d := float64(duration)
	switch unit {
	case DurationMinute:
		return d
	case DurationHour:
		return d * 60
	case DurationDay:
		return d * 1440
	case DurationWeek:
		return d * 10080
	case DurationMonth:
		return d * 43200
	default:
		return d * 1440
	}
}

// RoundCents rounds a monetary amount to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
