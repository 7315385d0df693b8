package profit_test

import (
	"testing"
	"time"

	"invest-service/internal/model"
	"invest-service/internal/service/profit"
)

func TestQuoteDailyPlan(t *testing.T) {
	plan := &model.InvestmentPlan{
		ROIPercent:   5,
		ROIType:      profit.ROITypeDaily,
		Duration:     10,
		DurationUnit: profit.DurationDay,
	}

	quote := profit.QuotePlan(1000, plan)
	if quote.ExpectedProfit != 500 {
		t.Fatalf("expected total profit 500, got %v", quote.ExpectedProfit)
	}
	if quote.IntervalProfit != 50 {
		t.Fatalf("expected interval profit 50, got %v", quote.IntervalProfit)
	}
	if quote.Interval != 24*time.Hour {
		t.Fatalf("expected daily cadence, got %v", quote.Interval)
	}
	if quote.Term != 10*24*time.Hour {
		t.Fatalf("expected 10 day term, got %v", quote.Term)
	}
}

func TestQuoteTotalPlanSpreadOverDays(t *testing.T) {
	plan := &model.InvestmentPlan{
		ROIPercent:   20,
		ROIType:      profit.ROITypeTotal,
		Duration:     30,
		DurationUnit: profit.DurationDay,
	}

	quote := profit.QuotePlan(3000, plan)
	if quote.ExpectedProfit != 600 {
		t.Fatalf("expected total profit 600, got %v", quote.ExpectedProfit)
	}
	if quote.IntervalProfit != 20 {
		t.Fatalf("expected interval profit 20, got %v", quote.IntervalProfit)
	}
	if quote.Interval != 24*time.Hour {
		t.Fatalf("total ROI must pay on a daily cadence, got %v", quote.Interval)
	}
}

func TestQuoteHourlyPlan(t *testing.T) {
	plan := &model.InvestmentPlan{
		ROIPercent:   1,
		ROIType:      profit.ROITypeHourly,
		Duration:     2,
		DurationUnit: profit.DurationDay,
	}

	quote := profit.QuotePlan(100, plan)
	if quote.ExpectedProfit != 48 {
		t.Fatalf("expected total profit 48, got %v", quote.ExpectedProfit)
	}
	if quote.IntervalProfit != 1 {
		t.Fatalf("expected interval profit 1, got %v", quote.IntervalProfit)
	}
	if quote.Interval != time.Hour {
		t.Fatalf("hourly ROI must pay on an hourly cadence, got %v", quote.Interval)
	}
}

func TestQuoteWeeklyPlanPaysDaily(t *testing.T) {
	plan := &model.InvestmentPlan{
		ROIPercent:   7,
		ROIType:      profit.ROITypeWeekly,
		Duration:     2,
		DurationUnit: profit.DurationWeek,
	}

	quote := profit.QuotePlan(1000, plan)
	if quote.ExpectedProfit != 140 {
		t.Fatalf("expected total profit 140, got %v", quote.ExpectedProfit)
	}
	if quote.IntervalProfit != 10 {
		t.Fatalf("expected daily slice 10, got %v", quote.IntervalProfit)
	}
	if quote.Interval != 24*time.Hour {
		t.Fatalf("weekly ROI must pay on a daily cadence, got %v", quote.Interval)
	}
}

func TestQuoteTotalSubDayTerm(t *testing.T) {
	// A term shorter than one day still pays at least one full slice.
	plan := &model.InvestmentPlan{
		ROIPercent:   10,
		ROIType:      profit.ROITypeTotal,
		Duration:     30,
		DurationUnit: profit.DurationMinute,
	}

	quote := profit.QuotePlan(200, plan)
	if quote.ExpectedProfit != 20 {
		t.Fatalf("expected total profit 20, got %v", quote.ExpectedProfit)
	}
	if quote.IntervalProfit != 20 {
		t.Fatalf("expected the whole profit in one slice, got %v", quote.IntervalProfit)
	}
	if quote.Term != 30*time.Minute {
		t.Fatalf("expected 30 minute term, got %v", quote.Term)
	}
}

func TestRoundCents(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{10.004, 10.0},
		{1.239, 1.24},
		{33.333333, 33.33},
		{0, 0},
	}
	for _, tc := range cases {
		if got := profit.RoundCents(tc.in); got != tc.want {
			t.Fatalf("RoundCents(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
