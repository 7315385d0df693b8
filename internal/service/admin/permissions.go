package admin

import "invest-service/internal/model"

// Permissions gating the admin API. Route wiring attaches these per
// endpoint; the role carried in the admin's token decides the outcome.
const (
	PermPlanWrite       = "plan:write"
	PermAdjustmentWrite = "adjustment:write"
	PermDistributionRun = "distribution:run"
	PermMoneyReview     = "money:review"
	PermUserAdmin       = "user:admin"
	PermAdminManage     = "admin:manage"
)

// Operators run the day-to-day investment desk: plans, rate overrides and
// distribution control. Approving money movement, banning users and managing
// admin accounts stay with super admins.
var operatorPerms = map[string]struct{}{
	PermPlanWrite:       {},
	PermAdjustmentWrite: {},
	PermDistributionRun: {},
}

func RoleCan(role, perm string) bool {
	switch role {
	case model.AdminRoleSuper:
		return true
	case model.AdminRoleOperator:
		_, ok := operatorPerms[perm]
		return ok
	default:
		return false
	}
}

func ValidRole(role string) bool {
	return role == model.AdminRoleSuper || role == model.AdminRoleOperator
}
