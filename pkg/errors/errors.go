package errors

import "errors"

var (
	// auth / users
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInviteCodeNotFound = errors.New("invite code not found")
	ErrUserBanned         = errors.New("user is banned")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidUserStatus  = errors.New("invalid user status")
	ErrUnauthorized       = errors.New("unauthorized")

	// admins
	ErrAdminNotFound        = errors.New("admin not found")
	ErrInvalidAdminPassword = errors.New("invalid admin credentials")
	ErrAdminDisabled        = errors.New("admin account disabled")
	ErrUsernameTaken        = errors.New("username already registered")
	ErrInvalidAdminRole     = errors.New("invalid admin role")
	ErrPermissionDenied     = errors.New("permission denied")

	// plans
	ErrPlanNotFound     = errors.New("investment plan not found")
	ErrPlanInactive     = errors.New("investment plan is not active")
	ErrInvalidPlan      = errors.New("invalid plan definition")
	ErrAmountOutOfRange = errors.New("amount outside plan limits")

	// wallets / money movement
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrGatewayNotFound      = errors.New("payment gateway not found")
	ErrGatewayInactive      = errors.New("payment gateway is not active")
	ErrDepositNotFound      = errors.New("deposit not found")
	ErrDepositNotPending    = errors.New("deposit is not pending")
	ErrWithdrawalNotFound   = errors.New("withdrawal not found")
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")

	// investments
	ErrInvestmentNotFound      = errors.New("investment not found")
	ErrInvestmentNotActive     = errors.New("investment is not active")
	ErrInvestmentAlreadyPaused = errors.New("investment already paused")
	ErrInvestmentNotPaused     = errors.New("investment is not paused")

	// profit adjustments & distribution
	ErrAdjustmentNotFound     = errors.New("profit adjustment not found")
	ErrInvalidAdjustment      = errors.New("invalid profit adjustment")
	ErrDistributionInProgress = errors.New("profit distribution already running")
)
