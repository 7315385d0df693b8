package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"invest-service/internal/config"
	"invest-service/internal/middleware"
	"invest-service/internal/model"
	"invest-service/internal/service"
	adjSvc "invest-service/internal/service/adjustment"
	adminSvc "invest-service/internal/service/admin"
	authSvc "invest-service/internal/service/auth"
	invSvc "invest-service/internal/service/investment"
	planSvc "invest-service/internal/service/plan"
	usersvc "invest-service/internal/service/user"
	"invest-service/internal/ws"
	appErr "invest-service/pkg/errors"
	"invest-service/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Profit)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/investService/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", handler.Register)
			authGroup.POST("/login", handler.Login)
		}

		v1.GET("/plans", handler.ListPlans)
		v1.GET("/gateways", handler.ListGateways)

		userGroup := v1.Group("/user")
		userGroup.Use(middleware.AuthRequired())
		{
			userGroup.GET("/profile", handler.GetProfile)
			userGroup.PUT("/profile", handler.UpdateProfile)
		}

		walletGroup := v1.Group("/wallet")
		walletGroup.Use(middleware.AuthRequired())
		{
			walletGroup.GET("", handler.GetWallet)
			walletGroup.GET("/transactions", handler.ListTransactions)
		}

		invGroup := v1.Group("/investments")
		invGroup.Use(middleware.AuthRequired())
		{
			invGroup.POST("", handler.CreateInvestment)
			invGroup.GET("", handler.ListInvestments)
			invGroup.GET("/:id", handler.GetInvestment)
		}

		depositGroup := v1.Group("/deposits")
		depositGroup.Use(middleware.AuthRequired())
		{
			depositGroup.POST("", handler.RequestDeposit)
			depositGroup.GET("", handler.ListDeposits)
		}

		withdrawGroup := v1.Group("/withdrawals")
		withdrawGroup.Use(middleware.AuthRequired())
		{
			withdrawGroup.POST("", handler.RequestWithdrawal)
			withdrawGroup.GET("", handler.ListWithdrawals)
		}

		notifyGroup := v1.Group("/notifications")
		notifyGroup.Use(middleware.AuthRequired())
		{
			notifyGroup.GET("", handler.ListNotifications)
			notifyGroup.PUT("/:id/read", handler.MarkNotificationRead)
		}
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/auth/login", handler.AdminLogin)

		protected := adminGroup.Group("/")
		protected.Use(middleware.AdminAuthRequired())
		{
			protected.PUT("/auth/password", handler.AdminChangePassword)
			protected.POST("/admins", middleware.AdminPermissionRequired(adminSvc.PermAdminManage), handler.AdminCreateAdmin)

			planWrite := middleware.AdminPermissionRequired(adminSvc.PermPlanWrite)
			protected.GET("/plans", handler.AdminListPlans)
			protected.POST("/plans", planWrite, handler.AdminCreatePlan)
			protected.PUT("/plans/:id", planWrite, handler.AdminUpdatePlan)

			adjWrite := middleware.AdminPermissionRequired(adminSvc.PermAdjustmentWrite)
			protected.GET("/profit_adjustments", handler.AdminListAdjustments)
			protected.POST("/profit_adjustments", adjWrite, handler.AdminCreateAdjustment)
			protected.PUT("/profit_adjustments/:id", adjWrite, handler.AdminUpdateAdjustment)
			protected.DELETE("/profit_adjustments/:id", adjWrite, handler.AdminDeleteAdjustment)

			distRun := middleware.AdminPermissionRequired(adminSvc.PermDistributionRun)
			moneyReview := middleware.AdminPermissionRequired(adminSvc.PermMoneyReview)
			protected.GET("/investments", handler.AdminListInvestments)
			protected.PUT("/investments/:id/pause", distRun, handler.AdminPauseInvestment)
			protected.PUT("/investments/:id/resume", distRun, handler.AdminResumeInvestment)
			protected.PUT("/investments/:id/cancel", moneyReview, handler.AdminCancelInvestment)
			protected.POST("/investments/:id/distribute", distRun, handler.AdminManualDistribute)
			protected.POST("/distributions/run", distRun, handler.AdminRunDistribution)

			protected.GET("/deposits", handler.AdminListDeposits)
			protected.PUT("/deposits/:id/approve", moneyReview, handler.AdminApproveDeposit)
			protected.PUT("/deposits/:id/reject", moneyReview, handler.AdminRejectDeposit)

			protected.GET("/withdrawals", handler.AdminListWithdrawals)
			protected.PUT("/withdrawals/:id/approve", moneyReview, handler.AdminApproveWithdrawal)
			protected.PUT("/withdrawals/:id/reject", moneyReview, handler.AdminRejectWithdrawal)

			userAdmin := middleware.AdminPermissionRequired(adminSvc.PermUserAdmin)
			protected.GET("/users", handler.AdminListUsers)
			protected.GET("/users/:id", handler.AdminGetUser)
			protected.PUT("/users/:id/ban", userAdmin, handler.AdminBanUser)
		}
	}

	r.GET("/ws/admin/feed", wsHandler.HandleAdminFeed)
}

type registerBody struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode"`
}

type loginBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type updateProfileBody struct {
	Name *string `json:"name"`
}

type createInvestmentBody struct {
	PlanID int64   `json:"planId" binding:"required,min=1"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type depositBody struct {
	GatewayID int64   `json:"gatewayId" binding:"required,min=1"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

type withdrawBody struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type adminLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminCreateBody struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role" binding:"required,oneof=super operator"`
}

type changePasswordBody struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

type adminUserBanBody struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type reviewBody struct {
	Reason string `json:"reason"`
}

type pauseBody struct {
	Reason string `json:"reason"`
}

type manualDistributeBody struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Reason string  `json:"reason"`
}

type planMutationBody struct {
	Name                 string  `json:"name" binding:"required"`
	MinAmount            float64 `json:"minAmount" binding:"required,gt=0"`
	MaxAmount            float64 `json:"maxAmount" binding:"gte=0"`
	ROIPercent           float64 `json:"roiPercent" binding:"required,gt=0"`
	ROIType              string  `json:"roiType" binding:"required"`
	Duration             int     `json:"duration" binding:"required,min=1"`
	DurationUnit         string  `json:"durationUnit" binding:"required"`
	ReferralBonusPercent float64 `json:"referralBonusPercent" binding:"gte=0"`
	Status               string  `json:"status" binding:"omitempty,oneof=active inactive"`
	Popular              bool    `json:"popular"`
}

func (b planMutationBody) toParams() planSvc.MutationParams {
	status := strings.ToLower(strings.TrimSpace(b.Status))
	if status == "" {
		status = model.PlanStatusActive
	}
	return planSvc.MutationParams{
		Name:                 strings.TrimSpace(b.Name),
		MinAmount:            b.MinAmount,
		MaxAmount:            b.MaxAmount,
		ROIPercent:           b.ROIPercent,
		ROIType:              strings.ToLower(strings.TrimSpace(b.ROIType)),
		Duration:             b.Duration,
		DurationUnit:         strings.ToLower(strings.TrimSpace(b.DurationUnit)),
		ReferralBonusPercent: b.ReferralBonusPercent,
		Status:               status,
		Popular:              b.Popular,
	}
}

type adjustmentBody struct {
	ScopeType    string  `json:"scopeType" binding:"required"`
	UserID       *int64  `json:"userId"`
	InvestmentID *int64  `json:"investmentId"`
	PlanID       *int64  `json:"planId"`
	Kind         string  `json:"kind" binding:"required"`
	Value        float64 `json:"value" binding:"gte=0"`
	Priority     int     `json:"priority"`
	StartAt      *string `json:"startAt"`
	EndAt        *string `json:"endAt"`
	Active       *bool   `json:"active"`
	Reason       string  `json:"reason"`
}

func (b adjustmentBody) toParams(adminID int64) (adjSvc.MutationParams, error) {
	var startAt time.Time
	if b.StartAt != nil && strings.TrimSpace(*b.StartAt) != "" {
		ts, err := parseTimeWithLayouts(strings.TrimSpace(*b.StartAt))
		if err != nil {
			return adjSvc.MutationParams{}, err
		}
		startAt = *ts
	}

	var endAt *time.Time
	if b.EndAt != nil && strings.TrimSpace(*b.EndAt) != "" {
		ts, err := parseTimeWithLayouts(strings.TrimSpace(*b.EndAt))
		if err != nil {
			return adjSvc.MutationParams{}, err
		}
		endAt = ts
	}

	active := true
	if b.Active != nil {
		active = *b.Active
	}

	return adjSvc.MutationParams{
		ScopeType:    strings.ToLower(strings.TrimSpace(b.ScopeType)),
		UserID:       b.UserID,
		InvestmentID: b.InvestmentID,
		PlanID:       b.PlanID,
		Kind:         strings.ToLower(strings.TrimSpace(b.Kind)),
		Value:        b.Value,
		Priority:     b.Priority,
		StartAt:      startAt,
		EndAt:        endAt,
		Active:       active,
		CreatedBy:    adminID,
		Reason:       strings.TrimSpace(b.Reason),
	}, nil
}

func (h *Handler) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.Register(c.Request.Context(), authSvc.RegisterParams{
		Email:      strings.ToLower(strings.TrimSpace(body.Email)),
		Password:   body.Password,
		Name:       strings.TrimSpace(body.Name),
		InviteCode: strings.TrimSpace(body.InviteCode),
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrEmailTaken):
			status = http.StatusConflict
		case errors.Is(err, appErr.ErrInviteCodeNotFound):
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.Login(c.Request.Context(), strings.ToLower(strings.TrimSpace(body.Email)), body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidCredentials):
			status = http.StatusUnauthorized
		case errors.Is(err, appErr.ErrUserBanned):
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var body adminLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Admin.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrAdminNotFound), errors.Is(err, appErr.ErrInvalidAdminPassword):
			status = http.StatusUnauthorized
		case errors.Is(err, appErr.ErrAdminDisabled):
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) AdminCreateAdmin(c *gin.Context) {
	var body adminCreateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	info, err := h.services.Admin.CreateAdmin(c.Request.Context(), adminSvc.CreateParams{
		Username:    body.Username,
		Password:    body.Password,
		DisplayName: body.DisplayName,
		Role:        strings.ToLower(strings.TrimSpace(body.Role)),
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrUsernameTaken):
			status = http.StatusConflict
		case errors.Is(err, appErr.ErrInvalidAdminRole), errors.Is(err, appErr.ErrInvalidAdminPassword):
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, info)
}

func (h *Handler) AdminChangePassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body changePasswordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.services.Admin.ChangePassword(c.Request.Context(), adminID, body.CurrentPassword, body.NewPassword); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidAdminPassword):
			status = http.StatusBadRequest
		case errors.Is(err, appErr.ErrAdminNotFound):
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "password changed")
}

func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.services.Plan.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"plans": plans})
}

func (h *Handler) ListGateways(c *gin.Context) {
	gateways, err := h.services.Wallet.ListActiveGateways(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"gateways": gateways})
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.services.User.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.services.User.UpdateProfile(c.Request.Context(), userID, usersvc.UpdateProfileRequest{
		Name: body.Name,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, updated)
}

func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.services.Wallet.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"wallet": wallet})
}

func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.services.Wallet.ListTransactions(c.Request.Context(), userID, page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, items, total, page, size)
}

func (h *Handler) CreateInvestment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body createInvestmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.services.Investment.Create(c.Request.Context(), userID, body.PlanID, body.Amount)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrPlanNotFound):
			status = http.StatusNotFound
		case errors.Is(err, appErr.ErrPlanInactive),
			errors.Is(err, appErr.ErrAmountOutOfRange),
			errors.Is(err, appErr.ErrInvalidAmount),
			errors.Is(err, appErr.ErrInsufficientBalance):
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, inv)
}

func (h *Handler) ListInvestments(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.services.Investment.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"investments": items})
}

func (h *Handler) GetInvestment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	invID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid investment id")
		return
	}

	inv, err := h.services.Investment.Get(c.Request.Context(), invID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrInvestmentNotFound) {
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}
	if inv.UserID != userID {
		response.Error(c, http.StatusNotFound, appErr.ErrInvestmentNotFound.Error())
		return
	}

	response.Success(c, inv)
}

func (h *Handler) RequestDeposit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body depositBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	deposit, err := h.services.Wallet.RequestDeposit(c.Request.Context(), userID, body.GatewayID, body.Amount)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrGatewayNotFound):
			status = http.StatusNotFound
		case errors.Is(err, appErr.ErrGatewayInactive), errors.Is(err, appErr.ErrAmountOutOfRange), errors.Is(err, appErr.ErrInvalidAmount):
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, deposit)
}

func (h *Handler) ListDeposits(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.services.Wallet.ListDeposits(c.Request.Context(), &userID, strings.TrimSpace(c.Query("status")), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, items, total, page, size)
}

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body withdrawBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	withdrawal, err := h.services.Wallet.RequestWithdrawal(c.Request.Context(), userID, body.Amount,
		config.GlobalConfig.Wallet.WithdrawFeePercent)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInsufficientBalance), errors.Is(err, appErr.ErrInvalidAmount):
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, withdrawal)
}

func (h *Handler) ListWithdrawals(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.services.Wallet.ListWithdrawals(c.Request.Context(), &userID, strings.TrimSpace(c.Query("status")), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, items, total, page, size)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.services.Notify.ListByUser(c.Request.Context(), userID, page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, items, total, page, size)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	notifID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.services.Notify.MarkRead(c.Request.Context(), userID, notifID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "marked read")
}

func (h *Handler) AdminListPlans(c *gin.Context) {
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Plan.AdminList(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, result.Items, result.Total, page, size)
}

func (h *Handler) AdminCreatePlan(c *gin.Context) {
	var body planMutationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.services.Plan.Create(c.Request.Context(), body.toParams())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidPlan):
			status = http.StatusBadRequest
		case errors.Is(err, gorm.ErrDuplicatedKey):
			status = http.StatusConflict
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{"id": plan.ID})
}

func (h *Handler) AdminUpdatePlan(c *gin.Context) {
	planID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid plan id")
		return
	}

	var body planMutationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.services.Plan.Update(c.Request.Context(), planID, body.toParams())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrPlanNotFound):
			status = http.StatusNotFound
		case errors.Is(err, appErr.ErrInvalidPlan):
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, plan)
}

func (h *Handler) AdminListAdjustments(c *gin.Context) {
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Adjustment.List(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, result.Items, result.Total, page, size)
}

func (h *Handler) AdminCreateAdjustment(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body adjustmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	params, err := body.toParams(adminID)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	adj, err := h.services.Adjustment.Create(c.Request.Context(), params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrInvalidAdjustment) {
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{"id": adj.ID})
}

func (h *Handler) AdminUpdateAdjustment(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	adjID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid adjustment id")
		return
	}

	var body adjustmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	params, err := body.toParams(adminID)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	adj, err := h.services.Adjustment.Update(c.Request.Context(), adjID, params)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrAdjustmentNotFound):
			status = http.StatusNotFound
		case errors.Is(err, appErr.ErrInvalidAdjustment):
			status = http.StatusBadRequest
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, adj)
}

func (h *Handler) AdminDeleteAdjustment(c *gin.Context) {
	adjID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid adjustment id")
		return
	}

	if err := h.services.Adjustment.Delete(c.Request.Context(), adjID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrAdjustmentNotFound) {
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "deleted")
}

func (h *Handler) AdminListInvestments(c *gin.Context) {
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	userIDStr := strings.TrimSpace(c.Query("userId"))
	var userID *int64
	if userIDStr != "" {
		id, parseErr := strconv.ParseInt(userIDStr, 10, 64)
		if parseErr != nil || id <= 0 {
			response.Error(c, http.StatusBadRequest, "invalid userId")
			return
		}
		userID = &id
	}

	result, err := h.services.Investment.AdminList(c.Request.Context(), invSvc.AdminListFilter{
		Page:   page,
		Size:   size,
		UserID: userID,
		Status: status,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, result.Items, result.Total, page, size)
}

func (h *Handler) AdminPauseInvestment(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	invID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid investment id")
		return
	}

	var body pauseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.services.Investment.Pause(c.Request.Context(), invID, adminID, strings.TrimSpace(body.Reason))
	if err != nil {
		h.handleInvestmentError(c, err)
		return
	}
	response.Success(c, inv)
}

func (h *Handler) AdminResumeInvestment(c *gin.Context) {
	invID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid investment id")
		return
	}

	inv, err := h.services.Investment.Resume(c.Request.Context(), invID)
	if err != nil {
		h.handleInvestmentError(c, err)
		return
	}
	response.Success(c, inv)
}

func (h *Handler) AdminCancelInvestment(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	invID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid investment id")
		return
	}

	var body reviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.services.Investment.Cancel(c.Request.Context(), invID, adminID, strings.TrimSpace(body.Reason))
	if err != nil {
		h.handleInvestmentError(c, err)
		return
	}
	response.Success(c, inv)
}

func (h *Handler) AdminManualDistribute(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	invID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid investment id")
		return
	}

	var body manualDistributeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	dist, err := h.services.Profit.ManualDistribute(c.Request.Context(), invID, body.Amount, adminID, strings.TrimSpace(body.Reason))
	if err != nil {
		h.handleInvestmentError(c, err)
		return
	}
	response.Success(c, dist)
}

func (h *Handler) AdminRunDistribution(c *gin.Context) {
	result, err := h.services.Profit.DistributeAll(c.Request.Context(), config.GlobalConfig.Scheduler.TestMode)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrDistributionInProgress) {
			status = http.StatusConflict
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, result)
}

func (h *Handler) AdminListDeposits(c *gin.Context) {
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := parseOptionalIDQuery(c, "userId")
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.services.Wallet.ListDeposits(c.Request.Context(), userID, strings.TrimSpace(c.Query("status")), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, items, total, page, size)
}

func (h *Handler) AdminApproveDeposit(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	depositID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid deposit id")
		return
	}

	deposit, err := h.services.Wallet.ApproveDeposit(c.Request.Context(), depositID, adminID)
	if err != nil {
		h.handleReviewError(c, err)
		return
	}
	response.Success(c, deposit)
}

func (h *Handler) AdminRejectDeposit(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	depositID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid deposit id")
		return
	}

	var body reviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	deposit, err := h.services.Wallet.RejectDeposit(c.Request.Context(), depositID, adminID, strings.TrimSpace(body.Reason))
	if err != nil {
		h.handleReviewError(c, err)
		return
	}
	response.Success(c, deposit)
}

func (h *Handler) AdminListWithdrawals(c *gin.Context) {
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := parseOptionalIDQuery(c, "userId")
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.services.Wallet.ListWithdrawals(c.Request.Context(), userID, strings.TrimSpace(c.Query("status")), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, items, total, page, size)
}

func (h *Handler) AdminApproveWithdrawal(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	withdrawalID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid withdrawal id")
		return
	}

	withdrawal, err := h.services.Wallet.ApproveWithdrawal(c.Request.Context(), withdrawalID, adminID)
	if err != nil {
		h.handleReviewError(c, err)
		return
	}
	response.Success(c, withdrawal)
}

func (h *Handler) AdminRejectWithdrawal(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	withdrawalID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid withdrawal id")
		return
	}

	var body reviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	withdrawal, err := h.services.Wallet.RejectWithdrawal(c.Request.Context(), withdrawalID, adminID, strings.TrimSpace(body.Reason))
	if err != nil {
		h.handleReviewError(c, err)
		return
	}
	response.Success(c, withdrawal)
}

func (h *Handler) AdminListUsers(c *gin.Context) {
	page, size, err := parsePageQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" && status != "normal" && status != "banned" {
		response.Error(c, http.StatusBadRequest, "invalid status filter")
		return
	}

	referredBy, err := parseOptionalIDQuery(c, "referredBy")
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.User.AdminListUsers(c.Request.Context(), usersvc.AdminListUsersFilter{
		Page:         page,
		Size:         size,
		Status:       status,
		EmailKeyword: strings.TrimSpace(c.Query("email")),
		InviteCode:   strings.TrimSpace(c.Query("inviteCode")),
		ReferredBy:   referredBy,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Page(c, result.Items, result.Total, page, size)
}

func (h *Handler) AdminGetUser(c *gin.Context) {
	userID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.services.User.AdminGetUser(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, gin.H{"user": user})
}

func (h *Handler) AdminBanUser(c *gin.Context) {
	userID, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var body adminUserBanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	status := strings.ToLower(strings.TrimSpace(body.Status))
	if status != "normal" && status != "banned" {
		response.Error(c, http.StatusBadRequest, "status must be 'normal' or 'banned'")
		return
	}

	updated, err := h.services.User.AdminUpdateUserStatus(c.Request.Context(), userID, status, body.Reason)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrUserNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, appErr.ErrInvalidUserStatus):
			statusCode = http.StatusBadRequest
		}
		response.Error(c, statusCode, err.Error())
		return
	}
	response.Success(c, gin.H{"user": updated})
}

func (h *Handler) handleInvestmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrInvestmentNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrInvestmentNotActive),
		errors.Is(err, appErr.ErrInvestmentAlreadyPaused),
		errors.Is(err, appErr.ErrInvestmentNotPaused),
		errors.Is(err, appErr.ErrInvalidAmount):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrDepositNotFound), errors.Is(err, appErr.ErrWithdrawalNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrDepositNotPending), errors.Is(err, appErr.ErrWithdrawalNotPending):
		response.Error(c, http.StatusConflict, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

func parseIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func parseOptionalIDQuery(c *gin.Context, key string) (*int64, error) {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("invalid " + key)
	}
	return &id, nil
}

func parsePageQuery(c *gin.Context) (int, int, error) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}

func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func getAdminID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextAdminIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func parseTimeWithLayouts(value string) (*time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &ts, nil
		}
	}
	return nil, errors.New("invalid time, expected RFC3339 or '2006-01-02 15:04:05'")
}
