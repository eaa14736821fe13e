package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/application/service"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// AdminAPI is the provisioning surface behind /api/v1
type AdminAPI interface {
	CreateUser(ctx context.Context, in service.UserInput) (*entity.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*entity.User, error)
	SetUserBlocked(ctx context.Context, telegramID int64, blocked bool) error
	AssignGroup(ctx context.Context, telegramID, groupChatID int64) error
	RegisterGroup(ctx context.Context, in service.GroupInput) (*entity.Group, error)
	ListGroups(ctx context.Context) ([]*entity.Group, error)
	BindLedger(ctx context.Context, chatID, ledgerID int64) error
	RegisterLedger(ctx context.Context, in service.LedgerInput) (*entity.LedgerRegistration, error)
	ListLedgers(ctx context.Context, activeOnly bool) ([]*entity.LedgerRegistration, error)
	DeactivateLedger(ctx context.Context, id int64) error
	GetReport(ctx context.Context, id int64) (*entity.Report, error)
	ListReports(ctx context.Context, filter port.ReportFilter) ([]*entity.Report, error)
	Stats(ctx context.Context, filter port.ReportFilter) (*service.ReportStats, error)
}

const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Handlers contains all HTTP request handlers
type Handlers struct {
	admin         AdminAPI
	webhook       Webhook
	webhookSecret string
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(admin AdminAPI, webhook Webhook, webhookSecret string, logger Logger) *Handlers {
	return &Handlers{
		admin:         admin,
		webhook:       webhook,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ListRequest holds paging query parameters
type ListRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ReportQuery holds report filter query parameters; dates are YYYY-MM-DD
type ReportQuery struct {
	ListRequest
	Status string `form:"status"`
	UserID int64  `form:"user_id"`
	From   string `form:"from"`
	To     string `form:"to"`
}

// BlockRequest is the body of PUT /users/:telegram_id/block
type BlockRequest struct {
	Blocked bool `json:"blocked"`
}

// AssignGroupRequest is the body of PUT /users/:telegram_id/group
type AssignGroupRequest struct {
	GroupChatID int64 `json:"group_chat_id" binding:"required"`
}

// BindLedgerRequest is the body of PUT /groups/:chat_id/ledger
type BindLedgerRequest struct {
	LedgerID int64 `json:"ledger_id" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// Webhook handles Telegram update deliveries. Telegram retries non-2xx
// responses, so handling failures still answer 200.
func (h *Handlers) Webhook(c *gin.Context) {
	if h.webhookSecret != "" && c.GetHeader(webhookSecretHeader) != h.webhookSecret {
		c.Status(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.webhook.HandleWebhook(c.Request.Context(), body); err != nil {
		h.logger.Error("Webhook update failed", "error", err)
	}
	c.Status(http.StatusOK)
}

// ListUsers handles GET /api/v1/users
func (h *Handlers) ListUsers(c *gin.Context) {
	page, ok := h.bindPage(c)
	if !ok {
		return
	}
	users, err := h.admin.ListUsers(c.Request.Context(), page.Limit, page.Offset)
	h.respond(c, http.StatusOK, users, err)
}

// CreateUser handles POST /api/v1/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var in service.UserInput
	if !h.bindJSON(c, &in) {
		return
	}
	user, err := h.admin.CreateUser(c.Request.Context(), in)
	h.respond(c, http.StatusCreated, user, err)
}

// SetUserBlocked handles PUT /api/v1/users/:telegram_id/block
func (h *Handlers) SetUserBlocked(c *gin.Context) {
	id, ok := h.paramID(c, "telegram_id")
	if !ok {
		return
	}
	var req BlockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.admin.SetUserBlocked(c.Request.Context(), id, req.Blocked)
	h.respond(c, http.StatusOK, gin.H{"telegram_id": id, "blocked": req.Blocked}, err)
}

// AssignGroup handles PUT /api/v1/users/:telegram_id/group
func (h *Handlers) AssignGroup(c *gin.Context) {
	id, ok := h.paramID(c, "telegram_id")
	if !ok {
		return
	}
	var req AssignGroupRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.admin.AssignGroup(c.Request.Context(), id, req.GroupChatID)
	h.respond(c, http.StatusOK, gin.H{"telegram_id": id, "group_chat_id": req.GroupChatID}, err)
}

// ListGroups handles GET /api/v1/groups
func (h *Handlers) ListGroups(c *gin.Context) {
	groups, err := h.admin.ListGroups(c.Request.Context())
	h.respond(c, http.StatusOK, groups, err)
}

// RegisterGroup handles POST /api/v1/groups
func (h *Handlers) RegisterGroup(c *gin.Context) {
	var in service.GroupInput
	if !h.bindJSON(c, &in) {
		return
	}
	group, err := h.admin.RegisterGroup(c.Request.Context(), in)
	h.respond(c, http.StatusCreated, group, err)
}

// BindLedger handles PUT /api/v1/groups/:chat_id/ledger
func (h *Handlers) BindLedger(c *gin.Context) {
	chatID, ok := h.paramID(c, "chat_id")
	if !ok {
		return
	}
	var req BindLedgerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.admin.BindLedger(c.Request.Context(), chatID, req.LedgerID)
	h.respond(c, http.StatusOK, gin.H{"chat_id": chatID, "ledger_id": req.LedgerID}, err)
}

// ListLedgers handles GET /api/v1/ledgers?active=true
func (h *Handlers) ListLedgers(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	ledgers, err := h.admin.ListLedgers(c.Request.Context(), activeOnly)
	h.respond(c, http.StatusOK, ledgers, err)
}

// RegisterLedger handles POST /api/v1/ledgers
func (h *Handlers) RegisterLedger(c *gin.Context) {
	var in service.LedgerInput
	if !h.bindJSON(c, &in) {
		return
	}
	reg, err := h.admin.RegisterLedger(c.Request.Context(), in)
	h.respond(c, http.StatusCreated, reg, err)
}

// DeactivateLedger handles DELETE /api/v1/ledgers/:id
func (h *Handlers) DeactivateLedger(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	err := h.admin.DeactivateLedger(c.Request.Context(), id)
	h.respond(c, http.StatusOK, gin.H{"id": id, "is_active": false}, err)
}

// GetReport handles GET /api/v1/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	report, err := h.admin.GetReport(c.Request.Context(), id)
	h.respond(c, http.StatusOK, report, err)
}

// ListReports handles GET /api/v1/reports
func (h *Handlers) ListReports(c *gin.Context) {
	filter, ok := h.bindReportFilter(c)
	if !ok {
		return
	}
	reports, err := h.admin.ListReports(c.Request.Context(), filter)
	h.respond(c, http.StatusOK, reports, err)
}

// ReportStats handles GET /api/v1/reports/stats
func (h *Handlers) ReportStats(c *gin.Context) {
	filter, ok := h.bindReportFilter(c)
	if !ok {
		return
	}
	stats, err := h.admin.Stats(c.Request.Context(), filter)
	h.respond(c, http.StatusOK, stats, err)
}

func (h *Handlers) bindReportFilter(c *gin.Context) (port.ReportFilter, bool) {
	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return port.ReportFilter{}, false
	}

	filter := port.ReportFilter{
		Status:         q.Status,
		UserTelegramID: q.UserID,
		Limit:          q.Limit,
		Offset:         q.Offset,
	}
	var err error
	if q.From != "" {
		if filter.From, err = time.Parse(time.DateOnly, q.From); err != nil {
			h.badRequest(c, "invalid from date", err)
			return port.ReportFilter{}, false
		}
	}
	if q.To != "" {
		if filter.To, err = time.Parse(time.DateOnly, q.To); err != nil {
			h.badRequest(c, "invalid to date", err)
			return port.ReportFilter{}, false
		}
		// the query's to is inclusive; the filter's is not
		filter.To = filter.To.AddDate(0, 0, 1)
	}
	return filter, true
}

func (h *Handlers) bindPage(c *gin.Context) (ListRequest, bool) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return req, false
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return req, true
}

func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.badRequest(c, "invalid request body", err)
		return false
	}
	return true
}

func (h *Handlers) paramID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid "+name, err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error("Bad request", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// respond maps service errors onto status codes
func (h *Handlers) respond(c *gin.Context, status int, data interface{}, err error) {
	switch {
	case err == nil:
		c.JSON(status, Response{Success: true, Data: data})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Admin request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
