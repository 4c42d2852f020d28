package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/internal/observability"
	"github.com/upb/llm-tenant-gateway/middleware"
	"github.com/upb/llm-tenant-gateway/models"
	"github.com/upb/llm-tenant-gateway/services"
	"github.com/upb/llm-tenant-gateway/services/audit"
	"github.com/upb/llm-tenant-gateway/services/tenant"
	"github.com/upb/llm-tenant-gateway/utils"
)

// defaultArchivePageSize bounds archive reads that name no limit
const defaultArchivePageSize = 100

// TenantSession is the part of tenant.Session the HTTP layer drives
type TenantSession interface {
	TenantID() string
	RateLimit() int
	BaseURL() string
	WebhookURL() string
	CreateUser(ctx context.Context, email, name string) *models.User
	GetUser(ctx context.Context, id string) (*models.User, bool)
	ListUsers(ctx context.Context) []*models.User
	DeleteUser(ctx context.Context, id string) bool
	Chat(ctx context.Context, message string, opts tenant.ChatOptions) (string, error)
	GetAuditLogs(filter models.AuditFilter) []*models.AuditLog
}

// AuditArchive reads back entries mirrored to durable storage
type AuditArchive interface {
	Query(ctx context.Context, tenantID string, filter models.AuditFilter, limit, offset int) ([]*models.AuditLog, error)
	GetStats() audit.Stats
}

// CreateUserRequest is the body of POST /tenant/users
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=200"`
}

// TenantChatRequest is the body of POST /tenant/chat
type TenantChatRequest struct {
	Message     string   `json:"message" validate:"required"`
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
}

// TenantChatResponse carries the provider's reply
type TenantChatResponse struct {
	Response string `json:"response"`
}

// TenantInfoResponse describes the configured tenant
type TenantInfoResponse struct {
	TenantID   string `json:"tenant_id"`
	RateLimit  int    `json:"rate_limit"`
	BaseURL    string `json:"base_url,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
	Archive    bool   `json:"archive_enabled"`
}

// ArchiveResponse is a page of archived audit entries
type ArchiveResponse struct {
	Entries []*models.AuditLog `json:"entries"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	Stats   audit.Stats        `json:"stats"`
}

// TenantHandler exposes the tenant session over HTTP
type TenantHandler struct {
	session TenantSession
	archive AuditArchive
	logger  *zap.Logger
}

// NewTenantHandler creates a new TenantHandler. archive may be nil.
func NewTenantHandler(session TenantSession, archive AuditArchive, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{
		session: session,
		archive: archive,
		logger:  logger,
	}
}

// HandleCreateUser handles POST /tenant/users
func (h *TenantHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user := h.session.CreateUser(r.Context(), req.Email, req.Name)
	_ = utils.WriteCreated(w, user)
}

// HandleListUsers handles GET /tenant/users
func (h *TenantHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.session.ListUsers(r.Context()))
}

// HandleGetUser handles GET /tenant/users/{id}
func (h *TenantHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.session.GetUser(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		HandleServiceError(w, services.ErrUserNotFound, h.logger)
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleDeleteUser handles DELETE /tenant/users/{id}
func (h *TenantHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.session.DeleteUser(r.Context(), chi.URLParam(r, "id")) {
		HandleServiceError(w, services.ErrUserNotFound, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleChat handles POST /tenant/chat. The caller named in X-Actor-ID is
// recorded as the actor of the chat entries.
func (h *TenantHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TenantChatRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	reply, err := h.session.Chat(ctx, req.Message, tenant.ChatOptions{
		ActorID:     middleware.GetActorIDFromContext(ctx),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		h.logger.Warn("tenant chat failed",
			zap.String("request_id", observability.RequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, TenantChatResponse{Response: reply})
}

// HandleAuditLogs handles GET /tenant/audit/logs
func (h *TenantHandler) HandleAuditLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, h.session.GetAuditLogs(filter))
}

// HandleArchive handles GET /tenant/audit/archive
func (h *TenantHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		HandleServiceError(w, services.ErrArchiveUnavailable, h.logger)
		return
	}

	filter, err := parseAuditFilter(r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	limit, err := utils.QueryInt(r, "limit", defaultArchivePageSize)
	if err != nil {
		HandleServiceError(w, services.NewDomainError(services.ErrorTypeValidation, err.Error(), nil), h.logger)
		return
	}
	offset, err := utils.QueryInt(r, "offset", 0)
	if err != nil {
		HandleServiceError(w, services.NewDomainError(services.ErrorTypeValidation, err.Error(), nil), h.logger)
		return
	}

	entries, err := h.archive.Query(r.Context(), h.session.TenantID(), filter, limit, offset)
	if err != nil {
		HandleServiceError(w, services.WrapInternal("failed to query audit archive", err), h.logger)
		return
	}

	_ = utils.WriteOK(w, ArchiveResponse{
		Entries: entries,
		Limit:   limit,
		Offset:  offset,
		Stats:   h.archive.GetStats(),
	})
}

// HandleInfo handles GET /tenant/info
func (h *TenantHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, TenantInfoResponse{
		TenantID:   h.session.TenantID(),
		RateLimit:  h.session.RateLimit(),
		BaseURL:    h.session.BaseURL(),
		WebhookURL: h.session.WebhookURL(),
		Archive:    h.archive != nil,
	})
}

func parseAuditFilter(r *http.Request) (models.AuditFilter, error) {
	q := r.URL.Query()
	filter := models.AuditFilter{
		UserID: q.Get("user_id"),
		Action: models.AuditAction(q.Get("action")),
	}

	var err error
	if filter.StartDate, err = utils.QueryTime(r, "start"); err != nil {
		return filter, invalidFilter("start", err)
	}
	if filter.EndDate, err = utils.QueryTime(r, "end"); err != nil {
		return filter, invalidFilter("end", err)
	}
	return filter, nil
}

func invalidFilter(param string, err error) error {
	return services.NewDomainError(services.ErrorTypeValidation, "invalid audit log filter", err).
		WithDetail(param, err.Error())
}
