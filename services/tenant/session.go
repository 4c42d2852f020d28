// Package tenant implements the audit-logged multi-tenant session: a user
// directory and an append-only audit log in front of a completion provider.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf16"

	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/internal/observability"
	"github.com/upb/llm-tenant-gateway/models"
	"github.com/upb/llm-tenant-gateway/services/providers"
	"github.com/upb/llm-tenant-gateway/utils"
)

const (
	// DefaultChatModel is the model every Chat call uses
	DefaultChatModel = "gpt-3.5-turbo"

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
	DefaultRateLimit   = 100
)

// ErrMissingAPIKey is returned by NewSession when Config.APIKey is empty
var ErrMissingAPIKey = errors.New("tenant: API key is required")

// Config is fixed for the lifetime of a session
type Config struct {
	TenantID   string `validate:"required"`
	APIKey     string
	BaseURL    string `validate:"omitempty,url"`
	WebhookURL string `validate:"omitempty,url"`
	RateLimit  int    `validate:"gte=0"`
}

// ChatOptions adjusts a single Chat call. Nil pointers take the defaults.
type ChatOptions struct {
	ActorID     string
	Temperature *float64
	MaxTokens   *int
}

// AuditSink receives a copy of every appended audit entry
type AuditSink interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

// UserStore mirrors directory inserts and removals
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, tenantID, id string) error
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithClock replaces time.Now for entry and user timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithAuditSink mirrors audit entries into sink. The in-memory log stays
// authoritative; sink failures are logged and otherwise ignored.
func WithAuditSink(sink AuditSink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithUserStore mirrors directory changes into store
func WithUserStore(store UserStore) Option {
	return func(s *Session) { s.store = store }
}

// WithMetrics records chat and audit metrics
func WithMetrics(metrics observability.Metrics) Option {
	return func(s *Session) { s.metrics = metrics }
}

// Session owns one tenant's user directory and audit log
type Session struct {
	cfg      Config
	provider providers.Provider

	logger  *zap.Logger
	now     func() time.Time
	sink    AuditSink
	store   UserStore
	metrics observability.Metrics

	mu        sync.RWMutex
	users     map[string]*models.User
	userOrder []string
	logs      []*models.AuditLog

	// Store calls run outside mu but in the order tickets were issued under it
	mirrorMu   sync.Mutex
	mirrorCond *sync.Cond
	nextTicket uint64
	mirrorTurn uint64
}

// NewSession validates cfg and returns an empty session
func NewSession(cfg Config, provider providers.Provider, opts ...Option) (*Session, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := utils.ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid tenant config: %w", err)
	}
	if provider == nil {
		return nil, errors.New("tenant: completion provider is required")
	}

	s := &Session{
		cfg:      cfg,
		provider: provider,
		logger:   zap.NewNop(),
		now:      time.Now,
		metrics:  observability.NopMetrics{},
		users:    make(map[string]*models.User),
	}
	s.mirrorCond = sync.NewCond(&s.mirrorMu)
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("tenant_id", cfg.TenantID))

	return s, nil
}

// TenantID returns the configured tenant
func (s *Session) TenantID() string { return s.cfg.TenantID }

// RateLimit returns the stored limit, DefaultRateLimit when unset. It is not enforced.
func (s *Session) RateLimit() int {
	if s.cfg.RateLimit <= 0 {
		return DefaultRateLimit
	}
	return s.cfg.RateLimit
}

// WebhookURL returns the configured webhook. Nothing is ever posted to it.
func (s *Session) WebhookURL() string { return s.cfg.WebhookURL }

// BaseURL returns the configured endpoint override
func (s *Session) BaseURL() string { return s.cfg.BaseURL }

// CreateUser adds a user to the directory. Emails are not validated or
// deduplicated.
func (s *Session) CreateUser(ctx context.Context, email, name string) *models.User {
	s.mu.Lock()
	user := models.NewUser(s.cfg.TenantID, email, name, s.now())
	s.users[user.ID] = user
	s.userOrder = append(s.userOrder, user.ID)
	entry := s.appendLocked(models.AuditActionUserCreate, models.ActorSystem, map[string]any{
		"userId": user.ID,
		"email":  email,
	})
	ticket := s.ticketLocked()
	s.mu.Unlock()

	s.publish(ctx, entry)
	s.mirror(ticket, func(store UserStore) {
		if err := store.Create(ctx, user.Clone()); err != nil {
			s.logger.Warn("failed to mirror user", zap.String("user_id", user.ID), zap.Error(err))
		}
	})

	return user.Clone()
}

// GetUser looks a user up by id. The read is logged against id itself,
// whether or not the user exists.
func (s *Session) GetUser(ctx context.Context, id string) (*models.User, bool) {
	s.mu.Lock()
	entry := s.appendLocked(models.AuditActionUserGet, id, nil)
	user, ok := s.users[id]
	s.mu.Unlock()

	s.publish(ctx, entry)
	if !ok {
		return nil, false
	}
	return user.Clone(), true
}

// ListUsers returns every user in insertion order
func (s *Session) ListUsers(ctx context.Context) []*models.User {
	s.mu.Lock()
	users := make([]*models.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, s.users[id].Clone())
	}
	entry := s.appendLocked(models.AuditActionUserList, models.ActorSystem, nil)
	s.mu.Unlock()

	s.publish(ctx, entry)
	return users
}

// DeleteUser removes a user and reports whether it existed. Nothing is
// logged for an unknown id.
func (s *Session) DeleteUser(ctx context.Context, id string) bool {
	s.mu.Lock()
	if _, ok := s.users[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.users, id)
	for i, uid := range s.userOrder {
		if uid == id {
			s.userOrder = append(s.userOrder[:i], s.userOrder[i+1:]...)
			break
		}
	}
	entry := s.appendLocked(models.AuditActionUserDelete, models.ActorSystem, map[string]any{"userId": id})
	ticket := s.ticketLocked()
	s.mu.Unlock()

	s.publish(ctx, entry)
	s.mirror(ticket, func(store UserStore) {
		if err := store.Delete(ctx, s.cfg.TenantID, id); err != nil {
			s.logger.Warn("failed to mirror user removal", zap.String("user_id", id), zap.Error(err))
		}
	})

	return true
}

// Chat sends message to the provider as a single-message conversation.
// Only lengths are logged, never content. A provider error is logged as
// chat.error and returned unchanged.
func (s *Session) Chat(ctx context.Context, message string, opts ChatOptions) (string, error) {
	actor := opts.ActorID
	if actor == "" {
		actor = models.ActorAnonymous
	}

	s.mu.Lock()
	created := s.appendLocked(models.AuditActionChatCreate, actor, map[string]any{
		"messageLength": textLength(message),
	})
	s.mu.Unlock()
	s.publish(ctx, created)

	req := &providers.ChatRequest{
		Model:       DefaultChatModel,
		Messages:    []providers.Message{{Role: providers.RoleUser, Content: message}},
		Temperature: providers.Float64(DefaultTemperature),
		MaxTokens:   DefaultMaxTokens,
	}
	if opts.Temperature != nil {
		req.Temperature = providers.Float64(*opts.Temperature)
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}

	labels := observability.RequestLabels{
		TenantID: s.cfg.TenantID,
		Model:    DefaultChatModel,
		Provider: s.provider.Name(),
	}

	start := time.Now()
	resp, err := s.provider.ChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		s.mu.Lock()
		failed := s.appendLocked(models.AuditActionChatError, actor, map[string]any{"error": err.Error()})
		s.mu.Unlock()
		s.publish(ctx, failed)

		labels.Status = "error"
		s.metrics.RecordRequest(ctx, labels)
		s.metrics.RecordLatency(ctx, elapsed, labels)
		observability.LoggerFromContext(ctx, s.logger).Warn("chat completion failed",
			zap.String("actor", actor),
			zap.Duration("latency", elapsed),
			zap.Error(err))
		return "", err
	}

	content := resp.Content()

	s.mu.Lock()
	completed := s.appendLocked(models.AuditActionChatComplete, actor, map[string]any{
		"responseLength": textLength(content),
	})
	s.mu.Unlock()
	s.publish(ctx, completed)

	labels.Status = "ok"
	s.metrics.RecordRequest(ctx, labels)
	s.metrics.RecordLatency(ctx, elapsed, labels)
	s.metrics.RecordTokens(ctx, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, labels)

	return content, nil
}

// GetAuditLogs returns copies of the entries matching filter in insertion order
func (s *Session) GetAuditLogs(filter models.AuditFilter) []*models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AuditLog, 0, len(s.logs))
	for _, entry := range s.logs {
		if filter.Matches(entry) {
			out = append(out, entry.Clone())
		}
	}
	return out
}

// appendLocked records an entry and returns a copy for publishing.
// Callers must hold s.mu for writing.
func (s *Session) appendLocked(action models.AuditAction, userID string, details map[string]any) *models.AuditLog {
	entry := models.NewAuditLog(s.cfg.TenantID, action, userID, s.now()).WithDetails(details)
	s.logs = append(s.logs, entry)
	return entry.Clone()
}

// ticketLocked reserves the next slot in the mirror order.
// Callers must hold s.mu for writing.
func (s *Session) ticketLocked() uint64 {
	t := s.nextTicket
	s.nextTicket++
	return t
}

// mirror waits for ticket's turn, then applies fn to the user store
func (s *Session) mirror(ticket uint64, fn func(UserStore)) {
	s.mirrorMu.Lock()
	for s.mirrorTurn != ticket {
		s.mirrorCond.Wait()
	}
	s.mirrorMu.Unlock()

	if s.store != nil {
		fn(s.store)
	}

	s.mirrorMu.Lock()
	s.mirrorTurn++
	s.mirrorCond.Broadcast()
	s.mirrorMu.Unlock()
}

// publish fans an appended entry out to the logger, metrics and sink
func (s *Session) publish(ctx context.Context, entry *models.AuditLog) {
	observability.LoggerFromContext(ctx, s.logger).Debug("audit entry appended",
		zap.String("id", entry.ID),
		zap.String("action", string(entry.Action)),
		zap.String("user_id", entry.UserID))

	s.metrics.RecordAuditEntry(ctx, s.cfg.TenantID, string(entry.Action))

	if s.sink == nil {
		return
	}
	if err := s.sink.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to archive audit entry",
			zap.String("id", entry.ID),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
}

// textLength counts UTF-16 code units, so characters outside the Basic
// Multilingual Plane count twice.
func textLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}
