package models

import (
	"encoding/json"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// AuditAction is the free-form action name recorded on an audit entry
type AuditAction string

const (
	AuditActionUserCreate   AuditAction = "user.create"
	AuditActionUserGet      AuditAction = "user.get"
	AuditActionUserList     AuditAction = "user.list"
	AuditActionUserDelete   AuditAction = "user.delete"
	AuditActionChatCreate   AuditAction = "chat.create"
	AuditActionChatComplete AuditAction = "chat.complete"
	AuditActionChatError    AuditAction = "chat.error"
)

const (
	// ActorSystem attributes an entry to the session itself
	ActorSystem = "system"
	// ActorAnonymous attributes a chat call that named no actor
	ActorAnonymous = "anonymous"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newAuditID returns a lexicographically sortable identifier.
// IDs minted in the same millisecond still sort in creation order.
func newAuditID(ts time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	// Timestamps before the epoch fall outside the ULID range
	ms := uint64(0)
	if ts.After(time.Unix(0, 0)) {
		ms = ulid.Timestamp(ts)
	}
	id, err := ulid.New(ms, entropy)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}

// AuditLog represents an append-only audit trail entry
type AuditLog struct {
	ID        string         `json:"id" db:"id"`
	TenantID  string         `json:"tenant_id" db:"tenant_id"`
	UserID    string         `json:"user_id" db:"user_id"` // actor, subject, "system" or "anonymous"
	Action    AuditAction    `json:"action" db:"action"`
	Timestamp time.Time      `json:"timestamp" db:"timestamp"`
	Details   map[string]any `json:"details,omitempty" db:"details"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance stamped at ts
func NewAuditLog(tenantID string, action AuditAction, userID string, ts time.Time) *AuditLog {
	return &AuditLog{
		ID:        newAuditID(ts),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    action,
		Timestamp: ts,
	}
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details map[string]any) *AuditLog {
	if len(details) == 0 {
		a.Details = nil
		return a
	}
	a.Details = make(map[string]any, len(details))
	for k, v := range details {
		a.Details[k] = v
	}
	return a
}

// DetailsJSON encodes the details for JSONB storage.
// A nil map encodes as SQL NULL.
func (a *AuditLog) DetailsJSON() ([]byte, error) {
	if a.Details == nil {
		return nil, nil
	}
	return json.Marshal(a.Details)
}

// Clone returns a copy whose details map is independent of the original
func (a *AuditLog) Clone() *AuditLog {
	if a == nil {
		return nil
	}
	c := *a
	if a.Details != nil {
		c.Details = make(map[string]any, len(a.Details))
		for k, v := range a.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// AuditFilter narrows an audit log query.
// Zero-valued fields do not constrain the result; set fields combine by conjunction.
type AuditFilter struct {
	UserID    string
	Action    AuditAction
	StartDate *time.Time
	EndDate   *time.Time
}

// Matches reports whether the entry satisfies every set predicate.
// StartDate and EndDate are inclusive.
func (f AuditFilter) Matches(log *AuditLog) bool {
	if f.UserID != "" && log.UserID != f.UserID {
		return false
	}
	if f.StartDate != nil && log.Timestamp.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && log.Timestamp.After(*f.EndDate) {
		return false
	}
	if f.Action != "" && log.Action != f.Action {
		return false
	}
	return true
}
