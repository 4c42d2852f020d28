package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// User tests
func TestNewUser(t *testing.T) {
	now := time.Now()
	user := NewUser("t1", "a@x.com", "A", now)

	_, err := uuid.Parse(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "t1", user.TenantID)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "A", user.Name)
	assert.Equal(t, now, user.CreatedAt)
}

func TestNewUser_DistinctIDsForSameEmail(t *testing.T) {
	a := NewUser("t1", "dup@x.com", "A", time.Now())
	b := NewUser("t1", "dup@x.com", "B", time.Now())

	assert.NotEqual(t, a.ID, b.ID)
}

func TestUser_Clone(t *testing.T) {
	user := NewUser("t1", "a@x.com", "A", time.Now())
	clone := user.Clone()
	clone.Name = "changed"

	assert.Equal(t, "A", user.Name)
	assert.Nil(t, (*User)(nil).Clone())
}

func TestUser_TableName(t *testing.T) {
	assert.Equal(t, "tenant_users", User{}.TableName())
}

// AuditLog tests
func TestNewAuditLog(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	log := NewAuditLog("t1", AuditActionUserCreate, ActorSystem, ts)

	assert.Len(t, log.ID, 26)
	assert.Equal(t, "t1", log.TenantID)
	assert.Equal(t, ActorSystem, log.UserID)
	assert.Equal(t, AuditActionUserCreate, log.Action)
	assert.Equal(t, ts, log.Timestamp)
	assert.Nil(t, log.Details)
}

func TestNewAuditLog_IDsSortInCreationOrder(t *testing.T) {
	ts := time.Now()
	var prev string
	for i := 0; i < 50; i++ {
		id := NewAuditLog("t1", AuditActionUserList, ActorSystem, ts).ID
		if prev != "" {
			assert.Less(t, prev, id)
		}
		prev = id
	}
}

func TestNewAuditLog_PreEpochTimestamps(t *testing.T) {
	for _, ts := range []time.Time{{}, time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)} {
		var entry *AuditLog
		require.NotPanics(t, func() { entry = NewAuditLog("t1", AuditActionUserList, ActorSystem, ts) })
		assert.Len(t, entry.ID, 26)
		assert.Equal(t, ts, entry.Timestamp)
	}
}

func TestAuditLog_WithDetails(t *testing.T) {
	details := map[string]any{"userId": "u1"}
	log := NewAuditLog("t1", AuditActionUserDelete, ActorSystem, time.Now()).WithDetails(details)

	details["userId"] = "mutated"
	assert.Equal(t, "u1", log.Details["userId"])

	log.WithDetails(nil)
	assert.Nil(t, log.Details)
}

func TestAuditLog_DetailsJSON(t *testing.T) {
	log := NewAuditLog("t1", AuditActionChatCreate, ActorAnonymous, time.Now())

	data, err := log.DetailsJSON()
	require.NoError(t, err)
	assert.Nil(t, data)

	log.WithDetails(map[string]any{"messageLength": 2})
	data, err = log.DetailsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"messageLength":2}`, string(data))
}

func TestAuditLog_Clone(t *testing.T) {
	log := NewAuditLog("t1", AuditActionChatError, "u1", time.Now()).
		WithDetails(map[string]any{"error": "boom"})

	clone := log.Clone()
	clone.Details["error"] = "changed"

	assert.Equal(t, "boom", log.Details["error"])
	assert.Equal(t, log.ID, clone.ID)
}

func TestAuditFilter_Matches(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	log := NewAuditLog("t1", AuditActionUserGet, "u1", base)
	before := base.Add(-time.Minute)
	after := base.Add(time.Minute)

	tests := []struct {
		name   string
		filter AuditFilter
		want   bool
	}{
		{name: "empty filter", filter: AuditFilter{}, want: true},
		{name: "user match", filter: AuditFilter{UserID: "u1"}, want: true},
		{name: "user mismatch", filter: AuditFilter{UserID: "u2"}, want: false},
		{name: "action match", filter: AuditFilter{Action: AuditActionUserGet}, want: true},
		{name: "action mismatch", filter: AuditFilter{Action: AuditActionUserList}, want: false},
		{name: "start inclusive", filter: AuditFilter{StartDate: &base}, want: true},
		{name: "end inclusive", filter: AuditFilter{EndDate: &base}, want: true},
		{name: "start after entry", filter: AuditFilter{StartDate: &after}, want: false},
		{name: "end before entry", filter: AuditFilter{EndDate: &before}, want: false},
		{name: "conjunction", filter: AuditFilter{UserID: "u1", Action: AuditActionUserList}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(log))
		})
	}
}
