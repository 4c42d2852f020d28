package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/middleware"
	"github.com/upb/llm-tenant-gateway/models"
	"github.com/upb/llm-tenant-gateway/services/audit"
	"github.com/upb/llm-tenant-gateway/services/providers"
	"github.com/upb/llm-tenant-gateway/services/providers/providertest"
	"github.com/upb/llm-tenant-gateway/services/tenant"
)

type mockArchive struct{ mock.Mock }

func (m *mockArchive) Query(ctx context.Context, tenantID string, filter models.AuditFilter, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, tenantID, filter, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArchive) GetStats() audit.Stats {
	return m.Called().Get(0).(audit.Stats)
}

func tenantRouter(t *testing.T, provider providers.Provider, archive AuditArchive) (http.Handler, *tenant.Session) {
	t.Helper()
	session, err := tenant.NewSession(tenant.Config{
		TenantID:   "acme",
		APIKey:     "sk-test",
		WebhookURL: "https://hooks.acme.test/audit",
	}, provider)
	require.NoError(t, err)

	h := NewTenantHandler(session, archive, zap.NewNop())
	r := chi.NewRouter()
	r.Use(middleware.ExtractActor)
	r.Post("/tenant/users", h.HandleCreateUser)
	r.Get("/tenant/users", h.HandleListUsers)
	r.Get("/tenant/users/{id}", h.HandleGetUser)
	r.Delete("/tenant/users/{id}", h.HandleDeleteUser)
	r.Post("/tenant/chat", h.HandleChat)
	r.Get("/tenant/audit/logs", h.HandleAuditLogs)
	r.Get("/tenant/audit/archive", h.HandleArchive)
	r.Get("/tenant/info", h.HandleInfo)
	return r, session
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func TestTenantHandler_UserLifecycle(t *testing.T) {
	r, session := tenantRouter(t, providertest.New("mock"), nil)

	w := do(t, r, http.MethodPost, "/tenant/users", `{"email":"alice@acme.test","name":"Alice"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.User
	decodeData(t, w, &created)
	assert.Equal(t, "acme", created.TenantID)
	assert.Equal(t, "alice@acme.test", created.Email)
	assert.NotEmpty(t, created.ID)

	w = do(t, r, http.MethodGet, "/tenant/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var fetched models.User
	decodeData(t, w, &fetched)
	assert.Equal(t, created.ID, fetched.ID)

	w = do(t, r, http.MethodGet, "/tenant/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.User
	decodeData(t, w, &listed)
	assert.Len(t, listed, 1)

	w = do(t, r, http.MethodDelete, "/tenant/users/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodDelete, "/tenant/users/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/tenant/users/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	actions := make([]models.AuditAction, 0)
	for _, entry := range session.GetAuditLogs(models.AuditFilter{}) {
		actions = append(actions, entry.Action)
	}
	assert.Equal(t, []models.AuditAction{
		models.AuditActionUserCreate,
		models.AuditActionUserGet,
		models.AuditActionUserList,
		models.AuditActionUserDelete,
		models.AuditActionUserGet,
	}, actions)
}

func TestTenantHandler_CreateUserValidation(t *testing.T) {
	r, session := tenantRouter(t, providertest.New("mock"), nil)

	w := do(t, r, http.MethodPost, "/tenant/users", `{"email":"not-an-email","name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeErrorResponse(t, w)
	assert.Contains(t, resp.Details, "Email")
	assert.Contains(t, resp.Details, "Name")

	w = do(t, r, http.MethodPost, "/tenant/users", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, session.GetAuditLogs(models.AuditFilter{}))
}

func TestTenantHandler_Chat(t *testing.T) {
	provider := providertest.New("mock")
	provider.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req *providers.ChatRequest) bool {
		return req.Model == tenant.DefaultChatModel && *req.Temperature == 0 && req.MaxTokens == 64
	})).Return(providertest.Reply("Hi there"), nil)

	r, session := tenantRouter(t, provider, nil)

	w := do(t, r, http.MethodPost, "/tenant/chat", `{"message":"Hello","temperature":0,"max_tokens":64}`,
		middleware.ActorHeader, "user-7")
	require.Equal(t, http.StatusOK, w.Code)
	var resp TenantChatResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "Hi there", resp.Response)

	logs := session.GetAuditLogs(models.AuditFilter{UserID: "user-7"})
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionChatCreate, logs[0].Action)
	assert.Equal(t, models.AuditActionChatComplete, logs[1].Action)
}

func TestTenantHandler_ChatProviderFailure(t *testing.T) {
	provider := providertest.New("mock")
	provider.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(nil, providers.NewProviderError("mock", "server_error", "upstream down", 503, true, nil))

	r, session := tenantRouter(t, provider, nil)

	w := do(t, r, http.MethodPost, "/tenant/chat", `{"message":"Hello"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	logs := session.GetAuditLogs(models.AuditFilter{Action: models.AuditActionChatError})
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActorAnonymous, logs[0].UserID)
	provider.AssertNumberOfCalls(t, "ChatCompletion", 1)
}

func TestTenantHandler_AuditLogsFilter(t *testing.T) {
	r, session := tenantRouter(t, providertest.New("mock"), nil)
	ctx := context.Background()
	session.CreateUser(ctx, "a@acme.test", "A")
	session.ListUsers(ctx)

	w := do(t, r, http.MethodGet, "/tenant/audit/logs?action=user.list&user_id=system", "")
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.AuditLog
	decodeData(t, w, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionUserList, logs[0].Action)

	w = do(t, r, http.MethodGet, "/tenant/audit/logs?start=2000-01-01T00:00:00Z&end=2000-01-02T00:00:00Z", "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &logs)
	assert.Empty(t, logs)

	w = do(t, r, http.MethodGet, "/tenant/audit/logs?start=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantHandler_Archive(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		r, _ := tenantRouter(t, providertest.New("mock"), nil)
		w := do(t, r, http.MethodGet, "/tenant/audit/archive", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("pages through archive", func(t *testing.T) {
		archive := &mockArchive{}
		archive.On("Query", mock.Anything, "acme", models.AuditFilter{Action: models.AuditActionUserCreate}, 10, 20).
			Return([]*models.AuditLog{{ID: "01HX", TenantID: "acme", Action: models.AuditActionUserCreate}}, nil)
		archive.On("GetStats").Return(audit.Stats{Archived: 42, Started: true})

		r, _ := tenantRouter(t, providertest.New("mock"), archive)
		w := do(t, r, http.MethodGet, "/tenant/audit/archive?action=user.create&limit=10&offset=20", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp ArchiveResponse
		decodeData(t, w, &resp)
		require.Len(t, resp.Entries, 1)
		assert.Equal(t, "01HX", resp.Entries[0].ID)
		assert.Equal(t, uint64(42), resp.Stats.Archived)
		archive.AssertExpectations(t)
	})

	t.Run("query failure", func(t *testing.T) {
		archive := &mockArchive{}
		archive.On("Query", mock.Anything, "acme", mock.Anything, 100, 0).Return(nil, errors.New("connection reset"))

		r, _ := tenantRouter(t, providertest.New("mock"), archive)
		w := do(t, r, http.MethodGet, "/tenant/audit/archive", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		r, _ := tenantRouter(t, providertest.New("mock"), &mockArchive{})
		w := do(t, r, http.MethodGet, "/tenant/audit/archive?limit=-5", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTenantHandler_Info(t *testing.T) {
	r, _ := tenantRouter(t, providertest.New("mock"), nil)

	w := do(t, r, http.MethodGet, "/tenant/info", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info TenantInfoResponse
	decodeData(t, w, &info)
	assert.Equal(t, TenantInfoResponse{
		TenantID:   "acme",
		RateLimit:  tenant.DefaultRateLimit,
		WebhookURL: "https://hooks.acme.test/audit",
	}, info)
}
