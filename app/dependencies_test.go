package app

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/upb/llm-tenant-gateway/config"
	"github.com/upb/llm-tenant-gateway/models"
	"github.com/upb/llm-tenant-gateway/repositories/postgres"
	"github.com/upb/llm-tenant-gateway/services/providers/openai"
	"github.com/upb/llm-tenant-gateway/services/providers/providertest"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Environment: "test",
		Provider: config.ProviderConfig{
			Name:    config.ProviderOpenAI,
			APIKey:  "sk-test",
			Timeout: 5 * time.Second,
		},
		Tenant: config.TenantConfig{
			ID:        "acme",
			RateLimit: 250,
		},
		Audit: config.AuditConfig{
			BufferSize: 16,
			Workers:    2,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:       "debug",
			MetricsEnabled: true,
		},
	}
	cfg.Server.ShutdownTimeout = 2 * time.Second
	return cfg
}

func TestNewDependencies(t *testing.T) {
	t.Run("in-memory with openai provider", func(t *testing.T) {
		ctx := context.Background()
		deps, err := NewDependencies(ctx, testConfig(), zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.Equal(t, "openai", deps.Provider.Name())
		assert.Equal(t, []string{"openai"}, deps.ProviderRegistry.ListProviders())
		assert.NotNil(t, deps.Metrics)
		assert.Nil(t, deps.DB)
		assert.Nil(t, deps.AuditService)

		require.NotNil(t, deps.Session)
		assert.Equal(t, "acme", deps.Session.TenantID())
		assert.Equal(t, 250, deps.Session.RateLimit())
		assert.Equal(t, openai.DefaultBaseURL, deps.Session.BaseURL())

		assert.NotNil(t, deps.ChatBot)
		assert.NotNil(t, deps.CodeAssistant)
		assert.NotNil(t, deps.Images)
		assert.NotNil(t, deps.Videos)

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("gemini provider has no media services", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider.Name = config.ProviderGemini
		cfg.Provider.GeminiAPIKey = "gm-test"
		cfg.Observability.MetricsEnabled = false

		deps, err := NewDependencies(context.Background(), cfg, zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, "gemini", deps.Provider.Name())
		assert.ElementsMatch(t, []string{"openai", "gemini"}, deps.ProviderRegistry.ListProviders())
		assert.Nil(t, deps.Metrics)
		assert.Nil(t, deps.Images)
		assert.Nil(t, deps.Videos)
		assert.Equal(t, "", deps.Session.BaseURL())
	})

	t.Run("selected provider without credentials", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider.Name = config.ProviderGemini

		deps, err := NewDependencies(context.Background(), cfg, zap.NewNop())
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "gemini")
	})
}

func TestDependencies_ArchiveMirrorsSession(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	logger := zaptest.NewLogger(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tenant_users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO tenant_users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	deps := &Dependencies{Config: cfg, Logger: logger, Provider: providertest.New("mock")}
	factory := postgres.NewRepositoryFactoryFromDB(postgres.Wrap(db, logger), logger)
	require.NoError(t, deps.useDatabase(ctx, factory, cfg.Audit))
	require.NoError(t, deps.initServices(cfg))

	user := deps.Session.CreateUser(ctx, "alice@acme.test", "Alice")
	require.NotNil(t, user)

	require.NoError(t, deps.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())

	stats := deps.AuditService.GetStats()
	assert.Equal(t, uint64(1), stats.Archived)

	logs := deps.Session.GetAuditLogs(models.AuditFilter{Action: models.AuditActionUserCreate})
	require.Len(t, logs, 1)
	assert.Equal(t, user.ID, logs[0].Details["userId"])
}
