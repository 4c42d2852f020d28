package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"LLM_API_KEY": "sk-test",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Nil(t, cfg.Database)
				assert.Equal(t, ProviderOpenAI, cfg.Provider.Name)
				assert.Equal(t, 60*time.Second, cfg.Provider.Timeout)
				assert.Equal(t, "default", cfg.Tenant.ID)
				assert.Zero(t, cfg.Tenant.RateLimit)
				assert.Equal(t, 10000, cfg.Audit.BufferSize)
				assert.Equal(t, 5, cfg.Audit.Workers)
				assert.True(t, cfg.Observability.MetricsEnabled)
			},
		},
		{
			name: "tenant and provider overrides",
			envVars: map[string]string{
				"LLM_API_KEY":        "sk-test",
				"LLM_BASE_URL":       "http://localhost:9999/v1",
				"LLM_TIMEOUT":        "5s",
				"TENANT_ID":          "company-123",
				"TENANT_WEBHOOK_URL": "https://hooks.example.com/audit",
				"TENANT_RATE_LIMIT":  "250",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://localhost:9999/v1", cfg.Provider.BaseURL)
				assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
				assert.Equal(t, "company-123", cfg.Tenant.ID)
				assert.Equal(t, "https://hooks.example.com/audit", cfg.Tenant.WebhookURL)
				assert.Equal(t, 250, cfg.Tenant.RateLimit)
			},
		},
		{
			name: "gemini provider",
			envVars: map[string]string{
				"LLM_PROVIDER":   "Gemini",
				"GEMINI_API_KEY": "g-key",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ProviderGemini, cfg.Provider.Name)
				assert.Equal(t, "gemini-2.5-flash", cfg.Provider.GeminiModel)
			},
		},
		{
			name: "database from DATABASE_URL",
			envVars: map[string]string{
				"LLM_API_KEY":       "sk-test",
				"DATABASE_URL":      "postgres://u:p@db:5432/audit?sslmode=disable",
				"DB_MAX_OPEN_CONNS": "50",
			},
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Database)
				assert.Equal(t, "postgres://u:p@db:5432/audit?sslmode=disable", cfg.Database.DSN())
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
				assert.Equal(t, "host=db port=5432 database=audit", cfg.Database.LogString())
			},
		},
		{
			name: "database from DB_* vars",
			envVars: map[string]string{
				"LLM_API_KEY": "sk-test",
				"DB_HOST":     "localhost",
				"DB_USER":     "dev",
				"DB_NAME":     "audit",
			},
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Database)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"LLM_API_KEY": "sk-test",
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name:    "openai without api key",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "unknown provider",
			envVars: map[string]string{
				"LLM_PROVIDER": "bedrock",
				"LLM_API_KEY":  "sk-test",
			},
			wantErr: true,
		},
		{
			name: "DB_HOST without user",
			envVars: map[string]string{
				"LLM_API_KEY": "sk-test",
				"DB_HOST":     "localhost",
				"DB_NAME":     "audit",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Provider:      ProviderConfig{Name: ProviderOpenAI, APIKey: "sk"},
			Tenant:        TenantConfig{ID: "t1"},
			Audit:         AuditConfig{BufferSize: 10, Workers: 1},
			Observability: ObservabilityConfig{LogLevel: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing tenant", mutate: func(c *Config) { c.Tenant.ID = "" }, errMsg: "tenant ID is required"},
		{name: "gemini without key", mutate: func(c *Config) { c.Provider.Name = ProviderGemini }, errMsg: "GEMINI_API_KEY"},
		{name: "zero workers", mutate: func(c *Config) { c.Audit.Workers = 0 }, errMsg: "audit workers"},
		{name: "missing database name", mutate: func(c *Config) {
			c.Database = &DatabaseConfig{Host: "localhost", User: "u"}
		}, errMsg: "database name is required"},
		{name: "missing log level", mutate: func(c *Config) { c.Observability.LogLevel = "" }, errMsg: "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		want        bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
			assert.Equal(t, tt.environment == "development", cfg.IsDevelopment())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "testpass")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_DURATION", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}
