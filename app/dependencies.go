package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/config"
	"github.com/upb/llm-tenant-gateway/internal/observability"
	"github.com/upb/llm-tenant-gateway/repositories"
	"github.com/upb/llm-tenant-gateway/repositories/postgres"
	"github.com/upb/llm-tenant-gateway/services/audit"
	"github.com/upb/llm-tenant-gateway/services/chatbot"
	"github.com/upb/llm-tenant-gateway/services/codeassist"
	"github.com/upb/llm-tenant-gateway/services/imagegen"
	"github.com/upb/llm-tenant-gateway/services/providers"
	"github.com/upb/llm-tenant-gateway/services/providers/gemini"
	"github.com/upb/llm-tenant-gateway/services/providers/openai"
	"github.com/upb/llm-tenant-gateway/services/tenant"
	"github.com/upb/llm-tenant-gateway/services/video"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.PrometheusMetrics // nil when metrics are disabled

	// Archive, present only when a database is configured
	DB           *postgres.DB
	RepoFactory  *postgres.RepositoryFactory
	Users        repositories.UserRepository
	AuditLogs    repositories.AuditRepository
	AuditService *audit.Service

	// Providers
	ProviderRegistry *providers.Registry
	Provider         providers.Provider

	// Services. Images and Videos are nil when the provider cannot serve them.
	Session       *tenant.Session
	ChatBot       *chatbot.Bot
	CodeAssistant *codeassist.Assistant
	Images        *imagegen.Generator
	Videos        *video.Creator
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewPrometheusMetrics()
	}

	if err := deps.initProviders(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if cfg.Database != nil {
		if err := deps.initDatabase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	} else {
		logger.Info("no database configured, audit entries stay in memory")
	}

	if err := deps.initServices(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("tenant_id", cfg.Tenant.ID),
		zap.String("provider", deps.Provider.Name()),
		zap.Bool("archive", deps.AuditService != nil))
	return deps, nil
}

// initProviders registers every provider with credentials and selects the
// configured one
func (d *Dependencies) initProviders(ctx context.Context, cfg *config.Config) error {
	registry := providers.NewRegistry()

	if cfg.Provider.APIKey != "" {
		adapter := openai.NewOpenAIAdapter(providers.ProviderConfig{
			APIKey:  cfg.Provider.APIKey,
			BaseURL: cfg.Provider.BaseURL,
			Timeout: cfg.Provider.Timeout,
		})
		if err := registry.RegisterProvider(adapter); err != nil {
			return err
		}
		d.Logger.Info("registered provider", zap.String("provider", adapter.Name()))
	}

	if cfg.Provider.GeminiAPIKey != "" {
		adapter, err := gemini.NewGeminiAdapter(ctx, cfg.Provider.GeminiAPIKey, cfg.Provider.GeminiModel)
		if err != nil {
			return err
		}
		if err := registry.RegisterProvider(adapter); err != nil {
			return err
		}
		d.Logger.Info("registered provider", zap.String("provider", adapter.Name()))
	}

	if err := registry.SetDefault(cfg.Provider.Name); err != nil {
		return fmt.Errorf("provider %q: %w", cfg.Provider.Name, err)
	}
	provider, err := registry.Default()
	if err != nil {
		return err
	}

	d.ProviderRegistry = registry
	d.Provider = provider
	return nil
}

// initDatabase opens the archive database and starts the audit worker pool
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(*cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}
	return d.useDatabase(ctx, factory, cfg.Audit)
}

// useDatabase wires repositories and the audit service on top of factory
func (d *Dependencies) useDatabase(ctx context.Context, factory *postgres.RepositoryFactory, cfg config.AuditConfig) error {
	if err := factory.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.RepoFactory = factory
	d.DB = factory.GetDB()
	d.Users = repos.Users
	d.AuditLogs = repos.AuditLogs

	d.AuditService = audit.NewService(repos.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.BufferSize,
		WorkerCount: cfg.Workers,
	})
	if err := d.AuditService.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	return nil
}

// initServices builds the tenant session and the sibling services
func (d *Dependencies) initServices(cfg *config.Config) error {
	tenantCfg := tenant.Config{
		TenantID:   cfg.Tenant.ID,
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		WebhookURL: cfg.Tenant.WebhookURL,
		RateLimit:  cfg.Tenant.RateLimit,
	}
	if cfg.Provider.Name == config.ProviderGemini {
		tenantCfg.APIKey = cfg.Provider.GeminiAPIKey
	} else if tenantCfg.BaseURL == "" {
		tenantCfg.BaseURL = openai.DefaultBaseURL
	}

	opts := []tenant.Option{tenant.WithLogger(d.Logger)}
	if d.Metrics != nil {
		opts = append(opts, tenant.WithMetrics(d.Metrics))
	}
	if d.AuditService != nil {
		opts = append(opts, tenant.WithAuditSink(d.AuditService))
	}
	if d.Users != nil {
		opts = append(opts, tenant.WithUserStore(d.Users))
	}

	session, err := tenant.NewSession(tenantCfg, d.Provider, opts...)
	if err != nil {
		return err
	}
	d.Session = session

	d.ChatBot = chatbot.New(d.Provider, chatbot.Options{Model: cfg.Provider.Model})
	d.CodeAssistant = codeassist.New(d.Provider, codeassist.Options{})

	if p, ok := d.Provider.(providers.ImageProvider); ok {
		images, err := imagegen.New(p, imagegen.Options{})
		if err != nil {
			return err
		}
		d.Images = images
	}
	if p, ok := d.Provider.(providers.VideoProvider); ok {
		d.Videos = video.New(p, video.Options{})
	}

	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain pending archive writes before the pool goes away
	if d.AuditService != nil {
		timeout := d.Config.Server.ShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.AuditService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
