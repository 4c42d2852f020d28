// Command enterprise-demo walks one tenant session through user management,
// a chat round trip and the resulting audit trail.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/app"
	"github.com/upb/llm-tenant-gateway/config"
	"github.com/upb/llm-tenant-gateway/internal/observability"
	"github.com/upb/llm-tenant-gateway/models"
	"github.com/upb/llm-tenant-gateway/services/tenant"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enterprise-demo: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "enterprise-demo: %v\n", err)
		os.Exit(1)
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Close(closeCtx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	if err := runDemo(ctx, os.Stdout, deps.Session); err != nil {
		logger.Error("demo failed", zap.Error(err))
	}
}

// Session is the part of a tenant session the demo drives
type Session interface {
	TenantID() string
	RateLimit() int
	CreateUser(ctx context.Context, email, name string) *models.User
	ListUsers(ctx context.Context) []*models.User
	GetUser(ctx context.Context, id string) (*models.User, bool)
	Chat(ctx context.Context, message string, opts tenant.ChatOptions) (string, error)
	GetAuditLogs(filter models.AuditFilter) []*models.AuditLog
}

func runDemo(ctx context.Context, out io.Writer, session Session) error {
	fmt.Fprintln(out, "=== Enterprise integration demo ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Tenant ID:  %s\n", session.TenantID())
	fmt.Fprintf(out, "Rate limit: %d requests/minute\n\n", session.RateLimit())

	fmt.Fprintln(out, "=== User management ===")
	john := session.CreateUser(ctx, "john@example.com", "John Doe")
	fmt.Fprintf(out, "Created user: %s <%s> (%s)\n", john.Name, john.Email, john.ID)
	jane := session.CreateUser(ctx, "jane@example.com", "Jane Smith")
	fmt.Fprintf(out, "Created user: %s <%s> (%s)\n", jane.Name, jane.Email, jane.ID)

	fmt.Fprintf(out, "User count: %d\n", len(session.ListUsers(ctx)))
	if u, ok := session.GetUser(ctx, john.ID); ok {
		fmt.Fprintf(out, "Looked up:  %s\n", u.Email)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Chat ===")
	reply, chatErr := session.Chat(ctx, "Summarize what an audit log is in one sentence.", tenant.ChatOptions{ActorID: john.ID})
	if chatErr != nil {
		fmt.Fprintf(out, "Chat failed: %v\n", chatErr)
	} else {
		fmt.Fprintf(out, "Assistant: %s\n", reply)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Audit log ===")
	logs := session.GetAuditLogs(models.AuditFilter{})
	fmt.Fprintf(out, "Entries: %d\n", len(logs))
	for _, entry := range logs {
		fmt.Fprintf(out, "- [%s] %s %s\n", entry.Action, entry.Timestamp.UTC().Format(time.RFC3339Nano), entry.UserID)
	}

	return chatErr
}
