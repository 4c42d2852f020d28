package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/llm-tenant-gateway/app"
	"github.com/upb/llm-tenant-gateway/handlers"
	"github.com/upb/llm-tenant-gateway/middleware"
	"github.com/upb/llm-tenant-gateway/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.ExtractActor)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout(deps)))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.ActorHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Typed nils must not reach the handlers as non-nil interfaces
	var (
		db      handlers.HealthChecker
		archive handlers.AuditArchive
		images  handlers.ImageGenerator
		videos  handlers.VideoCreator
	)
	if deps.DB != nil {
		db = deps.DB
	}
	if deps.AuditService != nil {
		archive = deps.AuditService
	}
	if deps.Images != nil {
		images = deps.Images
	}
	if deps.Videos != nil {
		videos = deps.Videos
	}

	health := handlers.NewHealthHandler(db, deps.Provider, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	tenantHandler := handlers.NewTenantHandler(deps.Session, archive, deps.Logger)
	chatbotHandler := handlers.NewChatBotHandler(deps.ChatBot, deps.Logger)
	codeHandler := handlers.NewCodeHandler(deps.CodeAssistant, deps.Logger)
	mediaHandler := handlers.NewMediaHandler(images, videos, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tenant", func(r chi.Router) {
			r.Get("/info", tenantHandler.HandleInfo)
			r.Post("/users", tenantHandler.HandleCreateUser)
			r.Get("/users", tenantHandler.HandleListUsers)
			r.Get("/users/{id}", tenantHandler.HandleGetUser)
			r.Delete("/users/{id}", tenantHandler.HandleDeleteUser)
			r.Post("/chat", tenantHandler.HandleChat)
			r.Get("/audit/logs", tenantHandler.HandleAuditLogs)
			r.Get("/audit/archive", tenantHandler.HandleArchive)
		})

		r.Route("/chatbot", func(r chi.Router) {
			r.Post("/messages", chatbotHandler.HandleMessage)
			r.Get("/history", chatbotHandler.HandleHistory)
			r.Delete("/history", chatbotHandler.HandleClear)
		})

		r.Post("/code/{operation}", codeHandler.HandleOperation)

		r.Post("/images", mediaHandler.HandleGenerateImage)
		r.Route("/videos", func(r chi.Router) {
			r.Post("/", mediaHandler.HandleCreateVideo)
			r.Get("/", mediaHandler.HandleListVideos)
			r.Get("/{id}", mediaHandler.HandleGetVideo)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

// requestTimeout bounds each request by the server write timeout
func requestTimeout(deps *app.Dependencies) time.Duration {
	if deps.Config.Server.WriteTimeout > 0 {
		return deps.Config.Server.WriteTimeout
	}
	return 60 * time.Second
}
