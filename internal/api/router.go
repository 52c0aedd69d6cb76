package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/projectsync/internal/api/middleware"
	"github.com/ericfisherdev/projectsync/internal/auth"
	"github.com/ericfisherdev/projectsync/internal/metrics"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/services"
)

// Dependencies is everything the gateway serves from.
type Dependencies struct {
	Tasks         *repository.TaskRepository
	Projects      *repository.ProjectRepository
	Comments      *repository.CommentRepository
	Notifications *repository.NotificationRepository
	Chats         *repository.ChatRepository
	Users         *repository.UserRepository
	Files         *repository.FileRepository

	Auth   auth.Provider
	Health *services.HealthService

	// Metrics and Gatherer are optional; /metrics is only mounted with a
	// Gatherer.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// Limiter is optional.
	Limiter        middleware.Limiter
	Logger         *slog.Logger
	AllowedOrigins []string
}

// NewRouter builds the gin engine with the middleware chain and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.LoggingMiddleware(middleware.LoggingConfig{
			Logger:    deps.Logger,
			Metrics:   deps.Metrics,
			SkipPaths: []string{"/healthz/live", "/healthz/ready", "/metrics"},
		}),
		middleware.RecoveryMiddleware(deps.Logger),
		middleware.CORSMiddleware(deps.AllowedOrigins),
	)

	if deps.Health != nil {
		NewHealthHandler(deps.Health).RegisterRoutes(router)
	}
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// every /api route is authenticated, so the limiter keys by user
	api := router.Group("/api")
	api.Use(middleware.NewAuthMiddleware(deps.Auth).RequireAuth())
	if deps.Limiter != nil {
		api.Use(middleware.RateLimitMiddleware(deps.Limiter, deps.Logger))
	}

	NewTaskHandler(deps.Tasks, deps.Projects, deps.Comments).RegisterRoutes(api)
	NewProjectHandler(deps.Projects).RegisterRoutes(api)
	NewNotificationHandler(deps.Notifications).RegisterRoutes(api)
	NewChatHandler(deps.Chats, deps.Projects).RegisterRoutes(api)
	NewUserHandler(deps.Users).RegisterRoutes(api)
	NewFileHandler(deps.Files, deps.Tasks, deps.Projects).RegisterRoutes(api)
	NewStreamHandler(deps).RegisterRoutes(api)

	return router
}
