// Package main runs the projectsync server: an embedded PocketBase remote
// store, the SQLite read cache, scheduled refresh jobs and the HTTP gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/projectsync/internal/api"
	"github.com/ericfisherdev/projectsync/internal/api/middleware"
	"github.com/ericfisherdev/projectsync/internal/auth"
	"github.com/ericfisherdev/projectsync/internal/blob"
	"github.com/ericfisherdev/projectsync/internal/cache"
	"github.com/ericfisherdev/projectsync/internal/config"
	"github.com/ericfisherdev/projectsync/internal/metrics"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/services"

	// Registers the sync collections with PocketBase.
	_ "github.com/ericfisherdev/projectsync/migrations"
	// PocketBase system migrations.
	_ "github.com/pocketbase/pocketbase/migrations"
)

const (
	version           = "0.1.0"
	shutdownTimeout   = 30 * time.Second
	requestsPerMinute = 120
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	if err := config.AutoLoadEnv(".", slog.Default()); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := openPocketBase(cfg.GetPBDataDir(), cfg.IsProduction())
	if err != nil {
		return err
	}
	defer func() { _ = app.ResetBootstrapState() }()

	hub := remote.NewHub()
	store := remote.NewPocketBaseStore(app, hub, logger.With("component", "remote"))
	defer store.Close()

	db, err := cache.Open(cfg.GetCachePath(), logger.With("component", "cache"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegistry(registry)

	health := services.NewHealthService(version, cfg.GetEnvironment())
	health.RegisterChecker(services.CacheChecker(db))
	health.RegisterChecker(services.RemoteStoreChecker(store, "projects"))

	var limiter middleware.Limiter = middleware.NewMemoryLimiter(requestsPerMinute)
	if cfg.GetRedisURL() != "" {
		client, err := openRedis(cfg.GetRedisURL())
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		feed := remote.NewRedisFeed(client, hub, remote.RedisFeedConfig{Logger: logger.With("component", "feed")})
		go func() {
			if err := feed.Run(ctx); err != nil {
				logger.Error("change feed stopped", "error", err)
			}
		}()
		limiter = middleware.NewRedisLimiter(client, "projectsync:ratelimit:", requestsPerMinute)
		health.RegisterChecker(services.RedisChecker(client))
	}

	blobs, err := openBlobStore(ctx, cfg.GetS3())
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenProvider(cfg.GetJWTSecret(), cfg.GetJWTExpiration())
	if err != nil {
		return err
	}

	repos, err := newRepositories(store, db, blobs, repository.Options{Logger: logger, Metrics: m})
	if err != nil {
		return err
	}

	scheduler, err := newScheduler(cfg, repos, logger, m)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := scheduler.Stop(stopCtx); err != nil {
			logger.Warn("sync jobs did not stop in time", "error", err)
		}
	}()

	deps := api.Dependencies{
		Tasks:          repos.tasks,
		Projects:       repos.projects,
		Comments:       repos.comments,
		Notifications:  repos.notifications,
		Chats:          repos.chats,
		Users:          repos.users,
		Files:          repos.files,
		Auth:           tokens,
		Health:         health,
		Metrics:        m,
		Limiter:        limiter,
		Logger:         logger,
		AllowedOrigins: allowedOrigins(),
	}
	if cfg.MetricsEnabled() {
		deps.Gatherer = registry
	}

	server := &http.Server{
		Addr:         ":" + cfg.GetServerPort(),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  cfg.GetIdleTimeout(),
	}
	return serve(ctx, server, logger)
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.GetLogLevel())); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", "projectsync", "version", version)
}

// openPocketBase bootstraps an embedded PocketBase app and applies the
// system and sync collection migrations.
func openPocketBase(dataDir string, production bool) (core.App, error) {
	app := core.NewBaseApp(core.BaseAppConfig{
		DataDir:          dataDir,
		IsDev:            !production,
		DataMaxOpenConns: core.DefaultDataMaxOpenConns,
		DataMaxIdleConns: core.DefaultDataMaxIdleConns,
		AuxMaxOpenConns:  core.DefaultAuxMaxOpenConns,
		AuxMaxIdleConns:  core.DefaultAuxMaxIdleConns,
		QueryTimeout:     core.DefaultQueryTimeout,
	})
	if err := app.Bootstrap(); err != nil {
		return nil, fmt.Errorf("failed to bootstrap PocketBase: %w", err)
	}
	if err := app.RunAllMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return app, nil
}

func openRedis(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// openBlobStore returns an S3 store when a bucket is configured and an
// in-process store otherwise.
func openBlobStore(ctx context.Context, cfg config.S3Config) (blob.Store, error) {
	if cfg.Bucket == "" {
		slog.Warn("no S3 bucket configured, attachments are kept in memory")
		return blob.NewMemoryStore(cfg.BaseURL), nil
	}
	return blob.NewS3Store(ctx, blob.S3Config{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
}

type repositories struct {
	tasks         *repository.TaskRepository
	projects      *repository.ProjectRepository
	comments      *repository.CommentRepository
	notifications *repository.NotificationRepository
	chats         *repository.ChatRepository
	users         *repository.UserRepository
	files         *repository.FileRepository
}

func newRepositories(store remote.Store, db *cache.DB, blobs blob.Store, opts repository.Options) (*repositories, error) {
	r := &repositories{
		projects: repository.NewProjectRepository(store, opts),
		chats:    repository.NewChatRepository(store, opts),
		files:    repository.NewFileRepository(store, blobs, opts),
	}

	tasks, err := repository.NewTaskRepository(store, db, opts)
	if err != nil {
		return nil, err
	}
	r.tasks = tasks.WithCounters(r.projects)

	if r.comments, err = repository.NewCommentRepository(store, db, opts); err != nil {
		return nil, err
	}
	if r.notifications, err = repository.NewNotificationRepository(store, db, opts); err != nil {
		return nil, err
	}
	if r.users, err = repository.NewUserRepository(store, db, opts); err != nil {
		return nil, err
	}
	return r, nil
}

// newScheduler registers the refresh jobs for the configured projects and
// users. The overdue refresh always runs.
func newScheduler(cfg *config.AppConfig, r *repositories, logger *slog.Logger, m *metrics.Metrics) (*services.SyncScheduler, error) {
	scheduler := services.NewSyncScheduler(services.SyncSchedulerConfig{Logger: logger, Metrics: m})
	spec := cfg.GetSyncSchedule()
	projects := cfg.GetSyncProjects()
	users := cfg.GetSyncUsers()

	jobs := map[string]services.SyncJob{
		"overdue-tasks": services.RefreshOverdueTasks(r.tasks),
	}
	if len(projects) > 0 {
		jobs["project-tasks"] = services.RefreshProjectTasks(r.tasks, projects...)
		jobs["project-counters"] = services.RecomputeProjectCounters(r.projects, projects...)
	}
	if len(users) > 0 {
		jobs["user-tasks"] = services.RefreshUserTasks(r.tasks, users...)
		jobs["notifications"] = services.RefreshNotifications(r.notifications, users...)
		jobs["users"] = services.RefreshUsers(r.users, users...)
	}

	for name, job := range jobs {
		if err := scheduler.AddJob(name, spec, job); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", name, err)
		}
	}
	return scheduler, nil
}

func allowedOrigins() []string {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if raw == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
