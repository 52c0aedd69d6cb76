package services

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/projectsync/internal/remote"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	// HealthStatusDegraded means the component failed but the process can
	// keep serving from the local cache.
	HealthStatusDegraded HealthStatus = "degraded"
)

// HealthCheck is the result of one checker.
type HealthCheck struct {
	LastChecked time.Time     `json:"last_checked"`
	Name        string        `json:"name"`
	Message     string        `json:"message,omitempty"`
	Error       string        `json:"error,omitempty"`
	Status      HealthStatus  `json:"status"`
	Duration    time.Duration `json:"duration"`
}

// HealthResponse represents the overall health response.
type HealthResponse struct {
	Timestamp   time.Time      `json:"timestamp"`
	System      map[string]any `json:"system,omitempty"`
	Version     string         `json:"version"`
	Environment string         `json:"environment"`
	Status      HealthStatus   `json:"status"`
	Checks      []HealthCheck  `json:"checks"`
	Uptime      time.Duration  `json:"uptime"`
}

// HealthChecker checks one dependency.
type HealthChecker interface {
	Check(ctx context.Context) HealthCheck
	Name() string
	// Critical checkers gate readiness.
	Critical() bool
}

// HealthService runs the registered checkers.
type HealthService struct {
	startTime time.Time
	version   string
	env       string
	checkers  []HealthChecker
}

func NewHealthService(version, env string) *HealthService {
	return &HealthService{
		startTime: time.Now(),
		version:   version,
		env:       env,
	}
}

func (h *HealthService) RegisterChecker(checker HealthChecker) {
	h.checkers = append(h.checkers, checker)
}

// Check runs every checker. Any unhealthy critical checker makes the whole
// response unhealthy; other failures only degrade it.
func (h *HealthService) Check(ctx context.Context) HealthResponse {
	resp := h.run(ctx, h.checkers)
	resp.System = systemInfo()
	return resp
}

// Readiness runs only the critical checkers.
func (h *HealthService) Readiness(ctx context.Context) HealthResponse {
	critical := make([]HealthChecker, 0, len(h.checkers))
	for _, c := range h.checkers {
		if c.Critical() {
			critical = append(critical, c)
		}
	}
	return h.run(ctx, critical)
}

// Liveness reports that the process is running.
func (h *HealthService) Liveness() HealthResponse {
	return HealthResponse{
		Status:      HealthStatusHealthy,
		Timestamp:   time.Now(),
		Version:     h.version,
		Uptime:      time.Since(h.startTime),
		Environment: h.env,
		Checks:      []HealthCheck{},
	}
}

func (h *HealthService) run(ctx context.Context, checkers []HealthChecker) HealthResponse {
	checks := make([]HealthCheck, 0, len(checkers))
	overall := HealthStatusHealthy

	for _, checker := range checkers {
		start := time.Now()
		check := checker.Check(ctx)
		check.Name = checker.Name()
		check.Duration = time.Since(start)
		check.LastChecked = time.Now()
		checks = append(checks, check)

		switch {
		case check.Status == HealthStatusHealthy:
		case checker.Critical():
			overall = HealthStatusUnhealthy
		case overall == HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}

	return HealthResponse{
		Status:      overall,
		Timestamp:   time.Now(),
		Version:     h.version,
		Uptime:      time.Since(h.startTime),
		Checks:      checks,
		Environment: h.env,
	}
}

func systemInfo() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return map[string]any{
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": mem.HeapAlloc,
		"gc_cycles":  mem.NumGC,
	}
}

// FuncChecker adapts a ping function.
type FuncChecker struct {
	name     string
	critical bool
	timeout  time.Duration
	ping     func(ctx context.Context) error
}

func NewFuncChecker(name string, critical bool, timeout time.Duration, ping func(ctx context.Context) error) *FuncChecker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &FuncChecker{name: name, critical: critical, timeout: timeout, ping: ping}
}

func (f *FuncChecker) Name() string   { return f.name }
func (f *FuncChecker) Critical() bool { return f.critical }

func (f *FuncChecker) Check(ctx context.Context) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.ping(ctx); err != nil {
		status := HealthStatusDegraded
		if f.critical {
			status = HealthStatusUnhealthy
		}
		return HealthCheck{Status: status, Error: err.Error()}
	}
	return HealthCheck{Status: HealthStatusHealthy, Message: "OK"}
}

// RemoteStoreChecker probes the remote store with a count query. The remote
// is not critical: the cache keeps serving while it is unreachable.
func RemoteStoreChecker(store remote.Store, collection string) *FuncChecker {
	return NewFuncChecker("remote", false, 0, func(ctx context.Context) error {
		_, err := store.Count(ctx, collection, remote.NewQuery().WithLimit(1))
		if err != nil {
			return fmt.Errorf("remote store unreachable: %w", err)
		}
		return nil
	})
}

// CacheChecker probes the local cache database.
func CacheChecker(db interface{ Ping(context.Context) error }) *FuncChecker {
	return NewFuncChecker("cache", true, 0, db.Ping)
}

// RedisChecker probes the change feed's Redis.
func RedisChecker(client redis.UniversalClient) *FuncChecker {
	return NewFuncChecker("redis", false, 0, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
