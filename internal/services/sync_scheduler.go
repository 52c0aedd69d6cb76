package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/metrics"
)

// SyncJob refreshes some slice of the local cache from the remote store.
type SyncJob func(ctx context.Context) error

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// JobTimeout bounds a single run (default: 1 minute)
	JobTimeout time.Duration
}

// SyncScheduler runs cache refresh jobs on cron schedules. A failing job is
// logged and counted; it never stops the scheduler or other jobs.
type SyncScheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu      sync.Mutex
	jobs    map[string]scheduledJob
	running bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

type scheduledJob struct {
	entry cron.EntryID
	spec  string
	run   SyncJob
}

// NewSyncScheduler creates a new sync scheduler. Schedules use the standard
// five-field cron syntax and descriptors such as "@every 5m".
func NewSyncScheduler(config SyncSchedulerConfig) *SyncScheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = time.Minute
	}
	logger := config.Logger.With("component", "sync_scheduler")
	ctx, cancel := context.WithCancel(context.Background())

	return &SyncScheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{logger}),
			cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
		),
		logger:  logger,
		metrics: config.Metrics,
		timeout: config.JobTimeout,
		jobs:    make(map[string]scheduledJob),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob registers a named job. Names are unique.
func (s *SyncScheduler) AddJob(name, spec string, job SyncJob) error {
	if name == "" || job == nil {
		return domain.NewValidationError("INVALID_JOB", "Job name and function are required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return domain.NewConflictError("JOB_EXISTS", fmt.Sprintf("Sync job %q is already registered", name))
	}

	entry, err := s.cron.AddFunc(spec, func() {
		_ = s.execute(s.ctx, name, job)
	})
	if err != nil {
		return domain.NewValidationError("INVALID_SCHEDULE", fmt.Sprintf("Invalid schedule %q: %v", spec, err), map[string]interface{}{
			"field": "spec",
			"value": spec,
		})
	}

	s.jobs[name] = scheduledJob{entry: entry, spec: spec, run: job}
	s.logger.Info("Registered sync job", "job", name, "spec", spec)
	return nil
}

// RemoveJob unregisters a job. It reports whether the job existed.
func (s *SyncScheduler) RemoveJob(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[name]
	if !ok {
		return false
	}
	s.cron.Remove(job.entry)
	delete(s.jobs, name)
	return true
}

// Jobs returns the registered job names in order.
func (s *SyncScheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow runs a registered job immediately and returns its error.
func (s *SyncScheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return domain.NewNotFoundError("JOB_NOT_FOUND", fmt.Sprintf("Sync job %q not found", name))
	}
	return s.execute(ctx, name, job.run)
}

func (s *SyncScheduler) execute(ctx context.Context, name string, job SyncJob) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	err := job(ctx)
	s.metrics.SyncJobRan(name, err)
	if err != nil {
		s.logger.Error("Sync job failed", "job", name, "duration", time.Since(started), "error", err)
		return err
	}
	s.logger.Debug("Sync job completed", "job", name, "duration", time.Since(started))
	return nil
}

// Start begins running jobs on their schedules. Starting twice is a no-op;
// a stopped scheduler cannot be restarted.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.stopped {
		s.logger.Warn("Sync scheduler cannot be started", "running", s.running, "stopped", s.stopped)
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("Started sync scheduler", "jobs", len(s.jobs))
}

// Stop stops scheduling, cancels running jobs and waits for them to return
// or for ctx to expire.
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	if !wasRunning {
		return nil
	}

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Stopped sync scheduler")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out", "error", ctx.Err())
		return ctx.Err()
	}
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
