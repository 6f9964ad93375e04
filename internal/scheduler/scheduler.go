// Package scheduler runs recurring jobs that never overlap with themselves.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"solana-kalshi-copier/internal/observability"
)

// JobFunc is one run of a recurring job.
type JobFunc func(ctx context.Context) error

// Job wraps a JobFunc with a skip-if-running guard: a run that is due while the
// previous one is still in progress is dropped, not queued.
type Job struct {
	name    string
	fn      JobFunc
	timeout time.Duration
	logger  *zap.Logger
	running atomic.Bool
}

// NewJob creates a guarded job. timeout > 0 bounds each run.
func NewJob(name string, fn JobFunc, timeout time.Duration, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{name: name, fn: fn, timeout: timeout, logger: logger.With(zap.String("job", name))}
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// Run executes the job unless a run is already in progress. It reports whether it ran.
func (j *Job) Run(ctx context.Context) bool {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Debug("already running, skipping")
		observability.RecordJobRun(j.name, "skipped")
		return false
	}
	defer j.running.Store(false)

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := j.fn(ctx); err != nil {
		j.logger.Warn("job failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		observability.RecordJobRun(j.name, "error")
		return true
	}
	j.logger.Debug("job finished", zap.Duration("took", time.Since(start)))
	observability.RecordJobRun(j.name, "ok")
	return true
}

// Scheduler runs jobs on fixed intervals.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context

	mu   sync.Mutex
	jobs map[string]*Job
}

// New creates a Scheduler. Job runs receive baseCtx.
func New(baseCtx context.Context, logger *zap.Logger) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger.Named("scheduler"),
		baseCtx: baseCtx,
		jobs:    make(map[string]*Job),
	}
}

// Every registers fn to run every interval.
func (s *Scheduler) Every(name string, interval time.Duration, fn JobFunc, timeout time.Duration) (*Job, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("job %s: interval must be positive", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return nil, fmt.Errorf("job %s already registered", name)
	}

	job := NewJob(name, fn, timeout, s.logger)
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		job.Run(s.baseCtx)
	}))
	s.jobs[name] = job
	s.logger.Info("job registered", zap.String("job", name), zap.Duration("interval", interval))
	return job, nil
}

// Trigger runs a registered job immediately, outside its schedule, honoring the
// overlap guard. It reports whether the job ran.
func (s *Scheduler) Trigger(name string) (bool, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("job %s not registered", name)
	}
	return job.Run(s.baseCtx), nil
}

// Start begins running registered jobs on their intervals. It does not block.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
