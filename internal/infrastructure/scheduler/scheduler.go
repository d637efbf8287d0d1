// Package scheduler runs the worker's periodic maintenance jobs:
// purging stale verification attempts and expired usage counters.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Description returns a human-readable description of the job.
	Description() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping or the job times out.
	Run(ctx context.Context) error
}

// Schedule defines when a job should run.
type Schedule interface {
	// Next returns the next time the job should run after the given time.
	Next(t time.Time) time.Time

	String() string
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
	Manual      bool
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNilJob                  = errors.New("job cannot be nil")
	ErrNilSchedule             = errors.New("schedule cannot be nil")
	ErrJobAlreadyExists        = errors.New("job already exists")
	ErrJobNotFound             = errors.New("job not found")
	ErrJobAlreadyRunning       = errors.New("job is already running")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler manages and executes scheduled jobs.
// A job never overlaps with itself.
type Scheduler struct {
	mu sync.RWMutex

	logger       *logger.Logger
	timezone     *time.Location
	tick         time.Duration
	jobTimeout   time.Duration
	slots        chan struct{}
	now          func() time.Time
	onComplete   func(JobResult)
	historyLimit int

	jobs      map[string]*scheduledJob
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
	history   []JobResult
}

// scheduledJob wraps a Job with scheduling state.
type scheduledJob struct {
	job       Job
	schedule  Schedule
	enabled   bool
	inFlight  bool
	lastRun   time.Time
	nextRun   time.Time
	runCount  int64
	failCount int64
	last      *JobResult
}

// Config contains configuration for the Scheduler.
type Config struct {
	Logger *logger.Logger

	// Timezone for schedule calculations (default: UTC).
	Timezone *time.Location

	// TickInterval is how often due jobs are checked (default: 1s).
	TickInterval time.Duration

	// JobTimeout bounds a single run. Zero means no timeout.
	JobTimeout time.Duration

	// MaxConcurrentJobs bounds parallel runs (default: 2).
	MaxConcurrentJobs int

	// HistoryLimit is the number of results kept (default: 100).
	HistoryLimit int

	// OnJobComplete is called after every run. Optional.
	OnJobComplete func(JobResult)

	// Now overrides the clock in tests.
	Now func() time.Time
}

// New creates a new Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 2
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		logger:       cfg.Logger.With(logger.Component("scheduler")),
		timezone:     cfg.Timezone,
		tick:         cfg.TickInterval,
		jobTimeout:   cfg.JobTimeout,
		slots:        make(chan struct{}, cfg.MaxConcurrentJobs),
		now:          cfg.Now,
		onComplete:   cfg.OnJobComplete,
		historyLimit: cfg.HistoryLimit,
		jobs:         make(map[string]*scheduledJob),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Register adds a job to the scheduler with the given schedule.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{
		job:      job,
		schedule: schedule,
		enabled:  true,
		nextRun:  schedule.Next(s.now().In(s.timezone)),
	}
	s.jobs[name] = sj

	s.logger.Info("job registered",
		logger.String("job", name),
		logger.String("schedule", schedule.String()),
		logger.Time("next_run", sj.nextRun),
	)

	return nil
}

// SetEnabled enables or disables a job by name.
func (s *Scheduler) SetEnabled(jobName string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, exists := s.jobs[jobName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	sj.enabled = enabled
	if enabled {
		sj.nextRun = sj.schedule.Next(s.now().In(s.timezone))
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.startedAt = s.now()
	count := len(s.jobs)
	s.mu.Unlock()

	s.logger.Info("scheduler started", logger.Int("jobs_count", count))

	s.wg.Add(1)
	go s.runLoop()

	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.logger.Info("scheduler stopped", logger.Duration("uptime", s.now().Sub(s.startedAt)))
	return nil
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER LOOP
// ══════════════════════════════════════════════════════════════════════════════

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue()
		}
	}
}

// dispatchDue claims due jobs under the lock so the next tick cannot start them twice.
func (s *Scheduler) dispatchDue() {
	now := s.now().In(s.timezone)

	s.mu.Lock()
	due := make([]*scheduledJob, 0)
	for _, sj := range s.jobs {
		if sj.enabled && !sj.inFlight && !sj.nextRun.IsZero() && !now.Before(sj.nextRun) {
			sj.inFlight = true
			sj.nextRun = sj.schedule.Next(now)
			due = append(due, sj)
		}
	}
	ctx := s.ctx
	s.mu.Unlock()

	for _, sj := range due {
		s.wg.Add(1)
		go func(sj *scheduledJob) {
			defer s.wg.Done()

			select {
			case s.slots <- struct{}{}:
				defer func() { <-s.slots }()
			case <-ctx.Done():
				s.release(sj)
				return
			}

			s.record(sj, s.execute(ctx, sj.job, false))
		}(sj)
	}
}

func (s *Scheduler) release(sj *scheduledJob) {
	s.mu.Lock()
	sj.inFlight = false
	s.mu.Unlock()
}

// execute runs a job with the configured timeout and logs the outcome.
func (s *Scheduler) execute(ctx context.Context, job Job, manual bool) JobResult {
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	name := job.Name()
	log := s.logger.With(logger.String("job", name), logger.Bool("manual", manual))
	log.Info("job started")

	startedAt := s.now()
	err := job.Run(ctx)
	completedAt := s.now()

	result := JobResult{
		JobName:     name,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Success:     err == nil,
		Error:       err,
		Manual:      manual,
	}

	if err != nil {
		log.Error("job failed", logger.Latency(result.Duration), logger.Err(err))
	} else {
		log.Info("job completed", logger.Latency(result.Duration))
	}

	if s.onComplete != nil {
		s.onComplete(result)
	}

	return result
}

func (s *Scheduler) record(sj *scheduledJob, result JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj.inFlight = false
	sj.lastRun = result.StartedAt
	sj.runCount++
	if !result.Success {
		sj.failCount++
	}
	sj.last = &result

	s.history = append(s.history, result)
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MANUAL EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// RunNow executes a job immediately, ignoring its schedule.
// Returns ErrJobAlreadyRunning when a scheduled run is in flight.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (JobResult, error) {
	s.mu.Lock()
	sj, exists := s.jobs[jobName]
	if !exists {
		s.mu.Unlock()
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	if sj.inFlight {
		s.mu.Unlock()
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobAlreadyRunning, jobName)
	}
	sj.inFlight = true
	s.mu.Unlock()

	result := s.execute(ctx, sj.job, true)
	s.record(sj, result)
	return result, result.Error
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS & INFO
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo contains information about a registered job.
type JobInfo struct {
	Name        string
	Description string
	Enabled     bool
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	RunCount    int64
	FailCount   int64
	LastResult  *JobResult
}

// ListJobs returns information about all registered jobs, sorted by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		infos = append(infos, JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Enabled:     sj.enabled,
			Schedule:    sj.schedule.String(),
			LastRun:     sj.lastRun,
			NextRun:     sj.nextRun,
			RunCount:    sj.runCount,
			FailCount:   sj.failCount,
			LastResult:  sj.last,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

// History returns up to limit most recent results, oldest first.
func (s *Scheduler) History(limit int) []JobResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]JobResult, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}
