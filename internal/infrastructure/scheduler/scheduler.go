// Package scheduler runs periodic background jobs of the gradebook service,
// such as keeping the standings cache warm.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of background work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. The context is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// Schedule decides when a job runs next.
type Schedule interface {
	Next(t time.Time) time.Time
	String() string
}

// JobResult describes one execution.
type JobResult struct {
	JobName   string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Success reports whether the run finished without error.
func (r JobResult) Success() bool { return r.Err == nil }

// Recorder observes job executions. *metrics.Metrics implements it.
type Recorder interface {
	JobRun(job string, success bool, d time.Duration)
}

var (
	ErrJobAlreadyExists = errors.New("job already registered")
	ErrJobNotFound      = errors.New("job not found")
	ErrJobBusy          = errors.New("job is already running")
	ErrAlreadyRunning   = errors.New("scheduler is already running")
	ErrNotRunning       = errors.New("scheduler is not running")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Options configures a Scheduler. Every field is optional.
type Options struct {
	Logger  *logger.Logger
	Metrics Recorder

	// Tick is how often due jobs are checked. Defaults to one second.
	Tick time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Scheduler runs registered jobs on their schedules. A job never overlaps
// with itself: a tick that finds it still running skips it.
type Scheduler struct {
	mu      sync.Mutex
	log     *logger.Logger
	metrics Recorder
	tick    time.Duration
	now     func() time.Time

	jobs    map[string]*scheduledJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type scheduledJob struct {
	job      Job
	schedule Schedule
	nextRun  time.Time
	busy     bool
	last     *JobResult
}

// New creates a stopped Scheduler.
func New(opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		log:     opts.Logger.With(logger.Component("scheduler")),
		metrics: opts.Metrics,
		tick:    opts.Tick,
		now:     opts.Now,
		jobs:    make(map[string]*scheduledJob),
	}
}

// Register adds a job. Its first run is one schedule step from now.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}
	sj := &scheduledJob{job: job, schedule: schedule, nextRun: schedule.Next(s.now())}
	s.jobs[name] = sj

	s.log.Info("job registered",
		logger.String("job", name),
		logger.String("schedule", schedule.String()),
		logger.Time("next_run", sj.nextRun),
	)
	return nil
}

// Jobs returns the registered job names in sorted order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LastResult returns the most recent result of a job.
func (s *Scheduler) LastResult(name string) (JobResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, ok := s.jobs[name]
	if !ok || sj.last == nil {
		return JobResult{}, false
	}
	return *sj.last, true
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins the scheduler loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Info("scheduler started", logger.Count(len(s.jobs)))
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue starts every job whose next run has passed.
func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	due := make([]*scheduledJob, 0, len(s.jobs))
	for _, sj := range s.jobs {
		if sj.busy || now.Before(sj.nextRun) {
			continue
		}
		sj.busy = true
		sj.nextRun = sj.schedule.Next(now)
		due = append(due, sj)
	}
	s.mu.Unlock()

	for _, sj := range due {
		s.wg.Add(1)
		go func(sj *scheduledJob) {
			defer s.wg.Done()
			s.execute(ctx, sj)
		}(sj)
	}
}

// RunNow executes a job immediately, outside its schedule. It fails with
// ErrJobNotFound for unknown names and ErrJobBusy while the job runs.
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if sj.busy {
		s.mu.Unlock()
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobBusy, name)
	}
	sj.busy = true
	s.mu.Unlock()

	return s.execute(ctx, sj), nil
}

func (s *Scheduler) execute(ctx context.Context, sj *scheduledJob) JobResult {
	name := sj.job.Name()
	started := s.now()

	err := sj.job.Run(ctx)
	result := JobResult{
		JobName:   name,
		StartedAt: started,
		Duration:  s.now().Sub(started),
		Err:       err,
	}

	s.mu.Lock()
	sj.busy = false
	sj.last = &result
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.JobRun(name, err == nil, result.Duration)
	}
	if err != nil {
		s.log.Error("job failed", logger.String("job", name), logger.Latency(result.Duration), logger.Err(err))
	} else {
		s.log.Debug("job completed", logger.String("job", name), logger.Latency(result.Duration))
	}
	return result
}
