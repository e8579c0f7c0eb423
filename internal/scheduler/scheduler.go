// Package scheduler runs the daemon's periodic jobs.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quantumlife/lifeos/internal/config"
	"github.com/quantumlife/lifeos/internal/logging"
)

// Scheduler runs registered jobs on their schedules
type Scheduler struct {
	jobs     map[string]*Job
	running  map[string]context.CancelFunc
	mu       sync.RWMutex
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	location *time.Location
	now      func() time.Time
}

// Config configures the scheduler
type Config struct {
	Timezone string // IANA name; empty or unknown means Local
}

// New creates a scheduler
func New(cfg Config) *Scheduler {
	loc := time.Local
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		} else {
			logging.Warn("Unknown timezone %q, using local time", cfg.Timezone)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:     make(map[string]*Job),
		running:  make(map[string]context.CancelFunc),
		ctx:      ctx,
		cancel:   cancel,
		location: loc,
		now:      time.Now,
	}
}

// Job is a registered unit of periodic work
type Job struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Schedule   Schedule      `json:"schedule"`
	Run        JobFunc       `json:"-"`
	Enabled    bool          `json:"enabled"`
	LastRun    *time.Time    `json:"last_run,omitempty"`
	NextRun    *time.Time    `json:"next_run,omitempty"`
	RunCount   int64         `json:"run_count"`
	ErrorCount int64         `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Timeout    time.Duration `json:"timeout"`
}

// JobFunc does the work of one run
type JobFunc func(ctx context.Context) error

// Kind of schedule
type Kind string

const (
	KindInterval Kind = "interval" // every Interval
	KindDaily    Kind = "daily"    // every day at At (HH:MM)
)

// Schedule says when a job runs
type Schedule struct {
	Kind     Kind          `json:"kind"`
	Interval time.Duration `json:"interval,omitempty"`
	At       string        `json:"at,omitempty"`
}

// Every returns an interval schedule
func Every(d time.Duration) Schedule {
	return Schedule{Kind: KindInterval, Interval: d}
}

// DailyAt returns a daily schedule for an HH:MM wall-clock time
func DailyAt(at string) Schedule {
	return Schedule{Kind: KindDaily, At: at}
}

func (sc Schedule) validate() error {
	switch sc.Kind {
	case KindInterval:
		if sc.Interval <= 0 {
			return fmt.Errorf("interval must be positive")
		}
	case KindDaily:
		if _, _, err := config.ParseClock(sc.At); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown schedule kind %q", sc.Kind)
	}
	return nil
}

// Register adds a job. Jobs registered after Start begin immediately.
func (s *Scheduler) Register(job *Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: run func is required", job.ID)
	}
	if err := job.Schedule.validate(); err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already registered", job.ID)
	}
	if job.Timeout == 0 {
		job.Timeout = time.Minute
	}
	job.Enabled = true
	next := s.nextRun(job.Schedule)
	job.NextRun = &next

	s.jobs[job.ID] = job
	if s.started {
		s.startJob(job)
	}
	return nil
}

// Unregister removes a job, stopping it if it is running
func (s *Scheduler) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.running[id]; ok {
		cancel()
		delete(s.running, id)
	}
	delete(s.jobs, id)
}

// Disable stops a job without removing it
func (s *Scheduler) Disable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	job.Enabled = false
	if cancel, ok := s.running[id]; ok {
		cancel()
		delete(s.running, id)
	}
	return nil
}

// Enable resumes a disabled job
func (s *Scheduler) Enable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	if job.Enabled {
		return nil
	}
	job.Enabled = true
	next := s.nextRun(job.Schedule)
	job.NextRun = &next
	if s.started {
		s.startJob(job)
	}
	return nil
}

// Start launches every enabled job
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true

	for _, job := range s.jobs {
		if job.Enabled {
			s.startJob(job)
		}
	}
	logging.Info("Scheduler started with %d jobs", len(s.jobs))
	return nil
}

// Stop cancels all jobs and waits for in-flight runs to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = make(map[string]context.CancelFunc)
	s.started = false
	s.mu.Unlock()

	// loops take the lock while finishing, so wait outside it
	s.wg.Wait()

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()
}

// startJob must be called with s.mu held
func (s *Scheduler) startJob(job *Job) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.running[job.ID] = cancel

	s.wg.Add(1)
	go s.loop(ctx, job)
}

func (s *Scheduler) loop(ctx context.Context, job *Job) {
	defer s.wg.Done()

	for {
		s.mu.RLock()
		wait := job.NextRun.Sub(s.now())
		s.mu.RUnlock()
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job *Job) {
	runCtx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	now := s.now()
	s.mu.Lock()
	job.LastRun = &now
	job.RunCount++
	s.mu.Unlock()

	err := job.Run(runCtx)

	s.mu.Lock()
	if err != nil {
		job.ErrorCount++
		job.LastError = err.Error()
	} else {
		job.LastError = ""
	}
	next := s.nextRun(job.Schedule)
	job.NextRun = &next
	s.mu.Unlock()

	if err != nil {
		logging.WithField("job", job.ID).Error("Job failed: %v", err)
	} else {
		logging.WithField("job", job.ID).Debug("Job done, next run at %s", next.Format(time.RFC3339))
	}
}

// nextRun returns the first time after now that the schedule fires
func (s *Scheduler) nextRun(sc Schedule) time.Time {
	now := s.now().In(s.location)

	switch sc.Kind {
	case KindInterval:
		return now.Add(sc.Interval)
	case KindDaily:
		hour, minute, err := config.ParseClock(sc.At)
		if err != nil {
			return now.Add(24 * time.Hour)
		}
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.location)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
	return now.Add(time.Hour)
}

// RunNow runs a job once in the background, outside its schedule
func (s *Scheduler) RunNow(id string) error {
	s.mu.RLock()
	job, ok := s.jobs[id]
	ctx := s.ctx
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx, job)
	}()
	return nil
}

// Job returns a snapshot of a job
func (s *Scheduler) Job(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Jobs returns snapshots of all jobs sorted by ID
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats summarizes the scheduler
type Stats struct {
	Started     bool   `json:"started"`
	TotalJobs   int    `json:"total_jobs"`
	EnabledJobs int    `json:"enabled_jobs"`
	RunningJobs int    `json:"running_jobs"`
	TotalRuns   int64  `json:"total_runs"`
	TotalErrors int64  `json:"total_errors"`
	Timezone    string `json:"timezone"`
}

// Stats returns counters across all jobs
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:     s.started,
		TotalJobs:   len(s.jobs),
		RunningJobs: len(s.running),
		Timezone:    s.location.String(),
	}
	for _, job := range s.jobs {
		if job.Enabled {
			stats.EnabledJobs++
		}
		stats.TotalRuns += job.RunCount
		stats.TotalErrors += job.ErrorCount
	}
	return stats
}
