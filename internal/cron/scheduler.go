package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrJobBusy is returned by RunNow while the job is already running.
	ErrJobBusy = errors.New("cron: job is already running")

	// ErrUnknownJob is returned by RunNow and Next for unregistered names.
	ErrUnknownJob = errors.New("cron: unknown job")
)

type entry struct {
	job  Job
	lock sync.Mutex
	id   cron.EntryID
}

// Scheduler runs jobs on their schedules. A job never overlaps with
// itself: a tick that finds the previous run still going is skipped.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]*entry
	order   []string
	loc     *time.Location
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler evaluating schedules in loc
// (time.Local when nil).
func NewScheduler(logger *slog.Logger, loc *time.Location) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		entries: make(map[string]*entry),
		loc:     loc,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterJob adds a job. It must be called before Start.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	if _, err := ParseSchedule(j.Schedule()); err != nil {
		return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
	}
	s.entries[name] = &entry{job: j}
	s.order = append(s.order, name)
	return nil
}

// Replace swaps the whole job set. On a running scheduler the old entries
// are removed and the new ones scheduled at once; runs in progress finish
// undisturbed. Nothing changes when a job is invalid.
func (s *Scheduler) Replace(jobs []Job) error {
	entries := make(map[string]*entry, len(jobs))
	order := make([]string, 0, len(jobs))
	for _, j := range jobs {
		name := j.Name()
		if _, exists := entries[name]; exists {
			return fmt.Errorf("cron: duplicate job name %q", name)
		}
		if _, err := ParseSchedule(j.Schedule()); err != nil {
			return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
		}
		entries[name] = &entry{job: j}
		order = append(order, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		for _, e := range s.entries {
			s.cron.Remove(e.id)
		}
		for _, name := range order {
			if err := s.schedule(entries[name]); err != nil {
				return err
			}
		}
	}
	s.entries = entries
	s.order = order
	s.logger.Info("cron: jobs replaced", "jobs", len(order))
	return nil
}

// schedule adds e to the running cron. s.mu must be held.
func (s *Scheduler) schedule(e *entry) error {
	id, err := s.cron.AddFunc(e.job.Schedule(), func() { _ = s.run(e) })
	if err != nil {
		return fmt.Errorf("cron: scheduling job %q: %w", e.job.Name(), err)
	}
	e.id = id
	return nil
}

// Start schedules every registered job.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron = cron.New(cron.WithParser(parser), cron.WithLocation(s.loc))
	for _, name := range s.order {
		if err := s.schedule(s.entries[name]); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.order), "location", s.loc.String())
	return nil
}

// RunNow runs a job immediately, outside its schedule, and returns its
// error. It shares the overlap guard with scheduled runs.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return s.run(e)
}

func (s *Scheduler) run(e *entry) error {
	name := e.job.Name()
	if !e.lock.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", name)
		return ErrJobBusy
	}
	defer e.lock.Unlock()

	start := time.Now()
	if err := e.job.Run(s.ctx); err != nil {
		s.logger.Error("cron: job failed", "job", name, "error", err)
		return err
	}
	s.logger.Debug("cron: job completed", "job", name, "elapsed", time.Since(start))
	return nil
}

// Next returns the next scheduled run of a job, or the zero time before
// Start.
func (s *Scheduler) Next(name string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if s.cron == nil {
		return time.Time{}, nil
	}
	return s.cron.Entry(e.id).Next, nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()

	s.cancel()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		s.logger.Info("cron: scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: waiting for running jobs: %w", ctx.Err())
	}
}
