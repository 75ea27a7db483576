package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"incident-map/pkg/logger"
)

// Task is a scheduled unit of work. The context is cancelled when the scheduler stops.
type Task func(ctx context.Context) error

type JobScheduler interface {
	Start()
	Stop()
	AddJob(id, cronExpr string, task Task) error
	RemoveJob(id string) error
	GetJob(id string) (*JobInfo, bool)
	ListJobs() map[string]*JobInfo
	IsRunning() bool
}

type JobInfo struct {
	ID        string
	CronExpr  string
	LastRun   *time.Time
	NextRun   *time.Time
	LastError string
	Runs      int
}

type GocronScheduler struct {
	scheduler *gocron.Scheduler
	jobs      map[string]*jobEntry
	mu        sync.RWMutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
}

type jobEntry struct {
	info JobInfo
	job  *gocron.Job
}

func NewJobScheduler() *GocronScheduler {
	s := gocron.NewScheduler(time.UTC)
	// A pass that overruns its interval must not overlap with the next one.
	s.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &GocronScheduler{
		scheduler: s,
		jobs:      make(map[string]*jobEntry),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *GocronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logger.SchedulerWarn("start", "Scheduler is already running", nil)
		return
	}

	s.scheduler.StartAsync()
	s.running = true
	logger.Scheduler("started", "Job scheduler started", map[string]interface{}{"jobs": len(s.jobs)})
}

func (s *GocronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.scheduler.Stop()
	s.running = false
	logger.Scheduler("stopped", "Job scheduler stopped", nil)
}

func (s *GocronScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *GocronScheduler) AddJob(id, cronExpr string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job with ID %s already exists", id)
	}

	job, err := s.scheduler.Cron(cronExpr).Do(func() {
		s.run(id, task)
	})
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	nextRun := job.NextRun()
	s.jobs[id] = &jobEntry{
		info: JobInfo{ID: id, CronExpr: cronExpr, NextRun: &nextRun},
		job:  job,
	}

	logger.Scheduler("job_added", "Job added", map[string]interface{}{"job_id": id, "cron_expr": cronExpr, "next_run": nextRun.Format(time.RFC3339)})
	return nil
}

func (s *GocronScheduler) run(id string, task Task) {
	start := time.Now()
	logger.Scheduler("job_executing", "Executing job", map[string]interface{}{"job_id": id})

	err := task(s.ctx)

	s.mu.Lock()
	if entry, ok := s.jobs[id]; ok {
		entry.info.LastRun = &start
		entry.info.Runs++
		entry.info.LastError = ""
		if err != nil {
			entry.info.LastError = err.Error()
		}
		next := entry.job.NextRun()
		entry.info.NextRun = &next
	}
	s.mu.Unlock()

	if err != nil {
		logger.SchedulerError("job_failed", "Job failed", err, map[string]interface{}{"job_id": id, "duration_ms": time.Since(start).Milliseconds()})
		return
	}
	logger.Scheduler("job_done", "Job finished", map[string]interface{}{"job_id": id, "duration_ms": time.Since(start).Milliseconds()})
}

func (s *GocronScheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job with ID %s not found", id)
	}

	s.scheduler.RemoveByReference(entry.job)
	delete(s.jobs, id)
	logger.Scheduler("job_removed", "Job removed", map[string]interface{}{"job_id": id})
	return nil
}

func (s *GocronScheduler) GetJob(id string) (*JobInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.jobs[id]
	if !exists {
		return nil, false
	}
	return entry.snapshot(), true
}

func (s *GocronScheduler) ListJobs() map[string]*JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make(map[string]*JobInfo, len(s.jobs))
	for id, entry := range s.jobs {
		jobs[id] = entry.snapshot()
	}
	return jobs
}

// snapshot copies the entry so callers never share time pointers with the scheduler.
func (e *jobEntry) snapshot() *JobInfo {
	info := e.info
	if e.info.LastRun != nil {
		lastRun := *e.info.LastRun
		info.LastRun = &lastRun
	}
	nextRun := e.job.NextRun()
	info.NextRun = &nextRun
	return &info
}

// ValidateCronExpression reports whether gocron accepts cronExpr.
func ValidateCronExpression(cronExpr string) error {
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Cron(cronExpr).Do(func() {}); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
