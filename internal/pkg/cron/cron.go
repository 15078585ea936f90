// Package cron runs named background jobs on fixed intervals, with manual
// triggering and status inspection for the admin API.
package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// JobStatus represents the last known state of a job.
type JobStatus string

const (
	StatusIdle    JobStatus = "idle"
	StatusRunning JobStatus = "running"
	StatusFulfill JobStatus = "fulfill"
	StatusReject  JobStatus = "reject"
)

// Job defines a scheduled background task.
type Job struct {
	Name        string
	Description string
	Interval    time.Duration
	Fn          func(ctx context.Context) error
}

// jobState carries the mutable runtime state beside the immutable Job.
type jobState struct {
	job Job

	mu        sync.Mutex
	status    JobStatus
	message   string
	lastRunAt *time.Time
	nextRunAt time.Time
}

// ListItem is the serializable representation of a job for the API.
type ListItem struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      JobStatus  `json:"status"`
	NextDate    *time.Time `json:"nextDate"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
}

// TaskResult is returned when polling a job's execution state.
type TaskResult struct {
	Status  JobStatus `json:"status"`
	Message string    `json:"message,omitempty"`
}

// Scheduler manages a collection of named jobs.
type Scheduler struct {
	mu   sync.RWMutex
	jobs map[string]*jobState
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{jobs: make(map[string]*jobState)}
}

// Register adds a job. Call before Start; registering the same name twice
// keeps the newest definition.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &jobState{
		job:       job,
		status:    StatusIdle,
		nextRunAt: time.Now().Add(job.Interval),
	}
}

// Start launches one timer goroutine per registered job.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.jobs {
		go s.loop(ctx, st)
	}
}

func (s *Scheduler) loop(ctx context.Context, st *jobState) {
	for {
		st.mu.Lock()
		wait := time.Until(st.nextRunAt)
		st.mu.Unlock()
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.execute(ctx, st)

		st.mu.Lock()
		st.nextRunAt = time.Now().Add(st.job.Interval)
		st.mu.Unlock()
	}
}

// execute runs the job once. A job that is already running is left alone,
// so the scheduled tick and a manual trigger never overlap.
func (s *Scheduler) execute(ctx context.Context, st *jobState) {
	st.mu.Lock()
	if st.status == StatusRunning {
		st.mu.Unlock()
		return
	}
	st.status = StatusRunning
	st.mu.Unlock()

	startedAt := time.Now()
	err := st.job.Fn(ctx)

	st.mu.Lock()
	st.lastRunAt = &startedAt
	if err != nil {
		st.status = StatusReject
		st.message = err.Error()
	} else {
		st.status = StatusFulfill
		st.message = ""
	}
	st.mu.Unlock()
}

// Run triggers a job by name without waiting for it to finish.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	st, err := s.lookup(name)
	if err != nil {
		return err
	}
	go s.execute(ctx, st)
	return nil
}

// GetTask returns the current execution state of a job.
func (s *Scheduler) GetTask(name string) (*TaskResult, error) {
	st, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return &TaskResult{Status: st.status, Message: st.message}, nil
}

// List returns every registered job ordered by name.
func (s *Scheduler) List() []ListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ListItem, 0, len(s.jobs))
	for _, st := range s.jobs {
		st.mu.Lock()
		next := st.nextRunAt
		items = append(items, ListItem{
			Name:        st.job.Name,
			Description: st.job.Description,
			Status:      st.status,
			NextDate:    &next,
			LastRunAt:   st.lastRunAt,
		})
		st.mu.Unlock()
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func (s *Scheduler) lookup(name string) (*jobState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("job %q not found", name)
	}
	return st, nil
}
