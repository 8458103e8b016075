// Package scheduler drives the notification jobs on fixed intervals
// when no external cron is attached. Each job ticks independently; a
// run that errors is logged and the ticking continues.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidInterval = errors.New("scheduler: interval must be positive")
	ErrAlreadyStarted  = errors.New("scheduler: engine already started")
)

type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

type Engine struct {
	mu      sync.Mutex
	jobs    []Job
	logger  *slog.Logger
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	runs    uint64
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

func (e *Engine) Add(job Job) error {
	if job.Every <= 0 {
		return ErrInvalidInterval
	}
	if job.Name == "" || job.Run == nil {
		return errors.New("scheduler: job needs a name and a run func")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	e.jobs = append(e.jobs, job)
	return nil
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	for _, job := range e.jobs {
		e.wg.Add(1)
		go e.loop(job)
	}
}

// Stop halts all tick loops and waits for in-flight runs to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	e.wg.Wait()
}

// Runs reports the total completed job runs across all jobs.
func (e *Engine) Runs() uint64 {
	return atomic.LoadUint64(&e.runs)
}

func (e *Engine) loop(job Job) {
	defer e.wg.Done()

	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.runOnce(job)
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), job.Every)
	defer cancel()
	if err := job.Run(ctx); err != nil {
		e.logger.Error("scheduled job failed", "job", job.Name, "error", err)
	}
	atomic.AddUint64(&e.runs, 1)
}
