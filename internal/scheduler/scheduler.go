// Package scheduler runs periodic jobs such as the hourly incremental
// populate on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"energy-platform/pkg/logging"
)

// Job is one unit of scheduled work. now is the scheduled fire time.
type Job func(ctx context.Context, now time.Time) error

// Scheduler wraps cron with structured logging and overlap protection
type Scheduler struct {
	cron   *cron.Cron
	logger *logging.StructuredLogger
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]Job
}

// New creates a scheduler evaluating specs in loc. A run that is still
// going when its next tick fires is skipped.
func New(loc *time.Location, logger *logging.StructuredLogger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]Job),
	}
}

// Add registers job under name with a standard five-field spec or a
// descriptor such as "@every 1m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", spec, name, err)
	}
	s.jobs[name] = job

	s.logger.Info(context.Background(), "[SCHEDULER_ADD] Job registered", logging.Fields{
		"job":  name,
		"spec": spec,
	})
	return nil
}

// RunNow executes a registered job synchronously
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) error {
	startTime := time.Now()
	ctx := logging.WithRequestID(s.ctx, fmt.Sprintf("cron-%s-%d", name, startTime.Unix()))

	err := job(ctx, startTime)
	fields := logging.Fields{
		"job":         name,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}
	if err != nil {
		s.logger.Error(ctx, "[SCHEDULER_JOB_ERROR] Job failed", fields, err)
		return err
	}
	s.logger.Info(ctx, "[SCHEDULER_JOB_COMPLETE] Job completed", fields)
	return nil
}

// Start begins firing jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels the context handed to running jobs and
// waits for them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger adapts StructuredLogger to cron.Logger
type cronLogger struct {
	logger *logging.StructuredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(context.Background(), "[CRON] "+msg, kvFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(context.Background(), "[CRON_ERROR] "+msg, kvFields(keysAndValues), err)
}

func kvFields(keysAndValues []interface{}) logging.Fields {
	fields := logging.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
