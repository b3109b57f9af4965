package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is a maintenance task that reports how many records it removed
type Job func(ctx context.Context) (int64, error)

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// NewScheduler initializes a scheduler
func NewScheduler(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log,
	}
}

// Add registers a named job on the given cron spec
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Run(name, job) }); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	s.log.Infof("Scheduled %s %s", name, spec)
	return nil
}

// Start runs the registered jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Run executes one job with a bounded timeout
func (s *Scheduler) Run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := job(ctx)
	if err != nil {
		s.log.Errorf("Job %s failed: %v", name, err)
		return
	}
	if n > 0 {
		s.log.Infof("Job %s removed %d records", name, n)
	}
}

// PurgeRevocations returns a job deleting session revocations past their expiry
func PurgeRevocations(purger interface {
	PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error)
}) Job {
	return func(ctx context.Context) (int64, error) {
		return purger.PurgeExpiredRevocations(ctx, time.Now())
	}
}

// EvictIdle returns a job dropping idle clients from a rate limiter
func EvictIdle(limiter interface{ Evict() int64 }) Job {
	return func(context.Context) (int64, error) {
		return limiter.Evict(), nil
	}
}
