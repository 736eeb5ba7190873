package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler manages cron job scheduling.
type Scheduler struct {
	cron *cron.Cron
	jobs *JobRunner
	log  zerolog.Logger
}

// NewScheduler creates a scheduler and registers the jobs of jobRunner.
// reconcileSpec is a six-field cron expression (seconds first).
func NewScheduler(jobRunner *JobRunner, reconcileSpec string, log zerolog.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
		log:  log,
	}

	if _, err := s.cron.AddFunc(reconcileSpec, s.jobs.ReconcileCarAvailability); err != nil {
		return nil, fmt.Errorf("register ReconcileCarAvailability %q: %w", reconcileSpec, err)
	}
	return s, nil
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("cron scheduler started")
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("cron scheduler stopped")
}
