package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"carrental/internal/model"
	"carrental/internal/repository"
)

const defaultJobTimeout = time.Minute

// CacheInvalidator drops a cached collection.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// JobRunner coordinates the scheduled jobs.
type JobRunner struct {
	store   repository.Store
	cars    CacheInvalidator
	log     zerolog.Logger
	timeout time.Duration
}

// NewJobRunner creates a new job runner.
func NewJobRunner(store repository.Store, cars CacheInvalidator, log zerolog.Logger) *JobRunner {
	return &JobRunner{
		store:   store,
		cars:    cars,
		log:     log.With().Str("component", "jobs").Logger(),
		timeout: defaultJobTimeout,
	}
}

// runWithRecovery wraps job execution with panic recovery.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			jr.log.Error().Str("job", jobName).Interface("panic", r).Msg("job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	start := time.Now()
	jr.log.Debug().Str("job", jobName).Msg("starting job")
	if err := jobFunc(ctx); err != nil {
		jr.log.Error().Err(err).Str("job", jobName).Msg("job failed")
		return
	}
	jr.log.Debug().Str("job", jobName).Dur("took", time.Since(start)).Msg("job completed")
}

// ReconcileCarAvailability is the cron entry point for ReconcileAvailability.
func (jr *JobRunner) ReconcileCarAvailability() {
	jr.runWithRecovery("ReconcileCarAvailability", func(ctx context.Context) error {
		_, err := jr.ReconcileAvailability(ctx)
		return err
	})
}

// ReconcileAvailability puts cars bound to an in-process rental under rental
// hold and releases the hold on cars that no longer have one. Cancelling a
// rental leaves the hold in place, so this is what eventually frees those
// cars. Cars taken out of service by staff carry no hold and are never freed
// here. It returns the number of cars whose flag changed.
func (jr *JobRunner) ReconcileAvailability(ctx context.Context) (int64, error) {
	var changed int64
	err := jr.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		busy, err := tx.Rentals().ListCarIDsWithStatus(ctx, model.RentStatusInProcess)
		if err != nil {
			return err
		}
		changed, err = tx.Cars().SyncAvailability(ctx, busy)
		return err
	})
	if err != nil {
		return 0, err
	}

	if changed > 0 {
		jr.cars.InvalidateCache(ctx)
		jr.log.Info().Int64("cars", changed).Msg("car availability reconciled")
	}
	return changed, nil
}
