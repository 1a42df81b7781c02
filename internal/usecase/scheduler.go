package usecase

import (
	"context"
	"time"

	"newsreview/internal/metrics"
	"newsreview/internal/ports"
)

// IngestScheduler wires the interval driver with the ingestion job.
type IngestScheduler struct {
	driver ports.Scheduler
	job    *Ingest
}

// NewIngestScheduler returns a helper to start/stop the recurring job.
func NewIngestScheduler(driver ports.Scheduler, job *Ingest) *IngestScheduler {
	return &IngestScheduler{driver: driver, job: job}
}

// Start registers the ingestion pass with the provided scheduler.
func (s *IngestScheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.job == nil {
		return nil
	}

	run := func(trigger time.Time) {
		if err := s.job.Run(ctx, trigger); err != nil {
			metrics.IngestRuns.WithLabelValues("error").Inc()
		}
	}

	return s.driver.Start(ctx, run)
}

// Stop gracefully tears down the underlying scheduler.
func (s *IngestScheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
