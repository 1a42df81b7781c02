// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AssignmentsServed counts articles handed out to reviewers.
	AssignmentsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsreview_assignments_served_total",
		Help: "Articles assigned to reviewers.",
	})

	// ReviewsAccepted counts successfully persisted reviews.
	ReviewsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsreview_reviews_accepted_total",
		Help: "Reviews accepted and stored.",
	})

	// ReviewsRejected counts submissions turned away by validation.
	ReviewsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsreview_reviews_rejected_total",
		Help: "Review submissions rejected by validation.",
	})

	// ArticlesIngested counts articles stored by the feed ingestion job.
	ArticlesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsreview_articles_ingested_total",
		Help: "Articles stored from publisher feeds.",
	})

	// IngestRuns tracks ingestion cycles by outcome.
	IngestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsreview_ingest_runs_total",
		Help: "Completed ingestion cycles by outcome.",
	}, []string{"outcome"})
)
