package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesAttempted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkshift_pages_attempted_total",
			Help: "Total number of pages dispatched to the transformation service",
		},
		[]string{"mode"},
	)

	pagesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkshift_pages_completed_total",
			Help: "Total number of pages that returned a transformed image",
		},
		[]string{"mode"},
	)

	pagesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkshift_pages_skipped_total",
			Help: "Total number of pages the service returned no image for",
		},
		[]string{"mode"},
	)

	pagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkshift_pages_failed_total",
			Help: "Total number of pages whose request or decode failed",
		},
		[]string{"mode"},
	)

	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkshift_batches_total",
			Help: "Total number of batches dispatched",
		},
		[]string{"mode"},
	)

	batchWidth = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inkshift_batch_width",
			Help:    "Number of pages per dispatched batch",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
		},
		[]string{"mode"},
	)

	pageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inkshift_page_duration_seconds",
			Help:    "Wall time per page request, build through response",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 25, 50, 100, 200},
		},
		[]string{"mode"},
	)
)
