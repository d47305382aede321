// Package metrics exposes the Prometheus collectors shared across domains.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsAccepted counts spreadsheet rows projected into transactions.
	RowsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grana_ingest_rows_accepted_total",
		Help: "Spreadsheet rows accepted by the row projector.",
	})

	// RowsDropped counts rows rejected by the completeness policy.
	RowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grana_ingest_rows_dropped_total",
		Help: "Spreadsheet rows dropped by the row projector.",
	})

	// IngestFailures counts sheet-level structural failures by reason.
	IngestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grana_ingest_failures_total",
		Help: "Ingestions aborted before producing transactions.",
	}, []string{"reason"})

	// ClassificationResults counts categorization outcomes by source.
	ClassificationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grana_classification_results_total",
		Help: "Categorization outcomes (cache, rules, remote, failed).",
	}, []string{"outcome"})

	// ClassifierRetries counts retried classification attempts by reason.
	ClassifierRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grana_classifier_retries_total",
		Help: "Classification attempts retried, by failure reason.",
	}, []string{"reason"})
)
