package observability

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reference outcome label values.
const (
	OutcomeResolved = "resolved"
	OutcomeExisting = "existing"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

var (
	// ReferencesTotal counts references by outcome (resolved, existing, failed, skipped)
	ReferencesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nugetify_references_total",
			Help: "Total number of references processed by outcome",
		},
		[]string{"outcome"},
	)

	// PackagesAddedTotal counts ledger entries added
	PackagesAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nugetify_packages_added_total",
			Help: "Total number of package entries added to project ledgers",
		},
	)

	// ProjectsProcessedTotal counts projects by status
	ProjectsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nugetify_projects_processed_total",
			Help: "Total number of projects processed by status",
		},
		[]string{"status"}, // completed, skipped, failed
	)

	// SolutionProjectsPrunedTotal counts project blocks removed from solutions
	SolutionProjectsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nugetify_solution_projects_pruned_total",
			Help: "Total number of projects removed from solutions",
		},
	)

	// ResolutionDuration tracks assembly resolution duration in seconds
	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nugetify_resolution_duration_seconds",
			Help:    "Assembly resolution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"mode"},
	)

	// PackageCacheTotal counts local package listing lookups by result
	PackageCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nugetify_package_cache_total",
			Help: "Total number of local package listing cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)
)

// WriteMetricsFile writes every registered metric to path in the Prometheus
// text format, for collection by a node exporter textfile collector.
func WriteMetricsFile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

// GetCounterValue retrieves the current value of a counter metric with the given labels
// This is primarily intended for testing
func GetCounterValue(counter *prometheus.CounterVec, labels ...string) (float64, error) {
	metric, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0, err
	}

	var pb dto.Metric
	if err := metric.Write(&pb); err != nil {
		return 0, err
	}

	if pb.Counter != nil {
		return pb.Counter.GetValue(), nil
	}

	return 0, nil
}
