package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	migrator = "migrator"

	// Migration metrics
	migrationsTotal          = "migrations_total"
	migrationDurationSeconds = "migration_duration_seconds"

	// Estimation metrics
	estimatesTotal = "estimates_total"

	// Labels
	migrationStatusLabel = "status"
	estimateMethodLabel  = "method"
)

var migrationsTotalLabels = []string{
	migrationStatusLabel,
}

var estimatesTotalLabels = []string{
	estimateMethodLabel,
}

/**
* Metrics definition
**/
var migrationsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: migrator,
		Name:      migrationsTotal,
		Help:      "number of migration attempts by final status",
	},
	migrationsTotalLabels,
)

var migrationDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: migrator,
		Name:      migrationDurationSeconds,
		Help:      "wall clock duration of successful calls to the migration API",
		Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
	},
)

var estimatesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: migrator,
		Name:      estimatesTotal,
		Help:      "number of duration estimates by estimation method",
	},
	estimatesTotalLabels,
)

func IncreaseMigrationsTotalMetric(status string) {
	labels := prometheus.Labels{
		migrationStatusLabel: status,
	}
	migrationsTotalMetric.With(labels).Inc()
}

func ObserveMigrationDurationMetric(seconds float64) {
	migrationDurationMetric.Observe(seconds)
}

func IncreaseEstimatesTotalMetric(method string) {
	labels := prometheus.Labels{
		estimateMethodLabel: method,
	}
	estimatesTotalMetric.With(labels).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(migrationsTotalMetric)
	prometheus.MustRegister(migrationDurationMetric)
	prometheus.MustRegister(estimatesTotalMetric)
}
