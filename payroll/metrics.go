package payroll

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Subsystem: "refresh",
		Name:      "runs_total",
		Help:      "Total number of payroll basis refresh runs broken down by result.",
	}, []string{"result"})

	refreshPersonOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Subsystem: "refresh",
		Name:      "person_outcomes_total",
		Help:      "Total number of per-person refresh outcomes broken down by outcome.",
	}, []string{"outcome"})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "payroll",
		Subsystem: "refresh",
		Name:      "duration_seconds",
		Help:      "Wall time of payroll basis refresh runs.",
		Buckets:   prometheus.DefBuckets,
	})

	basisExports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Subsystem: "basis",
		Name:      "exports_total",
		Help:      "Total number of payroll basis exports broken down by format.",
	}, []string{"format"})
)

func recordRefreshRun(result string, started time.Time) {
	if result == "" {
		result = "ok"
	}
	refreshRuns.WithLabelValues(result).Inc()
	refreshDuration.Observe(time.Since(started).Seconds())
}

func recordPersonOutcome(outcome Outcome) {
	refreshPersonOutcomes.WithLabelValues(string(outcome)).Inc()
}

// RecordExport counts one basis export in the given format (e.g. "xlsx").
func RecordExport(format string) {
	basisExports.WithLabelValues(format).Inc()
}
