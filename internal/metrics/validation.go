package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Validation sources.
const (
	SourceFile   = "file"
	SourceHTTP   = "http"
	SourceReload = "reload"
)

var (
	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mbconfig_validations_total",
		Help: "Total number of project document validations by source and result",
	}, []string{"source", "result"})

	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mbconfig_violations_total",
		Help: "Total number of schema violations by violated rule",
	}, []string{"rule"})

	validationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mbconfig_validation_duration_seconds",
		Help:    "Time spent decoding and validating a project document",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"source"})

	reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mbconfig_config_reloads_total",
		Help: "Total number of watched project file reloads by result",
	}, []string{"result"})
)

// ObserveValidation records one validation run.
// result ∈ {valid,invalid,malformed}; rules lists the violated rule of each violation.
func ObserveValidation(source, result string, rules []string, took time.Duration) {
	src := normalizeSource(source)
	validationsTotal.WithLabelValues(src, normalizeResult(result)).Inc()
	validationDuration.WithLabelValues(src).Observe(took.Seconds())
	for _, r := range rules {
		violationsTotal.WithLabelValues(normalizeRule(r)).Inc()
	}
}

// IncReload records a watched file reload outcome.
func IncReload(success bool) {
	if success {
		reloadsTotal.WithLabelValues("success").Inc()
		return
	}
	reloadsTotal.WithLabelValues("failure").Inc()
}

func normalizeSource(s string) string {
	switch s {
	case SourceFile, SourceHTTP, SourceReload:
		return s
	default:
		return "unknown"
	}
}

func normalizeResult(r string) string {
	switch r {
	case "valid", "invalid", "malformed":
		return r
	default:
		return "unknown"
	}
}

// normalizeRule caps label cardinality to the keywords the embedded schema uses.
func normalizeRule(r string) string {
	switch strings.TrimSpace(r) {
	case "required", "type", "additionalProperties", "minLength", "items", "properties":
		return r
	default:
		return "other"
	}
}
