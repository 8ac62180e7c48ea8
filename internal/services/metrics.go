package services

import (
	"errors"
	"time"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Total number of auth operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	authOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_operation_duration_seconds",
			Help:    "Duration of auth operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// outcome labels an operation result: "success", an error kind, or "error".
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		return string(ae.Kind)
	}
	return "error"
}

func trackOperation(op string, start time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	authOperationsTotal.WithLabelValues(op, outcome(e)).Inc()
	authOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
