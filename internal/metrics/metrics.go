package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "malaria",
		Name:      "predictions_total",
		Help:      "Completed classifications by result label.",
	}, []string{"result"})

	PredictionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "malaria",
		Name:      "prediction_failures_total",
		Help:      "Failed classifications by pipeline stage.",
	}, []string{"stage"})

	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "malaria",
		Name:      "inference_duration_seconds",
		Help:      "Time spent inside the model.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})
)
