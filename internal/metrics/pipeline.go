package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "viralscan"

// Training and inference Prometheus metrics.
var (
	TrainingRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Training runs by outcome",
		},
		[]string{"family", "status"}, // status: "ok" / "error" / "rejected"
	)

	TrainingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "End-to-end training duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"family"},
	)

	ModelAccuracy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_accuracy",
			Help:      "Held-out accuracy of the current model",
		},
	)

	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Classified sequences by predicted label",
		},
		[]string{"label"},
	)

	FallbackSubstitutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_substitutions_total",
			Help:      "Sequences shorter than k replaced by the filler",
		},
		[]string{"stage"}, // "training" / "inference"
	)

	OutOfVocabularyTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "out_of_vocabulary_tokens_total",
			Help:      "Inference k-mers absent from the model vocabulary",
		},
	)

	SkippedRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_skipped_rows_total",
			Help:      "Malformed training rows skipped while loading",
		},
	)

	DiscardedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_records_total",
			Help:      "Inference records without any A/T/G/C base",
		},
	)
)

var registerPipeline sync.Once

// RegisterPipelineMetrics registers the training and inference metrics. Call from main.
func RegisterPipelineMetrics() {
	registerPipeline.Do(func() {
		prometheus.MustRegister(
			TrainingRunsTotal,
			TrainingDuration,
			ModelAccuracy,
			PredictionsTotal,
			FallbackSubstitutionsTotal,
			OutOfVocabularyTokensTotal,
			SkippedRowsTotal,
			DiscardedRecordsTotal,
		)
	})
}
