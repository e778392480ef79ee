package logger

import "go.uber.org/zap"

// Stable field keys for pipeline log events.
const (
	KeyOperation  = "ml.operation"
	KeyModelID    = "model.id"
	KeyModelName  = "model.name"
	KeyFamily     = "model.family"
	KeyAccuracy   = "model.accuracy"
	KeySamples    = "data.samples"
	KeySkipped    = "data.skipped"
	KeyFeatures   = "data.features"
	KeySource     = "data.source"
	KeyFallbacks  = "kmer.fallbacks"
	KeyOOV        = "kmer.oov"
	KeySequenceID = "sequence.id"
	KeyDiscarded  = "sequence.discarded"
)

// Operation tags a log line with the pipeline stage.
func Operation(op string) zap.Field { return zap.String(KeyOperation, op) }

// ModelFields describes a model in log lines.
func ModelFields(id, name, family string) []zap.Field {
	return []zap.Field{
		zap.String(KeyModelID, id),
		zap.String(KeyModelName, name),
		zap.String(KeyFamily, family),
	}
}
