// Package inference classifies uploaded sequences with the current model.
package inference

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/kmer"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
	"github.com/kailas-cloud/viralscan/internal/domain/prediction"
	"github.com/kailas-cloud/viralscan/internal/domain/sequence"
	"github.com/kailas-cloud/viralscan/internal/domain/vocabulary"
	"github.com/kailas-cloud/viralscan/internal/fasta"
	logpkg "github.com/kailas-cloud/viralscan/internal/logger"
	"github.com/kailas-cloud/viralscan/internal/metrics"
)

// Outcome is the result of one prediction request.
type Outcome struct {
	Results []prediction.Result
	Summary prediction.Summary
	// Model is the bundle that produced Results.
	Model model.Model
	// Raw is set when the payload had no FASTA headers.
	Raw bool
	// OutOfVocabulary counts tokens absent from the model vocabulary.
	OutOfVocabulary int
}

// Service runs the inference pipeline.
type Service struct {
	models ModelSource
	logger *zap.Logger
	now    func() time.Time
}

// New creates an inference service.
func New(models ModelSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{models: models, logger: logger, now: time.Now}
}

// Predict parses payload as FASTA (or a raw block) and classifies every
// sequence in input order.
func (s *Service) Predict(ctx context.Context, payload []byte) (Outcome, error) {
	m, err := s.models.Current()
	if err != nil {
		return Outcome{}, err
	}

	parsed, err := fasta.Parse(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("parse payload: %w: %w", domain.ErrInvalidInput, err)
	}
	metrics.DiscardedRecordsTotal.Add(float64(parsed.Discarded))
	if len(parsed.Records) == 0 {
		return Outcome{}, domain.ErrNoSequencesFound
	}

	out, err := s.Classify(ctx, m, parsed.Records, parsed.Discarded)
	if err != nil {
		return Outcome{}, err
	}
	out.Raw = parsed.Raw
	return out, nil
}

// Classify runs records through m. discarded is carried into the summary.
func (s *Service) Classify(ctx context.Context, m model.Model, records []fasta.Record, discarded int) (Outcome, error) {
	if !m.Trained() {
		return Outcome{}, domain.ErrModelNotReady
	}
	if len(records) == 0 {
		return Outcome{}, domain.ErrNoSequencesFound
	}
	tok, err := kmer.New(m.K())
	if err != nil {
		return Outcome{}, fmt.Errorf("model tokenizer: %w", err)
	}

	x := make([][]float64, len(records))
	fallback := make([]bool, len(records))
	oov := 0
	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		var tokens []string
		tokens, fallback[i] = tok.Tokenize(sequence.Clean(r.Sequence))
		var miss int
		x[i], miss = vocabulary.TransformRow(m.Vocabulary(), tokens)
		oov += miss
	}

	proba, err := m.Classifier().PredictProba(x)
	if err != nil {
		return Outcome{}, fmt.Errorf("predict %s: %w", m.Name(), err)
	}

	ts := s.now().UTC()
	results := make([]prediction.Result, len(records))
	fallbacks := 0
	for i, r := range records {
		results[i] = prediction.New(prediction.Input{
			Index:         i + 1,
			SequenceID:    r.ID,
			Raw:           r.Sequence,
			Probabilities: proba[i],
			Fallback:      fallback[i],
			ModelName:     m.Name(),
			Timestamp:     ts,
		})
		metrics.PredictionsTotal.WithLabelValues(results[i].Label().String()).Inc()
		if fallback[i] {
			fallbacks++
		}
	}
	metrics.FallbackSubstitutionsTotal.WithLabelValues("inference").Add(float64(fallbacks))
	metrics.OutOfVocabularyTokensTotal.Add(float64(oov))

	summary := prediction.Summarize(results, discarded)
	logpkg.FromContextOr(ctx, s.logger).Info("Prediction complete",
		append(logpkg.ModelFields(m.ID(), m.Name(), string(m.Family())),
			logpkg.Operation("predict"),
			zap.Int(logpkg.KeySamples, len(results)),
			zap.Int(logpkg.KeyDiscarded, discarded),
			zap.Int(logpkg.KeyFallbacks, fallbacks),
			zap.Int(logpkg.KeyOOV, oov),
			zap.Int("predict.viral", summary.Viral),
		)...,
	)
	return Outcome{Results: results, Summary: summary, Model: m, OutOfVocabulary: oov}, nil
}
