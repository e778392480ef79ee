// Package training runs the load → featurize → split → fit → evaluate → publish pipeline.
package training

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viralscan/internal/dataset"
	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/evaluation"
	"github.com/kailas-cloud/viralscan/internal/domain/kmer"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
	"github.com/kailas-cloud/viralscan/internal/domain/sequence"
	"github.com/kailas-cloud/viralscan/internal/domain/vocabulary"
	logpkg "github.com/kailas-cloud/viralscan/internal/logger"
	"github.com/kailas-cloud/viralscan/internal/metrics"
	"github.com/kailas-cloud/viralscan/internal/ml"
	"github.com/kailas-cloud/viralscan/internal/ml/split"
)

// Defaults for Config.
const (
	DefaultTestFraction = 0.2
	DefaultSeed         = 42
	// TopFeatures is the number of k-mers reported with a trained forest.
	TopFeatures = 10
)

// Config holds the pipeline inputs.
type Config struct {
	DatasetPath  string
	MaxSamples   int
	K            int
	MaxFeatures  int
	TestFraction float64
	Seed         uint64
	Classifier   ml.Params
	Grid         Grid
	Folds        int
}

// DefaultConfig returns the pipeline defaults for datasetPath.
func DefaultConfig(datasetPath string) Config {
	return Config{
		DatasetPath:  datasetPath,
		MaxSamples:   dataset.DefaultMaxSamples,
		K:            kmer.DefaultK,
		MaxFeatures:  vocabulary.DefaultMaxFeatures,
		TestFraction: DefaultTestFraction,
		Seed:         DefaultSeed,
		Classifier:   ml.DefaultParams(),
		Folds:        DefaultFolds,
	}
}

// Result is the outcome of a successful run.
type Result struct {
	Model    model.Model
	Params   ml.Params
	Search   []CandidateScore
	Duration time.Duration
}

// TopFeatures returns the most important k-mers, or nil for backends without importances.
func (r Result) TopFeatures() []model.Importance {
	return r.Model.TopFeatures(TopFeatures)
}

// Service trains models. At most one run is active at a time.
type Service struct {
	loader    DatasetLoader
	publisher Publisher
	cfg       Config
	running   atomic.Bool
	logger    *zap.Logger
}

// New creates a training service.
func New(loader DatasetLoader, publisher Publisher, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{loader: loader, publisher: publisher, cfg: cfg, logger: logger}
}

// Config returns the pipeline configuration.
func (s *Service) Config() Config { return s.cfg }

// Running reports whether a training run is in progress.
func (s *Service) Running() bool { return s.running.Load() }

// Train runs the full pipeline and publishes the resulting bundle. Nothing is
// persisted unless every step succeeds. A call made while another run is
// active fails with domain.ErrTrainingInProgress.
func (s *Service) Train(ctx context.Context) (Result, error) {
	family := string(s.cfg.Classifier.Family)
	if !s.running.CompareAndSwap(false, true) {
		metrics.TrainingRunsTotal.WithLabelValues(family, "rejected").Inc()
		return Result{}, domain.ErrTrainingInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	res, err := s.train(ctx)
	res.Duration = time.Since(start)
	metrics.TrainingDuration.WithLabelValues(family).Observe(res.Duration.Seconds())
	if err != nil {
		metrics.TrainingRunsTotal.WithLabelValues(family, "error").Inc()
		s.logger.Error("Training failed", logpkg.Operation("train"), zap.Error(err))
		return Result{}, err
	}
	metrics.TrainingRunsTotal.WithLabelValues(family, "ok").Inc()

	m := res.Model
	s.logger.Info("Training complete",
		append(logpkg.ModelFields(m.ID(), m.Name(), family),
			logpkg.Operation("train"),
			zap.Float64(logpkg.KeyAccuracy, m.Accuracy()),
			zap.Int(logpkg.KeySamples, m.Dataset().Rows),
			zap.Int(logpkg.KeyFeatures, m.Vocabulary().Size()),
			zap.Duration("duration", res.Duration),
		)...,
	)
	return res, nil
}

// featurized is the corpus after cleaning, tokenizing and vectorizing.
type featurized struct {
	vocab     *vocabulary.Vocabulary
	x         [][]float64
	y         []domain.Label
	fallbacks int
}

func (s *Service) train(ctx context.Context) (Result, error) {
	ds, err := s.loader.Load(ctx, s.cfg.DatasetPath, s.cfg.MaxSamples)
	if err != nil {
		return Result{}, fmt.Errorf("load dataset: %w", err)
	}
	metrics.SkippedRowsTotal.Add(float64(ds.Skipped))
	counts := ds.Counts()
	s.logger.Info("Dataset loaded",
		logpkg.Operation("load"),
		zap.String(logpkg.KeySource, ds.Source),
		zap.Int(logpkg.KeySamples, len(ds.Rows)),
		zap.Int(logpkg.KeySkipped, ds.Skipped),
		zap.Int("data.viral", counts[domain.LabelViral]),
		zap.Int("data.non_viral", counts[domain.LabelNonViral]),
	)

	f, err := s.featurize(ds)
	if err != nil {
		return Result{}, err
	}

	part, err := split.Stratified(f.y, s.cfg.TestFraction, s.cfg.Seed)
	if err != nil {
		return Result{}, fmt.Errorf("split: %w", err)
	}
	xTrain, yTrain := split.Select(f.x, part.Train), split.Select(f.y, part.Train)
	xTest, yTest := split.Select(f.x, part.Test), split.Select(f.y, part.Test)

	params, scores, err := s.selectParams(ctx, xTrain, yTrain)
	if err != nil {
		return Result{}, err
	}

	clf, err := ml.New(params)
	if err != nil {
		return Result{}, fmt.Errorf("build classifier: %w", err)
	}
	if err := clf.Fit(ctx, xTrain, yTrain); err != nil {
		return Result{}, fmt.Errorf("fit %s: %w", clf.Name(), err)
	}
	pred, err := clf.Predict(xTest)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate: %w", err)
	}
	report, err := evaluation.NewReport(yTest, pred, len(part.Train))
	if err != nil {
		return Result{}, fmt.Errorf("evaluate: %w", err)
	}

	m, err := model.New(clf, f.vocab, s.cfg.K, report, model.Dataset{
		Source:    ds.Source,
		Rows:      len(ds.Rows),
		Skipped:   ds.Skipped,
		Fallbacks: f.fallbacks,
	})
	if err != nil {
		return Result{}, fmt.Errorf("build model: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := s.publisher.Publish(ctx, m); err != nil {
		return Result{}, fmt.Errorf("publish: %w", err)
	}
	return Result{Model: m, Params: params, Search: scores}, nil
}

// featurize cleans and tokenizes every row, then fits the vocabulary once.
func (s *Service) featurize(ds dataset.Dataset) (featurized, error) {
	tok, err := kmer.New(s.cfg.K)
	if err != nil {
		return featurized{}, err
	}

	rows := make([][]string, len(ds.Rows))
	fallbacks := 0
	for i, r := range ds.Rows {
		var fb bool
		rows[i], fb = tok.Tokenize(sequence.Clean(r.Sequence))
		if fb {
			fallbacks++
			s.logger.Debug("Sequence shorter than k, filler substituted",
				logpkg.Operation("featurize"),
				zap.String(logpkg.KeySequenceID, r.ID),
				zap.Int("row", i),
			)
		}
	}
	metrics.FallbackSubstitutionsTotal.WithLabelValues("training").Add(float64(fallbacks))

	vocab, x := vocabulary.Fit(rows, s.cfg.MaxFeatures)
	s.logger.Info("Features extracted",
		logpkg.Operation("featurize"),
		zap.Int(logpkg.KeySamples, len(x)),
		zap.Int(logpkg.KeyFeatures, vocab.Size()),
		zap.Int(logpkg.KeyFallbacks, fallbacks),
	)
	return featurized{vocab: vocab, x: x, y: ds.Labels(), fallbacks: fallbacks}, nil
}

// selectParams runs the grid search when one is configured.
func (s *Service) selectParams(
	ctx context.Context, x [][]float64, y []domain.Label,
) (ml.Params, []CandidateScore, error) {
	base := s.cfg.Classifier
	if s.cfg.Grid.Empty(base.Family) {
		return base, nil, nil
	}

	folds := s.cfg.Folds
	if folds < 2 {
		folds = DefaultFolds
	}
	var counts [domain.NumClasses]int
	for _, l := range y {
		counts[l]++
	}
	smallest := min(counts[domain.LabelNonViral], counts[domain.LabelViral])
	if smallest < folds {
		s.logger.Warn("Reducing CV folds to smallest class size",
			zap.Int("folds", folds), zap.Int("smallest_class", smallest))
		folds = smallest
	}
	if folds < 2 {
		return base, nil, fmt.Errorf("cross-validation needs 2 rows per class: %w", domain.ErrInsufficientClassDiversity)
	}

	best, scores, err := search(ctx, s.cfg.Grid.Candidates(base), folds, s.cfg.Seed, x, y)
	if err != nil {
		return base, nil, fmt.Errorf("grid search: %w", err)
	}
	for _, sc := range scores {
		s.logger.Debug("Grid candidate",
			logpkg.Operation("search"),
			zap.Any("params", sc.Params),
			zap.Float64("f1_mean", sc.MeanF1),
			zap.Float64("f1_std", sc.StdF1),
		)
	}
	return best, scores, nil
}
