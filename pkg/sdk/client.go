package viralscan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viralscan/internal/dataset"
	dbRedis "github.com/kailas-cloud/viralscan/internal/db/redis"
	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
	"github.com/kailas-cloud/viralscan/internal/fasta"
	"github.com/kailas-cloud/viralscan/internal/ml"
	"github.com/kailas-cloud/viralscan/internal/repository/artifact"
	healthuc "github.com/kailas-cloud/viralscan/internal/usecase/health"
	"github.com/kailas-cloud/viralscan/internal/usecase/inference"
	"github.com/kailas-cloud/viralscan/internal/usecase/registry"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced by mocks in tests.
type trainUseCase interface {
	Train(ctx context.Context) (training.Result, error)
}

type predictUseCase interface {
	Predict(ctx context.Context, payload []byte) (inference.Outcome, error)
	Classify(ctx context.Context, m model.Model, records []fasta.Record, discarded int) (inference.Outcome, error)
}

type modelSource interface {
	Current() (model.Model, error)
}

// Client is the viralscan SDK entry point.
type Client struct {
	closeFn   func()
	models    modelSource
	trainSvc  trainUseCase
	predSvc   predictUseCase
	healthSvc healthUseCase
	obs       *observer
}

// repository persists the current model and reports storage health.
type repository interface {
	registry.Repository
	healthuc.StoragePinger
}

// New creates a Client. Without a store option the model lives in memory
// only. A previously persisted model is loaded when present; ctx bounds the
// storage readiness check and that load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: "memory"}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	repo, closeFn, err := createRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := registry.New(repo, zap.NewNop())
	if err := reg.LoadPersisted(ctx); err != nil {
		closeFn()
		return nil, fmt.Errorf("viralscan: %w", err)
	}

	var storage healthuc.StoragePinger
	if repo != nil {
		storage = repo
	}
	return &Client{
		closeFn:   closeFn,
		models:    reg,
		trainSvc:  training.New(dataset.FileLoader{}, reg, pipelineConfig(cfg), zap.NewNop()),
		predSvc:   inference.New(reg, zap.NewNop()),
		healthSvc: healthuc.New(storage, reg, dataset.Exists, cfg.dataset),
		obs:       obs,
	}, nil
}

// createRepository returns a nil repository for the in-memory driver.
func createRepository(ctx context.Context, cfg *clientConfig) (repository, func(), error) {
	noop := func() {}
	switch cfg.driver {
	case "memory":
		return nil, noop, nil
	case "file":
		if cfg.path == "" {
			return nil, nil, fmt.Errorf("viralscan: file store path required: %w", domain.ErrInvalidInput)
		}
		return artifact.NewFileStore(cfg.path), noop, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("viralscan: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("viralscan: database not ready: %w", err)
		}
		return artifact.NewKVStore(s), s.Close, nil
	default:
		return nil, nil, fmt.Errorf("viralscan: unknown driver %q", cfg.driver)
	}
}

func pipelineConfig(cfg *clientConfig) training.Config {
	p := training.DefaultConfig(cfg.dataset)
	if cfg.maxSamples > 0 {
		p.MaxSamples = cfg.maxSamples
	}
	if cfg.k > 0 {
		p.K = cfg.k
	}
	if cfg.seed > 0 {
		p.Seed = cfg.seed
		p.Classifier.Forest.Seed = cfg.seed
	}
	p.Classifier = withClassifier(p.Classifier, cfg)
	return p
}

func withClassifier(p ml.Params, cfg *clientConfig) ml.Params {
	if cfg.family != "" {
		p.Family = domain.Family(cfg.family)
	}
	if cfg.trees > 0 {
		p.Forest.Trees = cfg.trees
	}
	if cfg.maxDepth > 0 {
		p.Forest.MaxDepth = cfg.maxDepth
	}
	if cfg.neighbors > 0 {
		p.KNN.Neighbors = cfg.neighbors
	}
	return p
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Train fits a new model on the configured dataset, persists it and makes it current.
func (c *Client) Train(ctx context.Context) (_ TrainingResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("train", start, err) }()

	res, err := c.trainSvc.Train(ctx)
	if err != nil {
		return TrainingResult{}, fmt.Errorf("train: %w", err)
	}
	return TrainingResult{Model: modelInfoFromDomain(res.Model), Duration: res.Duration}, nil
}

// Predict parses payload as FASTA (or a raw nucleotide block) and classifies
// every sequence with the current model.
func (c *Client) Predict(ctx context.Context, payload []byte) (_ Prediction, err error) {
	start := time.Now()
	defer func() { c.obs.observe("predict", start, err, "bytes", len(payload)) }()

	out, err := c.predSvc.Predict(ctx, payload)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	return c.finish(out), nil
}

// PredictSequences classifies already-parsed sequences in order.
func (c *Client) PredictSequences(ctx context.Context, seqs []Sequence) (_ Prediction, err error) {
	start := time.Now()
	defer func() { c.obs.observe("predict_sequences", start, err, "sequences", len(seqs)) }()

	m, err := c.models.Current()
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	records := make([]fasta.Record, len(seqs))
	for i, s := range seqs {
		records[i] = fasta.Record{ID: s.ID, Sequence: s.Bases}
	}
	out, err := c.predSvc.Classify(ctx, m, records, 0)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	return c.finish(out), nil
}

func (c *Client) finish(out inference.Outcome) Prediction {
	p := predictionFromOutcome(out)
	c.obs.classified(string(Viral), p.Summary.Viral)
	c.obs.classified(string(NonViral), p.Summary.NonViral)
	return p
}

// Model describes the current model or returns ErrModelNotReady.
func (c *Client) Model() (ModelInfo, error) {
	m, err := c.models.Current()
	if err != nil {
		return ModelInfo{}, fmt.Errorf("model: %w", err)
	}
	return modelInfoFromDomain(m), nil
}
