package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/viralscan/internal/config"
	"github.com/kailas-cloud/viralscan/internal/dataset"
	dbRedis "github.com/kailas-cloud/viralscan/internal/db/redis"
	logpkg "github.com/kailas-cloud/viralscan/internal/logger"
	"github.com/kailas-cloud/viralscan/internal/repository/artifact"
	"github.com/kailas-cloud/viralscan/internal/usecase/inference"
	"github.com/kailas-cloud/viralscan/internal/usecase/registry"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
	"github.com/kailas-cloud/viralscan/internal/version"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "viralctl",
		Short:         "Train and run the k-mer viral sequence classifier",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default: config/<ENV>.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newTrainCmd(opts), newPredictCmd(opts), newModelCmd(opts))
	return root
}

// artifactStore is the persistence both storage drivers provide.
type artifactStore interface {
	registry.Repository
	Describe(ctx context.Context) (artifact.Metadata, error)
}

// app is the wired pipeline for one command invocation.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    artifactStore
	registry *registry.Service
	close    func()
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load(config.GetEnv())
}

// open wires storage and the registry. mutate may adjust the loaded config.
func (o *rootOptions) open(ctx context.Context, mutate func(*config.Config)) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}

	logger, err := logpkg.NewLogger("cli", o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	var (
		repo    artifactStore
		closeFn = func() {}
	)
	switch cfg.Storage.Driver {
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Storage.Addrs,
			Username: cfg.Storage.Username,
			Password: cfg.Storage.Password,
			DB:       cfg.Storage.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Storage.Driver, err)
		}
		if err := s.WaitForReady(ctx, time.Duration(cfg.Storage.ReadinessTimeout)*time.Second); err != nil {
			s.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		repo, closeFn = artifact.NewKVStore(s), s.Close
	default:
		repo = artifact.NewFileStore(cfg.Storage.Path)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    repo,
		registry: registry.New(repo, logger),
		close: func() {
			closeFn()
			_ = logger.Sync()
		},
	}, nil
}

func (a *app) trainer() *training.Service {
	return training.New(dataset.FileLoader{}, a.registry, a.cfg.Pipeline(), a.logger)
}

func (a *app) predictor() *inference.Service {
	return inference.New(a.registry, a.logger)
}
