package viralscan

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Family selects the classifier backend.
type Family string

// Supported classifier backends.
const (
	RandomForest Family = "random_forest"
	KNN          Family = "knn"
)

type clientConfig struct {
	driver   string // "memory", "file" or "redis"
	path     string
	addrs    []string
	password string

	dataset    string
	maxSamples int
	k          int
	family     Family
	trees      int
	maxDepth   int
	neighbors  int
	seed       uint64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithFileStore persists the trained model to a local file.
func WithFileStore(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "file"
		c.path = path
	})
}

// WithRedis persists the trained model in Redis or Valkey.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithDataset sets the labeled training corpus (.csv or .parquet).
func WithDataset(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dataset = path
	})
}

// WithMaxSamples caps the rows read from the dataset. Default: 2000; 0 keeps the default.
func WithMaxSamples(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxSamples = n
	})
}

// WithK sets the k-mer length. Default: 3.
func WithK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.k = k
	})
}

// WithClassifier selects the backend. Default: RandomForest.
func WithClassifier(f Family) Option {
	return optionFunc(func(c *clientConfig) {
		c.family = f
	})
}

// WithForest sets the number of trees and their maximum depth.
// Defaults: 100 trees, depth 15.
func WithForest(trees, maxDepth int) Option {
	return optionFunc(func(c *clientConfig) {
		c.trees = trees
		c.maxDepth = maxDepth
	})
}

// WithNeighbors sets k for the nearest-neighbors backend. Default: 5.
func WithNeighbors(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.neighbors = n
	})
}

// WithSeed fixes the split, bootstrap and feature sampling seed. Default: 42.
func WithSeed(seed uint64) Option {
	return optionFunc(func(c *clientConfig) {
		c.seed = seed
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
