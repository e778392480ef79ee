// Package config loads the YAML service configuration for an environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the viralscan configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
	Logging    LoggingConfig    `yaml:"logging"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Features   FeaturesConfig   `yaml:"features"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Training   TrainingConfig   `yaml:"training"`
	Storage    StorageConfig    `yaml:"storage"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig lists browser origins allowed to call the API. Empty disables CORS.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"` // must cover a full /train run
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
}

// DatasetConfig locates the labeled training corpus.
type DatasetConfig struct {
	Path       string `yaml:"path"` // .csv or .parquet
	MaxSamples int    `yaml:"max_samples"`
}

// FeaturesConfig holds k-mer featurization settings.
type FeaturesConfig struct {
	K           int `yaml:"k"`
	MaxFeatures int `yaml:"max_features"`
}

// ClassifierConfig selects and tunes the backend.
type ClassifierConfig struct {
	Family  string       `yaml:"family"` // random_forest, knn
	Workers int          `yaml:"workers"`
	Forest  ForestConfig `yaml:"forest"`
	KNN     KNNConfig    `yaml:"knn"`
}

// ForestConfig holds random forest hyperparameters.
type ForestConfig struct {
	Trees           int `yaml:"trees"`
	MaxDepth        int `yaml:"max_depth"`
	MinSamplesSplit int `yaml:"min_samples_split"`
	MinSamplesLeaf  int `yaml:"min_samples_leaf"`
	MaxFeatures     int `yaml:"max_features"` // 0 = sqrt(columns)
}

// KNNConfig holds k-nearest-neighbors hyperparameters.
type KNNConfig struct {
	Neighbors int `yaml:"neighbors"`
}

// TrainingConfig holds split, seed and grid search settings.
type TrainingConfig struct {
	TestFraction float64    `yaml:"test_fraction"`
	Seed         uint64     `yaml:"seed"`
	Folds        int        `yaml:"folds"`
	Grid         GridConfig `yaml:"grid"`
	LoadOnStart  bool       `yaml:"load_on_start"`
	TrainOnStart bool       `yaml:"train_on_start"`
	TimeoutSec   int        `yaml:"timeout_sec"` // bounds a /train run after the client goes away
}

// GridConfig lists hyperparameter candidates. Empty disables the search.
type GridConfig struct {
	Neighbors []int `yaml:"neighbors"`
	Trees     []int `yaml:"trees"`
	MaxDepth  []int `yaml:"max_depth"`
}

// StorageConfig selects where the trained artifact is persisted.
type StorageConfig struct {
	Driver           string   `yaml:"driver"` // file, redis (default: file)
	Path             string   `yaml:"path"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		c.HTTP.MaxUploadBytes = 16 << 20
	}
	if c.Dataset.Path == "" {
		c.Dataset.Path = "data/viral_sequences.csv"
	}
	if c.Dataset.MaxSamples == 0 {
		c.Dataset.MaxSamples = 2000
	}
	if c.Features.K == 0 {
		c.Features.K = 3
	}
	if c.Features.MaxFeatures == 0 {
		c.Features.MaxFeatures = 1000
	}
	if c.Classifier.Family == "" {
		c.Classifier.Family = "random_forest"
	}
	f := &c.Classifier.Forest
	if f.Trees == 0 {
		f.Trees = 100
	}
	if f.MaxDepth == 0 {
		f.MaxDepth = 15
	}
	if f.MinSamplesSplit == 0 {
		f.MinSamplesSplit = 5
	}
	if f.MinSamplesLeaf == 0 {
		f.MinSamplesLeaf = 2
	}
	if c.Classifier.KNN.Neighbors == 0 {
		c.Classifier.KNN.Neighbors = 5
	}
	if c.Training.TestFraction == 0 {
		c.Training.TestFraction = 0.2
	}
	if c.Training.Seed == 0 {
		c.Training.Seed = 42
	}
	if c.Training.Folds == 0 {
		c.Training.Folds = 5
	}
	if c.Training.TimeoutSec <= 0 {
		c.Training.TimeoutSec = 600
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "models/viral_classifier.bin"
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Dataset.MaxSamples < 0 {
		return fmt.Errorf("dataset.max_samples must be >= 0, got %d", c.Dataset.MaxSamples)
	}
	if c.Features.K < 1 || c.Features.K > 40 {
		return fmt.Errorf("features.k must be between 1 and 40, got %d", c.Features.K)
	}
	if c.Features.MaxFeatures < 1 {
		return fmt.Errorf("features.max_features must be positive, got %d", c.Features.MaxFeatures)
	}
	switch c.Classifier.Family {
	case "random_forest", "knn":
	default:
		return fmt.Errorf("classifier.family must be \"random_forest\" or \"knn\", got %q", c.Classifier.Family)
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("training.test_fraction must be in (0, 1), got %v", c.Training.TestFraction)
	}
	if c.Training.Folds < 2 {
		return fmt.Errorf("training.folds must be >= 2, got %d", c.Training.Folds)
	}
	switch c.Storage.Driver {
	case "file":
	case "redis", "valkey":
		if len(c.Storage.Addrs) == 0 {
			return fmt.Errorf("storage.addrs is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver must be \"file\", \"redis\" or \"valkey\", got %q", c.Storage.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
