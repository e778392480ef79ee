package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kailas-cloud/viralscan/internal/config"
	"github.com/kailas-cloud/viralscan/internal/dataset"
	dbRedis "github.com/kailas-cloud/viralscan/internal/db/redis"
	"github.com/kailas-cloud/viralscan/internal/domain"
	logpkg "github.com/kailas-cloud/viralscan/internal/logger"
	"github.com/kailas-cloud/viralscan/internal/metrics"
	"github.com/kailas-cloud/viralscan/internal/repository/artifact"
	chiTransport "github.com/kailas-cloud/viralscan/internal/transport/chi"
	healthuc "github.com/kailas-cloud/viralscan/internal/usecase/health"
	"github.com/kailas-cloud/viralscan/internal/usecase/inference"
	"github.com/kailas-cloud/viralscan/internal/usecase/registry"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
	"github.com/kailas-cloud/viralscan/internal/version"
)

// artifactStore persists models and reports storage health.
type artifactStore interface {
	registry.Repository
	healthuc.StoragePinger
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting viralscan API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("dataset", cfg.Dataset.Path),
		zap.String("classifier", cfg.Classifier.Family),
	)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to open artifact storage", zap.Error(err))
	}
	defer closeStore()

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterPipelineMetrics()

	reg := registry.New(store, logger)
	if cfg.Training.LoadOnStart {
		if err := reg.LoadPersisted(ctx); err != nil {
			logger.Warn("Persisted model not loaded", zap.Error(err))
		}
	}

	trainSvc := training.New(dataset.FileLoader{}, reg, cfg.Pipeline(), logger)
	predictSvc := inference.New(reg, logger)
	healthSvc := healthuc.New(store, reg, dataset.Exists, cfg.Dataset.Path)

	server := chiTransport.NewServer(trainSvc, predictSvc, reg, healthSvc, logger).
		WithMaxUpload(cfg.HTTP.MaxUploadBytes).
		WithTrainTimeout(time.Duration(cfg.Training.TimeoutSec) * time.Second)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	if cfg.Training.TrainOnStart && !reg.Ready() {
		go func() {
			if _, err := trainSvc.Train(ctx); err != nil && !errors.Is(err, domain.ErrTrainingInProgress) {
				logger.Error("Startup training failed", zap.Error(err))
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore builds the artifact store for the configured driver.
func openStore(ctx context.Context, cfg config.StorageConfig) (artifactStore, func(), error) {
	switch cfg.Driver {
	case "file":
		return artifact.NewFileStore(cfg.Path), func() {}, nil
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		if err := s.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("database not ready: %w", err)
		}
		return artifact.NewKVStore(s), s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Success: false,
						Code:    "internal_error",
						Error:   "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
