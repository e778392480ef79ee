// Package chi exposes training and inference over HTTP with a chi router.
package chi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/oapi-codegen/runtime/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/report"
	healthuc "github.com/kailas-cloud/viralscan/internal/usecase/health"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
	"github.com/kailas-cloud/viralscan/internal/version"
)

// DefaultMaxUploadBytes caps a /predict upload.
const DefaultMaxUploadBytes = 16 << 20

// DefaultTrainTimeout bounds a /train run.
const DefaultTrainTimeout = 10 * time.Minute

// uploadField is the multipart field carrying the sequence file.
const uploadField = "file"

// Server implements the HTTP API.
type Server struct {
	trainer       Trainer
	predictor     Predictor
	models        ModelSource
	health        HealthChecker
	logger        *zap.Logger
	maxUpload     int64
	trainTimeout  time.Duration
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	trainer Trainer,
	predictor Predictor,
	models ModelSource,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		trainer:       trainer,
		predictor:     predictor,
		models:        models,
		health:        health,
		logger:        logger,
		maxUpload:     DefaultMaxUploadBytes,
		trainTimeout:  DefaultTrainTimeout,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithMaxUpload sets the /predict upload limit in bytes.
func (s *Server) WithMaxUpload(n int64) *Server {
	if n > 0 {
		s.maxUpload = n
	}
	return s
}

// WithTrainTimeout sets the deadline of a /train run.
func (s *Server) WithTrainTimeout(d time.Duration) *Server {
	if d > 0 {
		s.trainTimeout = d
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Post("/train", s.Train)
	r.Post("/predict", s.Predict)
	r.Get("/model", s.GetModel)
	r.Get("/metrics", s.Metrics)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
}

// RootResponse is the service banner.
type RootResponse struct {
	Service      string   `json:"service"`
	Version      string   `json:"version"`
	Status       string   `json:"status"`
	ModelTrained bool     `json:"model_trained"`
	Accuracy     *float64 `json:"accuracy"`
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	resp := RootResponse{Service: "viralscan", Version: version.Version, Status: "running"}
	if m, err := s.models.Current(); err == nil {
		acc := m.Accuracy()
		resp.ModelTrained = true
		resp.Accuracy = &acc
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           healthuc.Status                 `json:"status"`
	Checks           map[string]healthuc.CheckResult `json:"checks"`
	ModelTrained     bool                            `json:"model_trained"`
	TrainingAccuracy *float64                        `json:"training_accuracy"`
	DatasetExists    bool                            `json:"dataset_exists"`
	Timestamp        time.Time                       `json:"timestamp"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	rep := s.health.Check(r.Context())

	status := http.StatusOK
	if rep.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		Status:           rep.Status,
		Checks:           rep.Checks,
		ModelTrained:     rep.ModelTrained,
		TrainingAccuracy: rep.TrainingAccuracy,
		DatasetExists:    rep.DatasetExists,
		Timestamp:        rep.Timestamp,
	})
}

// Train handles POST /train. The run outlives a disconnected client so the
// model still gets persisted, bounded by the train timeout.
func (s *Server) Train(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.trainTimeout)
	defer cancel()
	res, err := s.trainer.Train(ctx)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.NewTraining(res))
}

// Predict handles POST /predict with a multipart "file" field.
// ?format=csv returns the detailed CSV export instead of JSON.
func (s *Server) Predict(w http.ResponseWriter, r *http.Request) {
	var format string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindInvalidInput, "invalid format parameter")
		return
	}
	if format != "" && format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, domain.KindInvalidInput, fmt.Sprintf("unsupported format %q", format))
		return
	}

	payload, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.KindInvalidInput, err.Error())
		return
	}

	out, err := s.predictor.Predict(r.Context(), payload)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="predictions.csv"`)
		if err := report.WriteCSV(w, out.Results); err != nil {
			s.logger.Error("write csv", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, report.NewPrediction(out))
}

var errNoFile = errors.New("no file uploaded")

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, errors.New("expected multipart form with a file field")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil, errNoFile
	}
	var f types.File
	f.InitFromMultipart(headers[0])
	data, err := f.Bytes()
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	s.logger.Debug("Upload received", zap.String("filename", f.Filename()), zap.Int64("bytes", f.FileSize()))
	return data, nil
}

// GetModel handles GET /model.
func (s *Server) GetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.models.Current()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.NewModel(m, training.TopFeatures))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
