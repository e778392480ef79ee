package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viralscan/internal/domain"
	logpkg "github.com/kailas-cloud/viralscan/internal/logger"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest),
		sentinelHandler(domain.ErrNoSequencesFound, http.StatusBadRequest),
		sentinelHandler(domain.ErrModelNotReady, http.StatusServiceUnavailable),
		sentinelHandler(domain.ErrTrainingInProgress, http.StatusConflict),
		sentinelHandler(domain.ErrDataUnavailable, http.StatusServiceUnavailable),
		sentinelHandler(domain.ErrInsufficientClassDiversity, http.StatusUnprocessableEntity),
		sentinelHandler(domain.ErrArtifactNotFound, http.StatusNotFound),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees only the sentinel message.
func sentinelHandler(sentinel error, status int) errorHandler {
	kind := domain.Kind(sentinel)
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, kind, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.String("kind", domain.Kind(err)), zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Error: message})
}
