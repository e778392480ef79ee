// Package registry owns the current trained model shared by training and inference.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
	logpkg "github.com/kailas-cloud/viralscan/internal/logger"
	"github.com/kailas-cloud/viralscan/internal/metrics"
)

// Service holds the current bundle behind an atomic pointer. Readers keep the
// bundle they obtained even if a newer one is published meanwhile.
type Service struct {
	repo    Repository
	current atomic.Pointer[model.Model]
	logger  *zap.Logger
}

// New creates a registry. repo may be nil for an in-memory-only registry.
func New(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Current returns the published bundle or domain.ErrModelNotReady.
func (s *Service) Current() (model.Model, error) {
	m := s.current.Load()
	if m == nil || !m.Trained() {
		return model.Model{}, domain.ErrModelNotReady
	}
	return *m, nil
}

// Ready reports whether a trained bundle is published.
func (s *Service) Ready() bool {
	_, err := s.Current()
	return err == nil
}

// Publish persists m and then makes it current. When saving fails the
// previous bundle stays current and the error is returned.
func (s *Service) Publish(ctx context.Context, m model.Model) error {
	if !m.Trained() {
		return fmt.Errorf("publish: %w", domain.ErrModelNotReady)
	}
	if s.repo != nil {
		if err := s.repo.Save(ctx, m); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
	}
	s.swap(m)
	return nil
}

// LoadPersisted restores the stored bundle at startup. A missing artifact is
// not an error: the service starts untrained.
func (s *Service) LoadPersisted(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	m, err := s.repo.Load(ctx)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		s.logger.Info("No persisted model, starting untrained")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	s.swap(m)
	s.logger.Info("Loaded persisted model",
		append(logpkg.ModelFields(m.ID(), m.Name(), string(m.Family())),
			zap.Float64(logpkg.KeyAccuracy, m.Accuracy()))...,
	)
	return nil
}

func (s *Service) swap(m model.Model) {
	s.current.Store(&m)
	metrics.ModelAccuracy.Set(m.Accuracy())
}

// Accuracy returns the held-out accuracy of the current bundle.
func (s *Service) Accuracy() (float64, bool) {
	m, err := s.Current()
	if err != nil {
		return 0, false
	}
	return m.Accuracy(), true
}
