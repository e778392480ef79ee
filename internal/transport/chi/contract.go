package chi

import (
	"context"

	"github.com/kailas-cloud/viralscan/internal/domain/model"
	healthuc "github.com/kailas-cloud/viralscan/internal/usecase/health"
	"github.com/kailas-cloud/viralscan/internal/usecase/inference"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
)

// Trainer runs the training pipeline.
type Trainer interface {
	Train(ctx context.Context) (training.Result, error)
}

// Predictor classifies an uploaded payload.
type Predictor interface {
	Predict(ctx context.Context, payload []byte) (inference.Outcome, error)
}

// ModelSource provides the current trained bundle.
type ModelSource interface {
	Current() (model.Model, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
