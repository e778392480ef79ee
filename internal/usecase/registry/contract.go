package registry

import (
	"context"

	"github.com/kailas-cloud/viralscan/internal/domain/model"
)

// Repository persists the current model bundle.
type Repository interface {
	Save(ctx context.Context, m model.Model) error
	Load(ctx context.Context) (model.Model, error)
}
