package training

import (
	"context"

	"github.com/kailas-cloud/viralscan/internal/dataset"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
)

// DatasetLoader reads the labeled training corpus.
type DatasetLoader interface {
	Load(ctx context.Context, path string, maxSamples int) (dataset.Dataset, error)
}

// Publisher persists a trained bundle and makes it current.
type Publisher interface {
	Publish(ctx context.Context, m model.Model) error
}
