package inference

import "github.com/kailas-cloud/viralscan/internal/domain/model"

// ModelSource provides the current trained bundle.
type ModelSource interface {
	Current() (model.Model, error)
}
