package health

import "context"

// StoragePinger checks artifact storage availability.
type StoragePinger interface {
	Check(ctx context.Context) error
}

// ModelState reports the published model.
type ModelState interface {
	Ready() bool
	Accuracy() (float64, bool)
}

// DatasetProbe reports whether the training dataset is present.
type DatasetProbe func(path string) bool
