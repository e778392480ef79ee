// Package ml constructs and restores classifier backends by family.
package ml

import (
	"fmt"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/ml/forest"
	"github.com/kailas-cloud/viralscan/internal/ml/knn"
)

// Params selects a backend and carries the hyperparameters of each family.
// Only the block matching Family is read.
type Params struct {
	Family domain.Family
	Forest forest.Params
	KNN    knn.Params
}

// DefaultParams returns random-forest defaults.
func DefaultParams() Params {
	return Params{
		Family: domain.FamilyRandomForest,
		Forest: forest.DefaultParams(),
		KNN:    knn.DefaultParams(),
	}
}

// New returns an unfitted classifier for p.Family.
func New(p Params) (domain.Classifier, error) {
	switch p.Family {
	case domain.FamilyRandomForest:
		return forest.New(p.Forest)
	case domain.FamilyKNN:
		return knn.New(p.KNN)
	default:
		return nil, fmt.Errorf("classifier family %q: %w", p.Family, domain.ErrInvalidInput)
	}
}

// Restore decodes a classifier previously encoded with MarshalBinary.
func Restore(family domain.Family, data []byte) (domain.Classifier, error) {
	switch family {
	case domain.FamilyRandomForest:
		return forest.Restore(data)
	case domain.FamilyKNN:
		return knn.Restore(data)
	default:
		return nil, fmt.Errorf("classifier family %q: %w", family, domain.ErrArtifactCorrupt)
	}
}
