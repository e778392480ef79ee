package domain

import (
	"context"
	"encoding"
	"fmt"
)

// Family names an interchangeable classifier backend.
type Family string

const (
	// FamilyRandomForest is the bagged tree ensemble backend.
	FamilyRandomForest Family = "random_forest"
	// FamilyKNN is the k-nearest-neighbors backend.
	FamilyKNN Family = "knn"
)

// IsValid checks if the family is supported.
func (f Family) IsValid() bool {
	return f == FamilyRandomForest || f == FamilyKNN
}

// ParseFamily validates a configured family name.
func ParseFamily(s string) (Family, error) {
	f := Family(s)
	if !f.IsValid() {
		return "", fmt.Errorf("unknown classifier family %q: %w", s, ErrInvalidInput)
	}
	return f, nil
}

// Classifier is the shared fit/predict contract between the pipelines and backends.
// Implementations must be safe for concurrent Predict/PredictProba after Fit returns.
type Classifier interface {
	// Name is the human-readable model name, e.g. "Random Forest".
	Name() string
	Family() Family
	Fit(ctx context.Context, features [][]float64, labels []Label) error
	Predict(features [][]float64) ([]Label, error)
	// PredictProba returns one distribution of NumClasses entries per row.
	PredictProba(features [][]float64) ([][]float64, error)
	// Width is the number of feature columns seen by Fit, 0 before fitting.
	Width() int
	encoding.BinaryMarshaler
}

// FeatureImporter is implemented by backends that expose per-column importance.
type FeatureImporter interface {
	FeatureImportances() []float64
}

// PredictionFromProba picks the label with the highest probability.
// Ties resolve to the lower label, matching argmax order.
func PredictionFromProba(proba []float64) (Label, float64) {
	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	if len(proba) == 0 {
		return LabelNonViral, 0
	}
	return Label(best), proba[best]
}
