// Package knn implements a brute-force k-nearest-neighbors classifier.
package knn

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/ml/matrix"
)

// Name is the human-readable name reported with predictions.
const Name = "K-Nearest Neighbors"

// DefaultNeighbors is the neighbor count when none is configured.
const DefaultNeighbors = 5

// Params configures the classifier.
type Params struct {
	Neighbors int
	Workers   int
}

// DefaultParams returns the classifier defaults.
func DefaultParams() Params {
	return Params{Neighbors: DefaultNeighbors}
}

// Validate rejects unusable parameters.
func (p Params) Validate() error {
	if p.Neighbors < 1 {
		return fmt.Errorf("neighbors must be >= 1: %w", domain.ErrInvalidInput)
	}
	return nil
}

// KNN stores the training set and votes among the closest rows.
type KNN struct {
	mu     sync.RWMutex
	params Params
	x      [][]float64
	y      []domain.Label
}

var _ domain.Classifier = (*KNN)(nil)

// New creates an unfitted classifier.
func New(params Params) (*KNN, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &KNN{params: params}, nil
}

// Name implements domain.Classifier.
func (k *KNN) Name() string { return Name }

// Family implements domain.Classifier.
func (k *KNN) Family() domain.Family { return domain.FamilyKNN }

// Width implements domain.Classifier.
func (k *KNN) Width() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(k.x) == 0 {
		return 0
	}
	return len(k.x[0])
}

// Params returns the configured parameters.
func (k *KNN) Params() Params { return k.params }

// Fit copies the training set.
func (k *KNN) Fit(ctx context.Context, features [][]float64, labels []domain.Label) error {
	if _, err := matrix.Check(features, labels); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	x := make([][]float64, len(features))
	for i, row := range features {
		x[i] = append([]float64(nil), row...)
	}
	y := append([]domain.Label(nil), labels...)

	k.mu.Lock()
	k.x, k.y = x, y
	k.mu.Unlock()
	return nil
}

type neighbor struct {
	dist  float64
	index int
}

// PredictProba returns the fraction of each class among the k closest
// training rows by squared Euclidean distance. Equal distances keep the
// earlier training row.
func (k *KNN) PredictProba(features [][]float64) ([][]float64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.x == nil {
		return nil, domain.ErrModelNotReady
	}
	if err := matrix.CheckWidth(features, len(k.x[0])); err != nil {
		return nil, err
	}

	n := min(k.params.Neighbors, len(k.x))
	out := make([][]float64, len(features))
	err := matrix.ForEach(context.Background(), len(features), k.params.Workers, func(_ context.Context, i int) error {
		nb := make([]neighbor, len(k.x))
		for j, row := range k.x {
			nb[j] = neighbor{dist: squaredDistance(features[i], row), index: j}
		}
		sort.SliceStable(nb, func(a, b int) bool { return nb[a].dist < nb[b].dist })

		row := make([]float64, domain.NumClasses)
		for _, v := range nb[:n] {
			row[k.y[v.index]]++
		}
		for c := range row {
			row[c] /= float64(n)
		}
		out[i] = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Predict returns the majority label per row.
func (k *KNN) Predict(features [][]float64) ([]domain.Label, error) {
	proba, err := k.PredictProba(features)
	if err != nil {
		return nil, err
	}
	labels := make([]domain.Label, len(proba))
	for i, p := range proba {
		labels[i], _ = domain.PredictionFromProba(p)
	}
	return labels, nil
}

func squaredDistance(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

type snapshot struct {
	Params Params
	X      [][]float64
	Y      []domain.Label
}

// MarshalBinary encodes a fitted classifier.
func (k *KNN) MarshalBinary() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.x == nil {
		return nil, domain.ErrModelNotReady
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshot{Params: k.params, X: k.x, Y: k.y}); err != nil {
		return nil, fmt.Errorf("encode knn: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore decodes a classifier written by MarshalBinary.
func Restore(data []byte) (*KNN, error) {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode knn: %w: %w", domain.ErrArtifactCorrupt, err)
	}
	if len(s.X) == 0 || len(s.X) != len(s.Y) || s.Params.Validate() != nil {
		return nil, fmt.Errorf("decode knn: inconsistent snapshot: %w", domain.ErrArtifactCorrupt)
	}
	if _, err := matrix.Check(s.X, s.Y); err != nil {
		return nil, fmt.Errorf("decode knn: %w: %w", domain.ErrArtifactCorrupt, err)
	}
	return &KNN{params: s.Params, x: s.X, y: s.Y}, nil
}
