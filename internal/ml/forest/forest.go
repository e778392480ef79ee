// Package forest implements a bagged ensemble of CART classification trees.
package forest

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/ml/matrix"
)

// Name is the human-readable name reported with predictions.
const Name = "Random Forest"

// Defaults for Params.
const (
	DefaultTrees           = 100
	DefaultMaxDepth        = 15
	DefaultMinSamplesSplit = 5
	DefaultMinSamplesLeaf  = 2
	DefaultSeed            = 42
)

// Params configures tree growth.
type Params struct {
	Trees           int
	MaxDepth        int // 0 = unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is the number of candidate columns per split; 0 means sqrt(width).
	MaxFeatures int
	Seed        uint64
	Workers     int
}

// DefaultParams returns the ensemble defaults.
func DefaultParams() Params {
	return Params{
		Trees:           DefaultTrees,
		MaxDepth:        DefaultMaxDepth,
		MinSamplesSplit: DefaultMinSamplesSplit,
		MinSamplesLeaf:  DefaultMinSamplesLeaf,
		Seed:            DefaultSeed,
	}
}

// Validate rejects unusable parameters.
func (p Params) Validate() error {
	var errs []error
	if p.Trees < 1 {
		errs = append(errs, errors.New("trees must be >= 1"))
	}
	if p.MaxDepth < 0 {
		errs = append(errs, errors.New("max_depth must be >= 0"))
	}
	if p.MinSamplesSplit < 2 {
		errs = append(errs, errors.New("min_samples_split must be >= 2"))
	}
	if p.MinSamplesLeaf < 1 {
		errs = append(errs, errors.New("min_samples_leaf must be >= 1"))
	}
	if p.MaxFeatures < 0 {
		errs = append(errs, errors.New("max_features must be >= 0"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// Forest is a random forest classifier.
type Forest struct {
	mu          sync.RWMutex
	params      Params
	width       int
	trees       []Tree
	importances []float64
}

var _ domain.Classifier = (*Forest)(nil)
var _ domain.FeatureImporter = (*Forest)(nil)

// New creates an unfitted forest.
func New(params Params) (*Forest, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Forest{params: params}, nil
}

// Name implements domain.Classifier.
func (f *Forest) Name() string { return Name }

// Family implements domain.Classifier.
func (f *Forest) Family() domain.Family { return domain.FamilyRandomForest }

// Width implements domain.Classifier.
func (f *Forest) Width() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.width
}

// Params returns the growth parameters.
func (f *Forest) Params() Params { return f.params }

// Fit grows Params.Trees trees in parallel. Tree i draws from its own stream
// seeded with (Seed, i), so equal inputs give equal forests for any worker count.
func (f *Forest) Fit(ctx context.Context, features [][]float64, labels []domain.Label) error {
	width, err := matrix.Check(features, labels)
	if err != nil {
		return err
	}
	if width == 0 {
		return fmt.Errorf("zero-width feature matrix: %w", domain.ErrInvalidInput)
	}

	maxFeatures := f.params.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = int(math.Sqrt(float64(width)))
	}
	maxFeatures = min(max(maxFeatures, 1), width)

	trees := make([]Tree, f.params.Trees)
	perTree := make([][]float64, f.params.Trees)
	err = matrix.ForEach(ctx, f.params.Trees, f.params.Workers, func(_ context.Context, i int) error {
		rng := rand.New(rand.NewPCG(f.params.Seed, uint64(i)))
		g := newGrower(features, labels, f.params, maxFeatures, rng)
		trees[i] = g.grow(g.bootstrap())
		perTree[i] = normalize(g.importance)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fit forest: %w", err)
	}

	importances := make([]float64, width)
	for _, imp := range perTree {
		for j, v := range imp {
			importances[j] += v
		}
	}
	importances = normalize(importances)

	f.mu.Lock()
	f.width = width
	f.trees = trees
	f.importances = importances
	f.mu.Unlock()
	return nil
}

func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	out := make([]float64, len(v))
	if sum == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}

// PredictProba averages the leaf distributions of all trees.
func (f *Forest) PredictProba(features [][]float64) ([][]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.trees == nil {
		return nil, domain.ErrModelNotReady
	}
	if err := matrix.CheckWidth(features, f.width); err != nil {
		return nil, err
	}

	out := make([][]float64, len(features))
	scale := 1 / float64(len(f.trees))
	err := matrix.ForEach(context.Background(), len(features), f.params.Workers, func(_ context.Context, i int) error {
		row := make([]float64, domain.NumClasses)
		for t := range f.trees {
			p := f.trees[t].Proba(features[i])
			for c := range p {
				row[c] += p[c]
			}
		}
		for c := range row {
			row[c] *= scale
		}
		out[i] = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Predict returns the argmax label per row.
func (f *Forest) Predict(features [][]float64) ([]domain.Label, error) {
	proba, err := f.PredictProba(features)
	if err != nil {
		return nil, err
	}
	labels := make([]domain.Label, len(proba))
	for i, p := range proba {
		labels[i], _ = domain.PredictionFromProba(p)
	}
	return labels, nil
}

// FeatureImportances returns mean decrease in Gini impurity per column, summing to 1.
func (f *Forest) FeatureImportances() []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]float64, len(f.importances))
	copy(out, f.importances)
	return out
}

type snapshot struct {
	Params      Params
	Width       int
	Trees       []Tree
	Importances []float64
}

// MarshalBinary encodes a fitted forest.
func (f *Forest) MarshalBinary() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.trees == nil {
		return nil, domain.ErrModelNotReady
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		Params:      f.params,
		Width:       f.width,
		Trees:       f.trees,
		Importances: f.importances,
	})
	if err != nil {
		return nil, fmt.Errorf("encode forest: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore decodes a forest written by MarshalBinary.
func Restore(data []byte) (*Forest, error) {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode forest: %w: %w", domain.ErrArtifactCorrupt, err)
	}
	if len(s.Trees) == 0 || s.Width <= 0 {
		return nil, fmt.Errorf("decode forest: empty ensemble: %w", domain.ErrArtifactCorrupt)
	}
	for i, t := range s.Trees {
		if err := checkTree(t, s.Width); err != nil {
			return nil, fmt.Errorf("decode forest: tree %d: %w: %w", i, domain.ErrArtifactCorrupt, err)
		}
	}
	return &Forest{params: s.Params, width: s.Width, trees: s.Trees, importances: s.Importances}, nil
}

// checkTree rejects node references that would index out of range or loop.
func checkTree(t Tree, width int) error {
	if len(t.Nodes) == 0 {
		return errors.New("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: bad child reference", i)
		}
	}
	return nil
}
