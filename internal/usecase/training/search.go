package training

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/evaluation"
	"github.com/kailas-cloud/viralscan/internal/ml"
	"github.com/kailas-cloud/viralscan/internal/ml/split"
)

// DefaultFolds is the cross-validation fold count when a grid is configured.
const DefaultFolds = 5

// Grid lists candidate hyperparameter values. Empty slices keep the base value.
// Only the fields of the configured family are expanded.
type Grid struct {
	Neighbors []int
	Trees     []int
	MaxDepth  []int
}

// Empty reports whether the grid would yield only the base parameters.
func (g Grid) Empty(family domain.Family) bool {
	switch family {
	case domain.FamilyKNN:
		return len(g.Neighbors) == 0
	case domain.FamilyRandomForest:
		return len(g.Trees) == 0 && len(g.MaxDepth) == 0
	default:
		return true
	}
}

// Candidates expands the grid over base in a stable order.
func (g Grid) Candidates(base ml.Params) []ml.Params {
	switch base.Family {
	case domain.FamilyKNN:
		if len(g.Neighbors) == 0 {
			return []ml.Params{base}
		}
		out := make([]ml.Params, 0, len(g.Neighbors))
		for _, n := range g.Neighbors {
			p := base
			p.KNN.Neighbors = n
			out = append(out, p)
		}
		return out
	case domain.FamilyRandomForest:
		trees := g.Trees
		if len(trees) == 0 {
			trees = []int{base.Forest.Trees}
		}
		depths := g.MaxDepth
		if len(depths) == 0 {
			depths = []int{base.Forest.MaxDepth}
		}
		out := make([]ml.Params, 0, len(trees)*len(depths))
		for _, t := range trees {
			for _, d := range depths {
				p := base
				p.Forest.Trees = t
				p.Forest.MaxDepth = d
				out = append(out, p)
			}
		}
		return out
	default:
		return []ml.Params{base}
	}
}

// CandidateScore is the cross-validated viral-class F1 of one candidate.
type CandidateScore struct {
	Params ml.Params
	MeanF1 float64
	StdF1  float64
}

// search runs stratified k-fold CV for every candidate on the training
// partition and returns the best one. Ties keep the earlier candidate.
func search(
	ctx context.Context, candidates []ml.Params, folds int, seed uint64,
	x [][]float64, y []domain.Label,
) (ml.Params, []CandidateScore, error) {
	parts, err := split.KFold(y, folds, seed)
	if err != nil {
		return ml.Params{}, nil, fmt.Errorf("k-fold: %w", err)
	}

	scores := make([]CandidateScore, 0, len(candidates))
	best := -1
	for _, p := range candidates {
		f1s := make(stats.Float64Data, 0, len(parts))
		for _, part := range parts {
			f1, err := foldF1(ctx, p, part, x, y)
			if err != nil {
				return ml.Params{}, nil, err
			}
			f1s = append(f1s, f1)
		}
		mean, _ := stats.Mean(f1s)
		std, _ := stats.StandardDeviation(f1s)
		scores = append(scores, CandidateScore{Params: p, MeanF1: mean, StdF1: std})
		if best < 0 || mean > scores[best].MeanF1 {
			best = len(scores) - 1
		}
	}
	return scores[best].Params, scores, nil
}

func foldF1(ctx context.Context, p ml.Params, part split.Partition, x [][]float64, y []domain.Label) (float64, error) {
	clf, err := ml.New(p)
	if err != nil {
		return 0, err
	}
	if err := clf.Fit(ctx, split.Select(x, part.Train), split.Select(y, part.Train)); err != nil {
		return 0, fmt.Errorf("fit fold: %w", err)
	}
	pred, err := clf.Predict(split.Select(x, part.Test))
	if err != nil {
		return 0, fmt.Errorf("predict fold: %w", err)
	}
	return evaluation.F1(split.Select(y, part.Test), pred)
}
