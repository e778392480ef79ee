// Package split partitions labeled rows while preserving class proportions.
package split

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

// MinRowsPerClass is the smallest class size a stratified split accepts.
const MinRowsPerClass = 2

// Partition lists row indices into the source set, ascending.
type Partition struct {
	Train []int
	Test  []int
}

// byClass groups indices by label and fails if any class has too few rows.
func byClass(labels []domain.Label, minRows int) ([domain.NumClasses][]int, error) {
	var groups [domain.NumClasses][]int
	for i, l := range labels {
		if int(l) < 0 || int(l) >= domain.NumClasses {
			return groups, fmt.Errorf("row %d: label %d: %w", i, l, domain.ErrInvalidInput)
		}
		groups[l] = append(groups[l], i)
	}
	for c, g := range groups {
		if len(g) < minRows {
			return groups, fmt.Errorf("class %s has %d rows, need at least %d: %w",
				domain.Label(c), len(g), minRows, domain.ErrInsufficientClassDiversity)
		}
	}
	return groups, nil
}

// Stratified splits rows into train and test so each class contributes
// round(testFraction * n_c) rows to the test side, at least one and leaving
// at least one for training. The same seed yields the same partition.
func Stratified(labels []domain.Label, testFraction float64, seed uint64) (Partition, error) {
	if testFraction <= 0 || testFraction >= 1 {
		return Partition{}, fmt.Errorf("test fraction %v outside (0, 1): %w", testFraction, domain.ErrInvalidInput)
	}
	groups, err := byClass(labels, MinRowsPerClass)
	if err != nil {
		return Partition{}, err
	}

	rng := rand.New(rand.NewPCG(seed, 0))
	var p Partition
	for _, g := range groups {
		idx := append([]int(nil), g...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testFraction * float64(len(idx))))
		nTest = min(max(nTest, 1), len(idx)-1)
		p.Test = append(p.Test, idx[:nTest]...)
		p.Train = append(p.Train, idx[nTest:]...)
	}
	sort.Ints(p.Train)
	sort.Ints(p.Test)
	return p, nil
}

// KFold returns k stratified folds over labels. Each class is shuffled and
// dealt round-robin, so fold sizes per class differ by at most one.
// Every row appears in exactly one fold's Test set.
func KFold(labels []domain.Label, k int, seed uint64) ([]Partition, error) {
	if k < 2 {
		return nil, fmt.Errorf("k=%d: need at least 2 folds: %w", k, domain.ErrInvalidInput)
	}
	groups, err := byClass(labels, k)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, 1))
	fold := make([]int, len(labels))
	for _, g := range groups {
		idx := append([]int(nil), g...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for pos, row := range idx {
			fold[row] = pos % k
		}
	}

	parts := make([]Partition, k)
	for row, f := range fold {
		for j := range parts {
			if j == f {
				parts[j].Test = append(parts[j].Test, row)
			} else {
				parts[j].Train = append(parts[j].Train, row)
			}
		}
	}
	return parts, nil
}

// Select gathers rows by index.
func Select[T any](rows []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}
