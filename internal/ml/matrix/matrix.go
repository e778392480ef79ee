// Package matrix holds input checks and the bounded worker loop shared by classifier backends.
package matrix

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

// Check validates a training set and returns its row width.
func Check(features [][]float64, labels []domain.Label) (int, error) {
	if len(features) == 0 {
		return 0, fmt.Errorf("empty training set: %w", domain.ErrInvalidInput)
	}
	if len(features) != len(labels) {
		return 0, fmt.Errorf("%d rows but %d labels: %w", len(features), len(labels), domain.ErrInvalidInput)
	}
	for i, l := range labels {
		if l != domain.LabelNonViral && l != domain.LabelViral {
			return 0, fmt.Errorf("row %d: label %d: %w", i, l, domain.ErrInvalidInput)
		}
	}
	width := len(features[0])
	if err := CheckWidth(features, width); err != nil {
		return 0, err
	}
	return width, nil
}

// CheckWidth verifies every row has exactly width columns.
func CheckWidth(features [][]float64, width int) error {
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), width, domain.ErrInvalidInput)
		}
	}
	return nil
}

// Workers resolves a configured worker count; <= 0 means one per available CPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// ForEach runs body(i) for i in [0, n) on at most workers goroutines.
// It stops scheduling new work once ctx is done or body fails and returns the first error.
func ForEach(ctx context.Context, n, workers int, body func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers(workers))
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return body(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// Wait cancels gctx; only the caller's context decides cancellation here.
	return ctx.Err()
}
