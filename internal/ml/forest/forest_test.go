package forest

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

// separable returns n rows where column 0 decides the label and the rest is noise.
func separable(n, width int, seed uint64) ([][]float64, []domain.Label) {
	rng := rand.New(rand.NewPCG(seed, 0))
	x := make([][]float64, n)
	y := make([]domain.Label, n)
	for i := range x {
		row := make([]float64, width)
		for j := range row {
			row[j] = rng.Float64()
		}
		if i%2 == 0 {
			row[0] = 5 + rng.Float64()
			y[i] = domain.LabelViral
		} else {
			row[0] = rng.Float64()
		}
		x[i] = row
	}
	return x, y
}

func smallParams() Params {
	p := DefaultParams()
	p.Trees = 15
	return p
}

func TestForest_FitsSeparableData(t *testing.T) {
	x, y := separable(80, 6, 1)
	f, err := New(smallParams())
	require.NoError(t, err)
	require.NoError(t, f.Fit(context.Background(), x, y))

	pred, err := f.Predict(x)
	require.NoError(t, err)
	correct := 0
	for i := range pred {
		if pred[i] == y[i] {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, 76)
}

func TestForest_ProbaRowsSumToOne(t *testing.T) {
	x, y := separable(40, 4, 2)
	f, err := New(smallParams())
	require.NoError(t, err)
	require.NoError(t, f.Fit(context.Background(), x, y))

	proba, err := f.PredictProba(x)
	require.NoError(t, err)
	for i, p := range proba {
		require.Len(t, p, domain.NumClasses)
		assert.InDelta(t, 1.0, p[0]+p[1], 1e-9, "row %d", i)
		assert.True(t, p[0] >= 0 && p[1] >= 0)
	}
}

func TestForest_DeterministicAcrossWorkerCounts(t *testing.T) {
	x, y := separable(60, 5, 3)
	p1 := smallParams()
	p1.Workers = 1
	p8 := smallParams()
	p8.Workers = 8

	f1, _ := New(p1)
	f8, _ := New(p8)
	require.NoError(t, f1.Fit(context.Background(), x, y))
	require.NoError(t, f8.Fit(context.Background(), x, y))

	a, err := f1.PredictProba(x)
	require.NoError(t, err)
	b, err := f8.PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestForest_ImportancesFavorSignalColumn(t *testing.T) {
	x, y := separable(100, 5, 4)
	p := smallParams()
	p.MaxFeatures = 5
	f, _ := New(p)
	require.NoError(t, f.Fit(context.Background(), x, y))

	imp := f.FeatureImportances()
	require.Len(t, imp, 5)
	var sum float64
	for j, v := range imp {
		sum += v
		if j > 0 {
			assert.Greater(t, imp[0], v)
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestForest_RoundTrip(t *testing.T) {
	x, y := separable(50, 4, 5)
	f, _ := New(smallParams())
	require.NoError(t, f.Fit(context.Background(), x, y))

	data, err := f.MarshalBinary()
	require.NoError(t, err)
	g, err := Restore(data)
	require.NoError(t, err)

	want, _ := f.PredictProba(x)
	got, err := g.PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, f.FeatureImportances(), g.FeatureImportances())
}

func TestForest_RestoreCorrupt(t *testing.T) {
	_, err := Restore([]byte("not a forest"))
	assert.ErrorIs(t, err, domain.ErrArtifactCorrupt)
}

func TestForest_NotFitted(t *testing.T) {
	f, _ := New(DefaultParams())
	_, err := f.PredictProba([][]float64{{1}})
	assert.ErrorIs(t, err, domain.ErrModelNotReady)
	_, err = f.MarshalBinary()
	assert.ErrorIs(t, err, domain.ErrModelNotReady)
}

func TestForest_WidthMismatch(t *testing.T) {
	x, y := separable(20, 3, 6)
	f, _ := New(smallParams())
	require.NoError(t, f.Fit(context.Background(), x, y))
	_, err := f.PredictProba([][]float64{{1, 2}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestForest_CanceledFit(t *testing.T) {
	x, y := separable(20, 3, 7)
	f, _ := New(smallParams())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.Fit(ctx, x, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForest_SingleClassLeaf(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []domain.Label{1, 1, 1, 1}
	f, _ := New(smallParams())
	require.NoError(t, f.Fit(context.Background(), x, y))
	proba, err := f.PredictProba([][]float64{{10}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, proba[0][domain.LabelViral])
}

func TestParams_Validate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())
	bad := DefaultParams()
	bad.Trees = 0
	bad.MinSamplesSplit = 1
	err := bad.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "trees")
	assert.Contains(t, err.Error(), "min_samples_split")
}

func TestGini(t *testing.T) {
	assert.Equal(t, 0.0, gini([domain.NumClasses]float64{4, 0}, 4))
	assert.True(t, math.Abs(gini([domain.NumClasses]float64{2, 2}, 4)-0.5) < 1e-12)
}
