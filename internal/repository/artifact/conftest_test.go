package artifact

import (
	"context"
	"testing"

	"github.com/kailas-cloud/viralscan/internal/db"
	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/evaluation"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
	"github.com/kailas-cloud/viralscan/internal/domain/vocabulary"
	"github.com/kailas-cloud/viralscan/internal/ml"
)

// mockStore implements the consumer interface for tests, backed by maps.
type mockStore struct {
	blobs  map[string][]byte
	hashes map[string]map[string]string

	pingErr error
	setErr  error
	hsetErr error
}

func newMockStore() *mockStore {
	return &mockStore{blobs: map[string][]byte{}, hashes: map[string]map[string]string{}}
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.blobs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

// SetWithHash applies both writes or neither, like MULTI/EXEC.
func (m *mockStore) SetWithHash(
	_ context.Context, key string, value []byte, hashKey string, fields map[string]string,
) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.hsetErr != nil {
		return m.hsetErr
	}
	m.blobs[key] = append([]byte(nil), value...)
	h := m.hashes[hashKey]
	if h == nil {
		h = map[string]string{}
		m.hashes[hashKey] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return h, nil
}

var testRows = [][]float64{
	{3, 0, 1}, {2, 0, 1}, {4, 1, 0}, {3, 1, 0},
	{0, 3, 1}, {0, 4, 0}, {1, 3, 1}, {0, 2, 1},
}

var testLabels = []domain.Label{0, 0, 0, 0, 1, 1, 1, 1}

// trainedModel fits a small forest or knn and wraps it in a bundle.
func trainedModel(t *testing.T, family domain.Family) model.Model {
	t.Helper()
	p := ml.DefaultParams()
	p.Family = family
	p.Forest.Trees = 4
	p.Forest.MinSamplesSplit = 2
	p.Forest.MinSamplesLeaf = 1
	p.KNN.Neighbors = 3

	c, err := ml.New(p)
	if err != nil {
		t.Fatalf("ml.New: %v", err)
	}
	if err := c.Fit(context.Background(), testRows, testLabels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vocab, err := vocabulary.FromTokens([]string{"AAA", "CCC", "GGG"})
	if err != nil {
		t.Fatalf("FromTokens: %v", err)
	}
	report := evaluation.Report{Accuracy: 0.875, TrainSize: 6, TestSize: 2}
	m, err := model.New(c, vocab, 3, report, model.Dataset{Source: "train.csv", Rows: 8})
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return m
}
