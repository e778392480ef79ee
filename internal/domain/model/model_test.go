package model

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/evaluation"
	"github.com/kailas-cloud/viralscan/internal/domain/vocabulary"
)

type stubClassifier struct {
	importances []float64
	width       int
}

func (s *stubClassifier) Name() string          { return "Stub" }
func (s *stubClassifier) Family() domain.Family { return domain.FamilyRandomForest }
func (s *stubClassifier) Fit(context.Context, [][]float64, []domain.Label) error {
	return nil
}
func (s *stubClassifier) Predict(x [][]float64) ([]domain.Label, error) {
	return make([]domain.Label, len(x)), nil
}
func (s *stubClassifier) PredictProba(x [][]float64) ([][]float64, error) {
	return nil, nil
}
func (s *stubClassifier) MarshalBinary() ([]byte, error) { return nil, nil }
func (s *stubClassifier) FeatureImportances() []float64  { return s.importances }
func (s *stubClassifier) Width() int {
	if s.width > 0 {
		return s.width
	}
	return len(s.importances)
}

func mustVocab(t *testing.T, tokens ...string) *vocabulary.Vocabulary {
	t.Helper()
	v, err := vocabulary.FromTokens(tokens)
	if err != nil {
		t.Fatalf("FromTokens: %v", err)
	}
	return v
}

func TestNew(t *testing.T) {
	c := &stubClassifier{importances: []float64{0.2, 0.5, 0.3}}
	m, err := New(c, mustVocab(t, "AAA", "CCC", "GGG"), 3, evaluation.Report{Accuracy: 0.9}, Dataset{Rows: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.ID() == "" || m.CreatedAt() == 0 {
		t.Errorf("missing id/createdAt: %q %d", m.ID(), m.CreatedAt())
	}
	if !m.Trained() || m.Accuracy() != 0.9 || m.K() != 3 || m.Name() != "Stub" {
		t.Errorf("unexpected model: %+v", m)
	}

	top := m.TopFeatures(2)
	if len(top) != 2 || top[0].Token != "CCC" || top[1].Token != "GGG" {
		t.Errorf("TopFeatures(2) = %+v", top)
	}
}

func TestNew_IDsDiffer(t *testing.T) {
	v := mustVocab(t, "AAA")
	a, _ := New(&stubClassifier{importances: []float64{1}}, v, 3, evaluation.Report{}, Dataset{})
	b, _ := New(&stubClassifier{importances: []float64{1}}, v, 3, evaluation.Report{}, Dataset{})
	if a.ID() == b.ID() {
		t.Error("expected distinct ids")
	}
}

func TestNew_Validation(t *testing.T) {
	v := mustVocab(t, "AAA", "CCC")
	tests := []struct {
		name string
		c    domain.Classifier
		v    *vocabulary.Vocabulary
		k    int
		want error
	}{
		{"nil classifier", nil, v, 3, domain.ErrInvalidInput},
		{"nil vocab", &stubClassifier{}, nil, 3, domain.ErrInvalidInput},
		{"bad k", &stubClassifier{importances: []float64{1, 0}}, v, 0, domain.ErrInvalidInput},
		{"importance width", &stubClassifier{importances: []float64{1}, width: 2}, v, 3, domain.ErrVocabularyMismatch},
		{"classifier width", &stubClassifier{width: 3}, v, 3, domain.ErrVocabularyMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.c, tt.v, tt.k, evaluation.Report{}, Dataset{})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTopFeatures_TiesAndEmpty(t *testing.T) {
	m := Reconstruct("id", &stubClassifier{}, mustVocab(t, "AAA", "CCC", "GGG"), 3,
		evaluation.Report{}, []float64{0.5, 0, 0.5}, Dataset{}, 1)
	top := m.TopFeatures(10)
	if len(top) != 3 || top[0].Token != "AAA" || top[1].Token != "GGG" {
		t.Errorf("TopFeatures = %+v", top)
	}

	m = Reconstruct("id", &stubClassifier{}, mustVocab(t, "AAA"), 3, evaluation.Report{}, nil, Dataset{}, 1)
	if m.TopFeatures(5) != nil {
		t.Error("expected nil for backend without importances")
	}
}
