// Package model holds the trained bundle: classifier, frozen vocabulary and evaluation.
package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/evaluation"
	"github.com/kailas-cloud/viralscan/internal/domain/vocabulary"
)

// Dataset describes the corpus a model was trained from.
type Dataset struct {
	Source    string
	Rows      int
	Skipped   int
	Fallbacks int
}

// Importance is the weight of one vocabulary k-mer.
type Importance struct {
	Token string
	Score float64
}

// Model is the trained bundle (immutable value object). It is replaced
// wholesale on retraining, never patched.
type Model struct {
	id          string
	classifier  domain.Classifier
	vocab       *vocabulary.Vocabulary
	k           int
	report      evaluation.Report
	importances []float64
	dataset     Dataset
	createdAt   int64
}

// New validates and creates a Model with a fresh id.
func New(
	c domain.Classifier, vocab *vocabulary.Vocabulary, k int,
	report evaluation.Report, dataset Dataset,
) (Model, error) {
	if c == nil {
		return Model{}, fmt.Errorf("classifier is required: %w", domain.ErrInvalidInput)
	}
	if vocab == nil || vocab.Size() == 0 {
		return Model{}, fmt.Errorf("vocabulary is empty: %w", domain.ErrInvalidInput)
	}
	if k < 1 {
		return Model{}, fmt.Errorf("k must be positive: %w", domain.ErrInvalidInput)
	}

	if w := c.Width(); w != vocab.Size() {
		return Model{}, fmt.Errorf("classifier width %d for %d vocabulary columns: %w",
			w, vocab.Size(), domain.ErrVocabularyMismatch)
	}

	var importances []float64
	if fi, ok := c.(domain.FeatureImporter); ok {
		importances = fi.FeatureImportances()
		if len(importances) != vocab.Size() {
			return Model{}, fmt.Errorf("%d importances for %d columns: %w",
				len(importances), vocab.Size(), domain.ErrVocabularyMismatch)
		}
	}

	return Model{
		id:          uuid.NewString(),
		classifier:  c,
		vocab:       vocab,
		k:           k,
		report:      report,
		importances: importances,
		dataset:     dataset,
		createdAt:   time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Model without validation (storage hydration).
func Reconstruct(
	id string, c domain.Classifier, vocab *vocabulary.Vocabulary, k int,
	report evaluation.Report, importances []float64, dataset Dataset, createdAt int64,
) Model {
	return Model{
		id:          id,
		classifier:  c,
		vocab:       vocab,
		k:           k,
		report:      report,
		importances: importances,
		dataset:     dataset,
		createdAt:   createdAt,
	}
}

// ID returns the model identifier.
func (m Model) ID() string { return m.id }

// Classifier returns the fitted backend.
func (m Model) Classifier() domain.Classifier { return m.classifier }

// Family returns the classifier family.
func (m Model) Family() domain.Family {
	if m.classifier == nil {
		return ""
	}
	return m.classifier.Family()
}

// Name returns the human-readable classifier name.
func (m Model) Name() string {
	if m.classifier == nil {
		return ""
	}
	return m.classifier.Name()
}

// Vocabulary returns the frozen vocabulary used at training time.
func (m Model) Vocabulary() *vocabulary.Vocabulary { return m.vocab }

// K returns the k-mer length.
func (m Model) K() int { return m.k }

// Trained reports whether the bundle holds a fitted classifier.
func (m Model) Trained() bool { return m.classifier != nil && m.vocab != nil }

// Report returns the held-out evaluation.
func (m Model) Report() evaluation.Report { return m.report }

// Accuracy returns the last measured test accuracy.
func (m Model) Accuracy() float64 { return m.report.Accuracy }

// Importances returns per-column importances, or nil when the backend has none.
func (m Model) Importances() []float64 { return m.importances }

// Dataset returns the training corpus description.
func (m Model) Dataset() Dataset { return m.dataset }

// CreatedAt returns the creation timestamp (unix millis).
func (m Model) CreatedAt() int64 { return m.createdAt }

// TopFeatures returns the n most important k-mers, highest first.
// Equal scores order by token.
func (m Model) TopFeatures(n int) []Importance {
	if len(m.importances) == 0 || n <= 0 {
		return nil
	}
	all := make([]Importance, len(m.importances))
	for i, s := range m.importances {
		all[i] = Importance{Token: m.vocab.Token(i), Score: s}
	}
	sort.Slice(all, func(a, b int) bool {
		if all[a].Score != all[b].Score {
			return all[a].Score > all[b].Score
		}
		return all[a].Token < all[b].Token
	})
	return all[:min(n, len(all))]
}
