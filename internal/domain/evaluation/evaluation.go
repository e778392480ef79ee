// Package evaluation scores binary predictions against ground truth.
package evaluation

import (
	"fmt"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

// ConfusionMatrix counts predicted vs actual outcomes, viral being the positive class.
type ConfusionMatrix struct {
	TrueNegative  int
	FalsePositive int
	FalseNegative int
	TruePositive  int
}

// NewConfusionMatrix tallies actual against predicted labels of equal length.
func NewConfusionMatrix(actual, predicted []domain.Label) (ConfusionMatrix, error) {
	if len(actual) != len(predicted) {
		return ConfusionMatrix{}, fmt.Errorf(
			"actual has %d labels, predicted %d: %w", len(actual), len(predicted), domain.ErrInvalidInput,
		)
	}
	var cm ConfusionMatrix
	for i := range actual {
		switch {
		case !actual[i].IsViral() && !predicted[i].IsViral():
			cm.TrueNegative++
		case !actual[i].IsViral() && predicted[i].IsViral():
			cm.FalsePositive++
		case actual[i].IsViral() && !predicted[i].IsViral():
			cm.FalseNegative++
		default:
			cm.TruePositive++
		}
	}
	return cm, nil
}

// Total returns the number of scored rows.
func (c ConfusionMatrix) Total() int {
	return c.TrueNegative + c.FalsePositive + c.FalseNegative + c.TruePositive
}

// Accuracy returns the fraction of correct predictions, 0 for an empty matrix.
func (c ConfusionMatrix) Accuracy() float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.TrueNegative+c.TruePositive) / float64(c.Total())
}

// ClassScore holds precision, recall and F1 for one class.
type ClassScore struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Score returns the per-class scores of label.
func (c ConfusionMatrix) Score(label domain.Label) ClassScore {
	var tp, fp, fn int
	if label.IsViral() {
		tp, fp, fn = c.TruePositive, c.FalsePositive, c.FalseNegative
	} else {
		tp, fp, fn = c.TrueNegative, c.FalseNegative, c.FalsePositive
	}
	s := ClassScore{Support: tp + fn}
	if tp+fp > 0 {
		s.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		s.Recall = float64(tp) / float64(tp+fn)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// Report is the held-out evaluation of a trained model.
type Report struct {
	Matrix    ConfusionMatrix
	Accuracy  float64
	Viral     ClassScore
	NonViral  ClassScore
	TrainSize int
	TestSize  int
}

// NewReport scores predicted against actual on the test partition.
func NewReport(actual, predicted []domain.Label, trainSize int) (Report, error) {
	cm, err := NewConfusionMatrix(actual, predicted)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Matrix:    cm,
		Accuracy:  cm.Accuracy(),
		Viral:     cm.Score(domain.LabelViral),
		NonViral:  cm.Score(domain.LabelNonViral),
		TrainSize: trainSize,
		TestSize:  cm.Total(),
	}, nil
}

// F1 is the viral-class F1 of actual vs predicted, used to rank search candidates.
func F1(actual, predicted []domain.Label) (float64, error) {
	cm, err := NewConfusionMatrix(actual, predicted)
	if err != nil {
		return 0, err
	}
	return cm.Score(domain.LabelViral).F1, nil
}
