// Package prediction holds per-sequence inference results and their batch summary.
package prediction

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/sequence"
)

// Result is the classification of one input sequence (immutable value object).
type Result struct {
	index         int
	sequenceID    string
	preview       string
	label         domain.Label
	confidence    float64
	probabilities []float64
	composition   sequence.Composition
	fallback      bool
	modelName     string
	timestamp     time.Time
}

// Input groups the values a Result is built from.
type Input struct {
	Index         int
	SequenceID    string
	Raw           string
	Probabilities []float64
	Fallback      bool
	ModelName     string
	Timestamp     time.Time
}

// PreviewLength is the number of sequence characters echoed back in a Result.
const PreviewLength = 50

// New derives the label, confidence and descriptive statistics of a sequence.
func New(in Input) Result {
	label, confidence := domain.PredictionFromProba(in.Probabilities)
	proba := make([]float64, len(in.Probabilities))
	copy(proba, in.Probabilities)
	return Result{
		index:         in.Index,
		sequenceID:    in.SequenceID,
		preview:       sequence.Preview(in.Raw, PreviewLength),
		label:         label,
		confidence:    confidence,
		probabilities: proba,
		composition:   sequence.Compose(in.Raw),
		fallback:      in.Fallback,
		modelName:     in.ModelName,
		timestamp:     in.Timestamp,
	}
}

// Index returns the 1-based position of the sequence in the input.
func (r Result) Index() int { return r.index }

// SequenceID returns the record identifier.
func (r Result) SequenceID() string { return r.sequenceID }

// Preview returns the truncated raw sequence.
func (r Result) Preview() string { return r.preview }

// Label returns the predicted class.
func (r Result) Label() domain.Label { return r.label }

// Confidence returns the probability mass of the predicted class.
func (r Result) Confidence() float64 { return r.confidence }

// Probabilities returns a copy of the class distribution indexed by label.
func (r Result) Probabilities() []float64 {
	cp := make([]float64, len(r.probabilities))
	copy(cp, r.probabilities)
	return cp
}

// Probability returns the probability of label.
func (r Result) Probability(label domain.Label) float64 {
	if int(label) >= len(r.probabilities) {
		return 0
	}
	return r.probabilities[label]
}

// Composition returns length and GC/AT content.
func (r Result) Composition() sequence.Composition { return r.composition }

// Fallback reports whether the filler sequence replaced a too-short input.
func (r Result) Fallback() bool { return r.fallback }

// ModelName returns the classifier that produced the result.
func (r Result) ModelName() string { return r.modelName }

// Timestamp returns when the prediction was made.
func (r Result) Timestamp() time.Time { return r.timestamp }

// Summary aggregates a batch of results.
type Summary struct {
	Total             int
	Viral             int
	NonViral          int
	Discarded         int
	Fallbacks         int
	AverageConfidence float64
	ConfidenceStdDev  float64
}

// Summarize counts labels and computes confidence statistics.
// discarded is the number of inputs dropped before classification.
func Summarize(results []Result, discarded int) Summary {
	s := Summary{Total: len(results), Discarded: discarded}
	conf := make(stats.Float64Data, 0, len(results))
	for _, r := range results {
		if r.label.IsViral() {
			s.Viral++
		} else {
			s.NonViral++
		}
		if r.fallback {
			s.Fallbacks++
		}
		conf = append(conf, r.confidence)
	}
	if len(conf) > 0 {
		s.AverageConfidence, _ = stats.Mean(conf)
		s.ConfidenceStdDev, _ = stats.StandardDeviation(conf)
	}
	return s
}

// Majority returns the label predicted for most sequences; ties go to non-viral.
func (s Summary) Majority() domain.Label {
	if s.Viral > s.NonViral {
		return domain.LabelViral
	}
	return domain.LabelNonViral
}
