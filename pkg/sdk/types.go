package viralscan

import (
	"io"
	"time"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/evaluation"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
	"github.com/kailas-cloud/viralscan/internal/domain/prediction"
	"github.com/kailas-cloud/viralscan/internal/report"
	"github.com/kailas-cloud/viralscan/internal/usecase/inference"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
)

// Label is a predicted class.
type Label string

// Class labels.
const (
	Viral    Label = "Viral"
	NonViral Label = "Non-Viral"
)

// ConfusionMatrix counts held-out outcomes, viral being the positive class.
type ConfusionMatrix struct {
	TrueNegative  int
	FalsePositive int
	FalseNegative int
	TruePositive  int
}

// ClassScore holds precision, recall and F1 for one class.
type ClassScore struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Feature is a k-mer and its importance in the forest.
type Feature struct {
	Kmer       string
	Importance float64
}

// ModelInfo describes a trained model.
type ModelInfo struct {
	ID             string
	Name           string
	Family         Family
	K              int
	VocabularySize int
	Accuracy       float64
	Matrix         ConfusionMatrix
	Viral          ClassScore
	NonViral       ClassScore
	TrainSize      int
	TestSize       int
	TopFeatures    []Feature
	CreatedAt      time.Time
}

// TrainingResult is the outcome of Client.Train.
type TrainingResult struct {
	Model    ModelInfo
	Duration time.Duration
}

// Sequence is one input to Client.PredictSequences.
type Sequence struct {
	ID    string
	Bases string
}

// SequencePrediction is the classification of one sequence.
type SequencePrediction struct {
	Index               int
	SequenceID          string
	Preview             string
	Label               Label
	Confidence          float64
	ViralProbability    float64
	NonViralProbability float64
	Length              int
	GCContent           float64
	ATContent           float64
	Fallback            bool
}

// Summary aggregates a prediction batch.
type Summary struct {
	Total             int
	Viral             int
	NonViral          int
	Discarded         int
	AverageConfidence float64
	ConfidenceStdDev  float64
	Majority          Label
}

// Prediction is the outcome of Client.Predict.
type Prediction struct {
	Model   ModelInfo
	Results []SequencePrediction
	Summary Summary

	results []prediction.Result
}

// WriteCSV writes the detailed per-sequence export with a header row.
func (p Prediction) WriteCSV(w io.Writer) error {
	return report.WriteCSV(w, p.results)
}

// --- converters ---

func modelInfoFromDomain(m model.Model) ModelInfo {
	r := m.Report()
	info := ModelInfo{
		ID:             m.ID(),
		Name:           m.Name(),
		Family:         Family(m.Family()),
		K:              m.K(),
		VocabularySize: m.Vocabulary().Size(),
		Accuracy:       r.Accuracy,
		Matrix: ConfusionMatrix{
			TrueNegative:  r.Matrix.TrueNegative,
			FalsePositive: r.Matrix.FalsePositive,
			FalseNegative: r.Matrix.FalseNegative,
			TruePositive:  r.Matrix.TruePositive,
		},
		Viral:     classScoreFromDomain(r.Viral),
		NonViral:  classScoreFromDomain(r.NonViral),
		TrainSize: r.TrainSize,
		TestSize:  r.TestSize,
		CreatedAt: time.UnixMilli(m.CreatedAt()).UTC(),
	}
	for _, f := range m.TopFeatures(training.TopFeatures) {
		info.TopFeatures = append(info.TopFeatures, Feature{Kmer: f.Token, Importance: f.Score})
	}
	return info
}

func classScoreFromDomain(s evaluation.ClassScore) ClassScore {
	return ClassScore{Precision: s.Precision, Recall: s.Recall, F1: s.F1, Support: s.Support}
}

func labelFromDomain(l domain.Label) Label {
	if l.IsViral() {
		return Viral
	}
	return NonViral
}

func predictionFromOutcome(out inference.Outcome) Prediction {
	p := Prediction{
		Model:   modelInfoFromDomain(out.Model),
		Results: make([]SequencePrediction, len(out.Results)),
		Summary: Summary{
			Total:             out.Summary.Total,
			Viral:             out.Summary.Viral,
			NonViral:          out.Summary.NonViral,
			Discarded:         out.Summary.Discarded,
			AverageConfidence: out.Summary.AverageConfidence,
			ConfidenceStdDev:  out.Summary.ConfidenceStdDev,
			Majority:          labelFromDomain(out.Summary.Majority()),
		},
		results: out.Results,
	}
	for i, r := range out.Results {
		c := r.Composition()
		p.Results[i] = SequencePrediction{
			Index:               r.Index(),
			SequenceID:          r.SequenceID(),
			Preview:             r.Preview(),
			Label:               labelFromDomain(r.Label()),
			Confidence:          r.Confidence(),
			ViralProbability:    r.Probability(domain.LabelViral),
			NonViralProbability: r.Probability(domain.LabelNonViral),
			Length:              c.Length,
			GCContent:           c.GCContent,
			ATContent:           c.ATContent,
			Fallback:            r.Fallback(),
		}
	}
	return p
}
