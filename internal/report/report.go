// Package report renders models, training runs and predictions as JSON
// documents and CSV exports. The HTTP transport and the CLI share these shapes.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/evaluation"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
	"github.com/kailas-cloud/viralscan/internal/domain/prediction"
	"github.com/kailas-cloud/viralscan/internal/repository/artifact"
	"github.com/kailas-cloud/viralscan/internal/usecase/inference"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
)

// ConfusionMatrix is the 2x2 held-out confusion matrix, viral being positive.
type ConfusionMatrix struct {
	TrueNegative  int `json:"true_negative"`
	FalsePositive int `json:"false_positive"`
	FalseNegative int `json:"false_negative"`
	TruePositive  int `json:"true_positive"`
}

// ClassScore is precision, recall and F1 of one class.
type ClassScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation is the held-out scoring of a model.
type Evaluation struct {
	Accuracy        float64         `json:"accuracy"`
	ConfusionMatrix ConfusionMatrix `json:"confusion_matrix"`
	Viral           ClassScore      `json:"viral"`
	NonViral        ClassScore      `json:"non_viral"`
	TrainSize       int             `json:"train_size"`
	TestSize        int             `json:"test_size"`
}

// Feature is one k-mer and its importance.
type Feature struct {
	Kmer       string  `json:"kmer"`
	Importance float64 `json:"importance"`
}

// Dataset describes the training corpus.
type Dataset struct {
	Source    string `json:"source"`
	Rows      int    `json:"rows"`
	Skipped   int    `json:"skipped"`
	Fallbacks int    `json:"filler_substitutions"`
}

// Model is the metadata of a trained bundle.
type Model struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Family         string     `json:"family"`
	K              int        `json:"k"`
	VocabularySize int        `json:"vocabulary_size"`
	Evaluation     Evaluation `json:"evaluation"`
	TopFeatures    []Feature  `json:"top_features,omitempty"`
	Dataset        Dataset    `json:"dataset"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Artifact is the stored bundle's metadata as kept by the repository.
type Artifact struct {
	ID        string    `json:"id"`
	Family    string    `json:"family"`
	Accuracy  float64   `json:"accuracy"`
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewArtifact converts stored metadata.
func NewArtifact(m artifact.Metadata) Artifact {
	return Artifact{
		ID:        m.ID,
		Family:    string(m.Family),
		Accuracy:  m.Accuracy,
		Bytes:     m.Bytes,
		CreatedAt: time.UnixMilli(m.CreatedAt).UTC(),
	}
}

// Candidate is one scored grid-search candidate.
type Candidate struct {
	Params map[string]int `json:"params"`
	MeanF1 float64        `json:"f1_mean"`
	StdF1  float64        `json:"f1_std"`
}

// Training is the outcome of a training run.
type Training struct {
	Success    bool        `json:"success"`
	Model      Model       `json:"model"`
	Search     []Candidate `json:"grid_search,omitempty"`
	DurationMS int64       `json:"duration_ms"`
}

// NewModel describes m with its topN most important k-mers.
func NewModel(m model.Model, topN int) Model {
	out := Model{
		ID:             m.ID(),
		Name:           m.Name(),
		Family:         string(m.Family()),
		K:              m.K(),
		VocabularySize: m.Vocabulary().Size(),
		Evaluation:     newEvaluation(m.Report()),
		CreatedAt:      time.UnixMilli(m.CreatedAt()).UTC(),
	}
	for _, f := range m.TopFeatures(topN) {
		out.TopFeatures = append(out.TopFeatures, Feature{Kmer: f.Token, Importance: f.Score})
	}
	ds := m.Dataset()
	out.Dataset = Dataset{Source: ds.Source, Rows: ds.Rows, Skipped: ds.Skipped, Fallbacks: ds.Fallbacks}
	return out
}

// NewTraining describes a finished training run.
func NewTraining(res training.Result) Training {
	out := Training{
		Success:    true,
		Model:      NewModel(res.Model, training.TopFeatures),
		DurationMS: res.Duration.Milliseconds(),
	}
	for _, sc := range res.Search {
		out.Search = append(out.Search, Candidate{
			Params: candidateParams(sc),
			MeanF1: sc.MeanF1,
			StdF1:  sc.StdF1,
		})
	}
	return out
}

func candidateParams(sc training.CandidateScore) map[string]int {
	if sc.Params.Family == domain.FamilyKNN {
		return map[string]int{"neighbors": sc.Params.KNN.Neighbors}
	}
	return map[string]int{"trees": sc.Params.Forest.Trees, "max_depth": sc.Params.Forest.MaxDepth}
}

func newEvaluation(r evaluation.Report) Evaluation {
	return Evaluation{
		Accuracy: r.Accuracy,
		ConfusionMatrix: ConfusionMatrix{
			TrueNegative:  r.Matrix.TrueNegative,
			FalsePositive: r.Matrix.FalsePositive,
			FalseNegative: r.Matrix.FalseNegative,
			TruePositive:  r.Matrix.TruePositive,
		},
		Viral:     classScore(r.Viral),
		NonViral:  classScore(r.NonViral),
		TrainSize: r.TrainSize,
		TestSize:  r.TestSize,
	}
}

func classScore(s evaluation.ClassScore) ClassScore {
	return ClassScore{Precision: s.Precision, Recall: s.Recall, F1: s.F1, Support: s.Support}
}

// SequenceResult is the classification of one sequence.
type SequenceResult struct {
	Index         int                `json:"index"`
	SequenceID    string             `json:"sequence_id"`
	Sequence      string             `json:"sequence"`
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Length        int                `json:"length"`
	GCContent     float64            `json:"gc_content"`
	ATContent     float64            `json:"at_content"`
	Fallback      bool               `json:"filler_substituted,omitempty"`
}

// Summary aggregates a prediction batch.
type Summary struct {
	Total             int     `json:"total_sequences"`
	Viral             int     `json:"viral_count"`
	NonViral          int     `json:"non_viral_count"`
	Discarded         int     `json:"discarded_count"`
	AverageConfidence float64 `json:"average_confidence"`
	ConfidenceStdDev  float64 `json:"confidence_std_dev"`
	Majority          string  `json:"majority_prediction"`
}

// Prediction is the response to a prediction request. Evaluation is the
// training-time scoring of the model that produced Results; no ground truth
// exists for the uploaded sequences.
type Prediction struct {
	Success         bool             `json:"success"`
	Model           string           `json:"model"`
	ModelID         string           `json:"model_id"`
	Evaluation      Evaluation       `json:"model_evaluation"`
	Summary         Summary          `json:"summary"`
	Results         []SequenceResult `json:"results"`
	OutOfVocabulary int              `json:"out_of_vocabulary_tokens"`
	RawInput        bool             `json:"raw_input,omitempty"`
}

// NewPrediction describes an inference outcome.
func NewPrediction(out inference.Outcome) Prediction {
	p := Prediction{
		Success:         true,
		Model:           out.Model.Name(),
		ModelID:         out.Model.ID(),
		Evaluation:      newEvaluation(out.Model.Report()),
		Summary:         newSummary(out.Summary),
		Results:         make([]SequenceResult, len(out.Results)),
		OutOfVocabulary: out.OutOfVocabulary,
		RawInput:        out.Raw,
	}
	for i, r := range out.Results {
		c := r.Composition()
		p.Results[i] = SequenceResult{
			Index:      r.Index(),
			SequenceID: r.SequenceID(),
			Sequence:   r.Preview(),
			Prediction: r.Label().String(),
			Confidence: r.Confidence(),
			Probabilities: map[string]float64{
				domain.LabelNonViral.String(): r.Probability(domain.LabelNonViral),
				domain.LabelViral.String():    r.Probability(domain.LabelViral),
			},
			Length:    c.Length,
			GCContent: c.GCContent,
			ATContent: c.ATContent,
			Fallback:  r.Fallback(),
		}
	}
	return p
}

func newSummary(s prediction.Summary) Summary {
	return Summary{
		Total:             s.Total,
		Viral:             s.Viral,
		NonViral:          s.NonViral,
		Discarded:         s.Discarded,
		AverageConfidence: s.AverageConfidence,
		ConfidenceStdDev:  s.ConfidenceStdDev,
		Majority:          s.Majority().String(),
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
