package viralscan

import (
	"context"

	"github.com/kailas-cloud/viralscan/internal/domain/model"
	"github.com/kailas-cloud/viralscan/internal/fasta"
	healthuc "github.com/kailas-cloud/viralscan/internal/usecase/health"
	"github.com/kailas-cloud/viralscan/internal/usecase/inference"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
)

// --- trainUseCase mock ---

type mockTrainUC struct {
	trainFn func(ctx context.Context) (training.Result, error)
}

func (m *mockTrainUC) Train(ctx context.Context) (training.Result, error) {
	return m.trainFn(ctx)
}

// --- predictUseCase mock ---

type mockPredictUC struct {
	predictFn  func(ctx context.Context, payload []byte) (inference.Outcome, error)
	classifyFn func(ctx context.Context, m model.Model, records []fasta.Record, discarded int) (inference.Outcome, error)
}

func (m *mockPredictUC) Predict(ctx context.Context, payload []byte) (inference.Outcome, error) {
	return m.predictFn(ctx, payload)
}

func (m *mockPredictUC) Classify(
	ctx context.Context, mdl model.Model, records []fasta.Record, discarded int,
) (inference.Outcome, error) {
	return m.classifyFn(ctx, mdl, records, discarded)
}

// --- modelSource mock ---

type mockModels struct {
	m   model.Model
	err error
}

func (m *mockModels) Current() (model.Model, error) { return m.m, m.err }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }
