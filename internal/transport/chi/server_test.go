package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/evaluation"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
	"github.com/kailas-cloud/viralscan/internal/domain/vocabulary"
	"github.com/kailas-cloud/viralscan/internal/ml/knn"
	"github.com/kailas-cloud/viralscan/internal/report"
	healthuc "github.com/kailas-cloud/viralscan/internal/usecase/health"
	"github.com/kailas-cloud/viralscan/internal/usecase/inference"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
)

// --- Mocks ---

type mockTrainer struct {
	res training.Result
	err error

	ctxErr   error
	deadline time.Time
}

func (m *mockTrainer) Train(ctx context.Context) (training.Result, error) {
	m.ctxErr = ctx.Err()
	m.deadline, _ = ctx.Deadline()
	return m.res, m.err
}

type mockModels struct {
	m   model.Model
	err error
}

func (m *mockModels) Current() (model.Model, error) { return m.m, m.err }

type mockHealth struct {
	rep healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.rep }

// --- Helpers ---

func testModel(t *testing.T) model.Model {
	t.Helper()
	c, err := knn.New(knn.Params{Neighbors: 1})
	if err != nil {
		t.Fatal(err)
	}
	x := [][]float64{{5, 0, 0}, {0, 5, 5}}
	if err := c.Fit(context.Background(), x, []domain.Label{domain.LabelNonViral, domain.LabelViral}); err != nil {
		t.Fatal(err)
	}
	vocab, err := vocabulary.FromTokens([]string{"AAA", "CCC", "GGG"})
	if err != nil {
		t.Fatal(err)
	}
	m, err := model.New(c, vocab, 3, evaluation.Report{Accuracy: 0.95}, model.Dataset{Rows: 2})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

type fixture struct {
	trainer *mockTrainer
	models  *mockModels
	health  *mockHealth
	router  chi.Router
}

func newFixture(t *testing.T, trained bool) *fixture {
	t.Helper()
	f := &fixture{
		trainer: &mockTrainer{},
		models:  &mockModels{err: domain.ErrModelNotReady},
		health:  &mockHealth{rep: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}},
	}
	if trained {
		f.models = &mockModels{m: testModel(t)}
	}
	srv := NewServer(f.trainer, inference.New(f.models, nil), f.models, f.health, nil).WithMaxUpload(1 << 10)
	f.router = chi.NewRouter()
	srv.Register(f.router)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func uploadRequest(t *testing.T, target, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if e.Success {
		t.Error("error envelope must have success=false")
	}
	return e
}

// --- Tests ---

func TestRoot(t *testing.T) {
	f := newFixture(t, true)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var resp RootResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.ModelTrained || resp.Accuracy == nil || *resp.Accuracy != 0.95 {
		t.Errorf("unexpected banner: %+v", resp)
	}
}

func TestRoot_Untrained(t *testing.T) {
	f := newFixture(t, false)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	var resp RootResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.ModelTrained || resp.Accuracy != nil {
		t.Errorf("unexpected banner: %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		status healthuc.Status
		want   int
	}{
		{"healthy", healthuc.Healthy, http.StatusOK},
		{"degraded", healthuc.Degraded, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.health.rep = healthuc.Report{Status: tt.status, Timestamp: time.Now()}
			rr := f.do(httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
			if rr.Code != tt.want {
				t.Errorf("got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestTrain_OK(t *testing.T) {
	f := newFixture(t, false)
	f.trainer.res = training.Result{Model: testModel(t), Duration: time.Second}

	rr := f.do(httptest.NewRequest(http.MethodPost, "/train", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	var resp report.Training
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Success || resp.Model.Name != knn.Name || resp.Model.Evaluation.Accuracy != 0.95 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTrain_SurvivesClientCancel(t *testing.T) {
	f := newFixture(t, false)
	f.trainer.res = training.Result{Model: testModel(t), Duration: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/train", http.NoBody).WithContext(ctx)
	start := time.Now()
	rr := f.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	if f.trainer.ctxErr != nil {
		t.Errorf("training context cancelled with the request: %v", f.trainer.ctxErr)
	}
	if f.trainer.deadline.IsZero() {
		t.Fatal("training context has no deadline")
	}
	if d := f.trainer.deadline.Sub(start); d > DefaultTrainTimeout || d < DefaultTrainTimeout-time.Minute {
		t.Errorf("deadline in %v, want about %v", d, DefaultTrainTimeout)
	}
}

func TestTrain_Errors(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		kind     string
		wantBody string
	}{
		{domain.ErrTrainingInProgress, http.StatusConflict, domain.KindTrainingInProgress, "training already in progress"},
		{domain.ErrDataUnavailable, http.StatusServiceUnavailable, domain.KindDataUnavailable, "training data unavailable"},
		{domain.ErrInsufficientClassDiversity, http.StatusUnprocessableEntity, domain.KindInsufficientClassDiversity, "insufficient class diversity"},
		{errors.New("secret internals"), http.StatusInternalServerError, domain.KindInternal, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			f := newFixture(t, false)
			f.trainer.err = errors.Join(errors.New("wrapped detail"), tt.err)

			rr := f.do(httptest.NewRequest(http.MethodPost, "/train", http.NoBody))
			if rr.Code != tt.status {
				t.Errorf("got %d, want %d", rr.Code, tt.status)
			}
			e := decodeError(t, rr)
			if e.Code != tt.kind || e.Error != tt.wantBody {
				t.Errorf("got %+v", e)
			}
		})
	}
}

func TestPredict_JSON(t *testing.T) {
	f := newFixture(t, true)
	rr := f.do(uploadRequest(t, "/predict", "file", "seqs.fasta", ">v\nGGGGGCCCCC\n>n\nAAAAAAA\n"))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	var resp report.Prediction
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Summary.Total != 2 || resp.Summary.Viral != 1 || resp.Summary.NonViral != 1 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if resp.Results[0].Prediction != "Viral" || resp.Results[1].Prediction != "Non-Viral" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestPredict_CSV(t *testing.T) {
	f := newFixture(t, true)
	rr := f.do(uploadRequest(t, "/predict?format=csv", "file", "seqs.fasta", ">v\nGGGGGCCCCC\n"))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "1,v,") {
		t.Errorf("csv = %q", rr.Body.String())
	}
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name    string
		trained bool
		req     func(t *testing.T) *http.Request
		status  int
		kind    string
	}{
		{"not trained", false, func(t *testing.T) *http.Request {
			return uploadRequest(t, "/predict", "file", "a.fa", ">a\nACGT\n")
		}, http.StatusServiceUnavailable, domain.KindModelNotReady},
		{"no sequences", true, func(t *testing.T) *http.Request {
			return uploadRequest(t, "/predict", "file", "a.fa", "ACGT")
		}, http.StatusBadRequest, domain.KindNoSequencesFound},
		{"wrong field", true, func(t *testing.T) *http.Request {
			return uploadRequest(t, "/predict", "upload", "a.fa", ">a\nACGT\n")
		}, http.StatusBadRequest, domain.KindInvalidInput},
		{"empty filename", true, func(t *testing.T) *http.Request {
			return uploadRequest(t, "/predict", "file", "", ">a\nACGT\n")
		}, http.StatusBadRequest, domain.KindInvalidInput},
		{"not multipart", true, func(*testing.T) *http.Request {
			return httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(">a\nACGT"))
		}, http.StatusBadRequest, domain.KindInvalidInput},
		{"bad format", true, func(t *testing.T) *http.Request {
			return uploadRequest(t, "/predict?format=xml", "file", "a.fa", ">a\nACGT\n")
		}, http.StatusBadRequest, domain.KindInvalidInput},
		{"too large", true, func(t *testing.T) *http.Request {
			return uploadRequest(t, "/predict", "file", "a.fa", ">a\n"+strings.Repeat("A", 4<<10))
		}, http.StatusBadRequest, domain.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.trained)
			rr := f.do(tt.req(t))
			if rr.Code != tt.status {
				t.Errorf("got %d, want %d", rr.Code, tt.status)
			}
			if e := decodeError(t, rr); e.Code != tt.kind {
				t.Errorf("code = %q, want %q", e.Code, tt.kind)
			}
		})
	}
}

func TestGetModel(t *testing.T) {
	f := newFixture(t, true)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/model", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var resp report.Model
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.K != 3 || resp.VocabularySize != 3 || resp.Family != string(domain.FamilyKNN) {
		t.Errorf("unexpected model: %+v", resp)
	}

	f = newFixture(t, false)
	rr = f.do(httptest.NewRequest(http.MethodGet, "/model", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("untrained: got %d", rr.Code)
	}
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, false)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/sequences", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != "not_found" {
		t.Errorf("code = %q", e.Code)
	}
}
