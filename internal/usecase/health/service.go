package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all required components are operational.
	Healthy Status = "ok"
	// Degraded indicates artifact storage is unreachable.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckMissing indicates an absent optional component.
	CheckMissing CheckResult = "missing"
)

// Report aggregates health check results.
type Report struct {
	Status           Status
	Checks           map[string]CheckResult
	ModelTrained     bool
	TrainingAccuracy *float64
	DatasetExists    bool
	Timestamp        time.Time
}

// Service coordinates health checks.
type Service struct {
	storage     StoragePinger
	models      ModelState
	dataset     DatasetProbe
	datasetPath string
	now         func() time.Time
}

// New creates a Service. storage and dataset can be nil.
func New(storage StoragePinger, models ModelState, dataset DatasetProbe, datasetPath string) *Service {
	return &Service{storage: storage, models: models, dataset: dataset, datasetPath: datasetPath, now: time.Now}
}

// Check runs health checks against all components. Only a storage failure
// degrades the service: a missing dataset or an untrained model are reported
// but still allow the endpoints that do not need them.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult), Timestamp: s.now().UTC()}

	if s.storage != nil {
		if err := s.storage.Check(ctx); err != nil {
			r.Checks["storage"] = CheckError
			r.Status = Degraded
		} else {
			r.Checks["storage"] = CheckOK
		}
	}

	if s.dataset != nil {
		r.DatasetExists = s.dataset(s.datasetPath)
		r.Checks["dataset"] = present(r.DatasetExists)
	}

	r.ModelTrained = s.models.Ready()
	r.Checks["model"] = present(r.ModelTrained)
	if acc, ok := s.models.Accuracy(); ok {
		r.TrainingAccuracy = &acc
	}
	return r
}

func present(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckMissing
}
