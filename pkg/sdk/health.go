package viralscan

import (
	"context"

	healthuc "github.com/kailas-cloud/viralscan/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status        string            // "ok", "degraded"
	Checks        map[string]string // component → "ok"/"error"/"missing"
	ModelTrained  bool
	DatasetExists bool
}

// Health checks storage, dataset and model state.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:        string(report.Status),
		Checks:        checks,
		ModelTrained:  report.ModelTrained,
		DatasetExists: report.DatasetExists,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
