package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates searches cannot be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	CheckDataset = "dataset"
	CheckCache   = "cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Rows   int
}

// Service coordinates health checks.
type Service struct {
	dataset DatasetLoader
	cache   CachePinger
}

// New creates a Service. cache can be nil when no snapshot cache is configured.
func New(dataset DatasetLoader, cache CachePinger) *Service {
	return &Service{dataset: dataset, cache: cache}
}

// Check runs health checks against all components. The dataset is required;
// the snapshot cache only degrades the service.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy
	rows := 0

	if set, err := s.dataset.Load(ctx); err != nil {
		checks[CheckDataset] = CheckError
		status = Unhealthy
	} else {
		checks[CheckDataset] = CheckOK
		rows = set.Len()
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks[CheckCache] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks[CheckCache] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks, Rows: rows}
}
