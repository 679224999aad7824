package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a non-critical component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the ledger store is unreachable.
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

const checkTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store  StorePinger
	extras map[string]Checker
}

// New creates a Service. The database is the critical dependency.
func New(store StorePinger) *Service {
	return &Service{store: store, extras: map[string]Checker{}}
}

// With registers a non-critical check under name.
func (s *Service) With(name string, c Checker) *Service {
	if c != nil {
		s.extras[name] = c
	}
	return s
}

// Check runs every health check, each bounded by its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{"database": run(ctx, s.store.Ping)}
	for name, c := range s.extras {
		checks[name] = run(ctx, c.HealthCheck)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["database"] == CheckError {
		status = Unhealthy
	}
	return Report{Status: status, Checks: checks}
}

func run(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
