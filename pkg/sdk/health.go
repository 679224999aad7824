package spendguard

import (
	"context"
	"errors"
	"time"

	healthuc "github.com/kailas-cloud/spendguard/internal/usecase/health"
)

// HealthStatus is the aggregated state of the ledger store.
type HealthStatus struct {
	Status string            // "ok", "degraded" or "error"
	Checks map[string]string // component name to "ok" or "error"
}

// OK reports whether the store answered.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

var errUnhealthy = errors.New("store unhealthy")

// Health runs the store check and records it as the "health" operation.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)

	h := HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}

	var err error
	if report.Status == healthuc.Unhealthy {
		err = errUnhealthy
	}
	c.obs.observe("health", start, err)
	return h
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
