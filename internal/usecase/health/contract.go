package health

import "context"

// StorePinger is the ledger store. When it fails the whole report is unhealthy.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Checker is an auxiliary component such as the activity writer; a failure only degrades the report.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
