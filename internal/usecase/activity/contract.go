package activity

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	domact "github.com/kailas-cloud/spendguard/internal/domain/activity"
)

// Store keeps the daily counters.
type Store interface {
	Incr(ctx context.Context, acc common.Address, day string, o domact.Outcome) error
	Get(ctx context.Context, acc common.Address, day string, o domact.Outcome) (int64, error)
}
