package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/changeset"
)

// Repository defines the storage contract for allowance records.
type Repository interface {
	GetAccount(ctx context.Context, addr common.Address) (account.Account, error)
	GetAllowance(ctx context.Context, acc, asset common.Address) (allowance.Record, error)
	ListAllowances(ctx context.Context, acc common.Address) ([]allowance.Record, error)
	Commit(ctx context.Context, cs *changeset.Set) error
}

// Locker serializes work per account.
type Locker interface {
	Lock(keys ...string) (unlock func())
}

// Clock is the time source of the allowance period.
type Clock interface {
	Now() time.Time
}

// EventSink receives ledger events after they are committed.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}
