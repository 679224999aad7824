package account

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	domacc "github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/changeset"
)

// Repository defines the storage contract for accounts and their balances.
type Repository interface {
	GetAccount(ctx context.Context, addr common.Address) (domacc.Account, error)
	GetBalance(ctx context.Context, acc, asset common.Address) (uint256.Int, error)
	Balances(ctx context.Context, acc common.Address) (map[common.Address]uint256.Int, error)
	Commit(ctx context.Context, cs *changeset.Set) error
}

// Locker serializes writes per account.
type Locker interface {
	Lock(keys ...string) (unlock func())
}
