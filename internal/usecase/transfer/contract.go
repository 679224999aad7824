package transfer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/call"
	"github.com/kailas-cloud/spendguard/internal/usecase/ledger"
)

// Repository reads the balances a transfer moves.
type Repository interface {
	GetAccount(ctx context.Context, addr common.Address) (account.Account, error)
	GetBalance(ctx context.Context, acc, asset common.Address) (uint256.Int, error)
}

// Guard is the spend authorization every transfer passes.
type Guard interface {
	Spend(ctx context.Context, req ledger.SpendRequest, transfer ledger.TransferFunc) (allowance.Record, error)
	SignedDomain() call.Domain
}
