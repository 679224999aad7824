package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/kailas-cloud/spendguard/internal/domain"
	"github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/balance"
	"github.com/kailas-cloud/spendguard/internal/domain/call"
	"github.com/kailas-cloud/spendguard/internal/domain/changeset"
	"github.com/kailas-cloud/spendguard/internal/logger"
	"github.com/kailas-cloud/spendguard/internal/usecase/ledger"
)

// Receipt is the outcome of a committed transfer.
type Receipt struct {
	From      common.Address
	To        common.Address
	Asset     common.Address
	Amount    uint256.Int
	Nonce     uint64
	Balance   uint256.Int      // sender balance after the transfer
	Allowance allowance.Record // sender allowance after the transfer
	Internal  bool             // recipient is an account of this ledger and was credited
}

// Service moves assets out of accounts.
type Service struct {
	repo  Repository
	guard Guard
}

// New creates a transfer service.
func New(repo Repository, guard Guard) *Service {
	return &Service{repo: repo, guard: guard}
}

// Transfer executes an owner-signed transfer call. Signature and nonce are checked first,
// then the allowance, then the balance. Any failure leaves records, balances and nonce untouched.
func (s *Service) Transfer(ctx context.Context, c call.Call, sig []byte) (Receipt, error) {
	if c.Kind != call.KindTransfer {
		return Receipt{}, fmt.Errorf("%w: expected %s call, got %q", domain.ErrInvalidRequest, call.KindTransfer, c.Kind)
	}
	if err := c.Validate(); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{From: c.Account, To: c.To, Asset: c.Asset, Amount: c.Amount, Nonce: c.Nonce}
	req := ledger.SpendRequest{
		Account:        c.Account,
		Asset:          c.Asset,
		Amount:         c.Amount,
		Counterparties: []common.Address{c.To},
		Check: func(_ context.Context, acc account.Account) error {
			return call.Verify(c, s.guard.SignedDomain(), acc.Owner(), acc.Nonce(), sig)
		},
	}

	rec, err := s.guard.Spend(ctx, req, func(ctx context.Context, acc account.Account, cs *changeset.Set) error {
		cur, err := s.repo.GetBalance(ctx, acc.Address(), c.Asset)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		next, err := balance.Debit(cur, c.Amount)
		if err != nil {
			return err
		}
		cs.PutBalance(acc.Address(), c.Asset, next)
		cs.PutAccount(acc.WithNextNonce())
		receipt.Balance = next

		internal, err := s.credit(ctx, c, cs)
		if err != nil {
			return err
		}
		receipt.Internal = internal
		return nil
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("transfer: %w", err)
	}
	receipt.Allowance = rec

	logger.FromContext(ctx).Debug("Transfer committed",
		zap.String("from", c.Account.Hex()),
		zap.String("to", c.To.Hex()),
		zap.String("asset", c.Asset.Hex()),
		zap.String("amount", receipt.Amount.Dec()),
		zap.Bool("internal", receipt.Internal),
	)
	return receipt, nil
}

// credit stages the recipient side when the recipient is hosted here.
// Funds sent elsewhere leave the ledger.
func (s *Service) credit(ctx context.Context, c call.Call, cs *changeset.Set) (bool, error) {
	if _, err := s.repo.GetAccount(ctx, c.To); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get recipient: %w", err)
	}
	cur, err := s.repo.GetBalance(ctx, c.To, c.Asset)
	if err != nil {
		return false, fmt.Errorf("get recipient balance: %w", err)
	}
	next, err := balance.Credit(cur, c.Amount)
	if err != nil {
		return false, err
	}
	cs.PutBalance(c.To, c.Asset, next)
	return true, nil
}
