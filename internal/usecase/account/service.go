package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain"
	domacc "github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/balance"
	"github.com/kailas-cloud/spendguard/internal/domain/changeset"
	"github.com/kailas-cloud/spendguard/internal/usecase/ledger"
)

// Service deploys accounts and manages their balances.
type Service struct {
	repo    Repository
	locker  Locker
	factory common.Address
}

// New creates an account service deploying through factory.
func New(repo Repository, locker Locker, factory common.Address) *Service {
	return &Service{repo: repo, locker: locker, factory: factory}
}

// Deploy creates the account of owner and salt. Deploying twice returns the existing
// account with created == false.
func (s *Service) Deploy(ctx context.Context, owner common.Address, salt common.Hash) (acc domacc.Account, created bool, err error) {
	fresh, err := domacc.New(s.factory, owner, salt)
	if err != nil {
		return domacc.Account{}, false, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	unlock := s.locker.Lock(ledger.LockKey(fresh.Address()))
	defer unlock()

	existing, err := s.repo.GetAccount(ctx, fresh.Address())
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, domain.ErrAccountNotFound):
		return domacc.Account{}, false, fmt.Errorf("get account: %w", err)
	}

	var cs changeset.Set
	cs.PutAccount(fresh)
	if err := s.repo.Commit(ctx, &cs); err != nil {
		return domacc.Account{}, false, fmt.Errorf("deploy account: %w", err)
	}
	return fresh, true, nil
}

// Address returns where owner and salt would deploy, without deploying.
func (s *Service) Address(owner common.Address, salt common.Hash) common.Address {
	return domacc.Address(s.factory, owner, salt)
}

// Get retrieves an account by address.
func (s *Service) Get(ctx context.Context, addr common.Address) (domacc.Account, error) {
	acc, err := s.repo.GetAccount(ctx, addr)
	if err != nil {
		return domacc.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

// Fund credits amount of asset to the account. Anyone may fund any account.
func (s *Service) Fund(ctx context.Context, addr, asset common.Address, amount uint256.Int) (uint256.Int, error) {
	if asset == (common.Address{}) {
		return uint256.Int{}, fmt.Errorf("%w: asset is required", domain.ErrInvalidRequest)
	}

	unlock := s.locker.Lock(ledger.LockKey(addr))
	defer unlock()

	if _, err := s.repo.GetAccount(ctx, addr); err != nil {
		return uint256.Int{}, fmt.Errorf("get account: %w", err)
	}
	cur, err := s.repo.GetBalance(ctx, addr, asset)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("get balance: %w", err)
	}
	next, err := balance.Credit(cur, amount)
	if err != nil {
		return uint256.Int{}, err
	}

	var cs changeset.Set
	cs.PutBalance(addr, asset, next)
	if err := s.repo.Commit(ctx, &cs); err != nil {
		return uint256.Int{}, fmt.Errorf("fund account: %w", err)
	}
	return next, nil
}

// Balance returns the balance of asset held by the account.
func (s *Service) Balance(ctx context.Context, addr, asset common.Address) (uint256.Int, error) {
	if _, err := s.repo.GetAccount(ctx, addr); err != nil {
		return uint256.Int{}, fmt.Errorf("get account: %w", err)
	}
	b, err := s.repo.GetBalance(ctx, addr, asset)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// Balances returns every balance the account holds.
func (s *Service) Balances(ctx context.Context, addr common.Address) (map[common.Address]uint256.Int, error) {
	if _, err := s.repo.GetAccount(ctx, addr); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	all, err := s.repo.Balances(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	return all, nil
}
