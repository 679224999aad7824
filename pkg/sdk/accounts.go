package spendguard

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AccountService deploys and funds accounts.
type AccountService struct {
	svc accountUseCase
	obs *observer
}

// Deploy creates the account of owner and salt. created is false when it already existed.
func (s *AccountService) Deploy(
	ctx context.Context, owner common.Address, salt common.Hash,
) (_ Account, created bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("account.deploy", start, err) }()

	acc, created, err := s.svc.Deploy(ctx, owner, salt)
	if err != nil {
		return Account{}, false, fmt.Errorf("deploy account: %w", err)
	}
	return fromInternalAccount(acc), created, nil
}

// Address returns where owner and salt deploy to, without deploying.
func (s *AccountService) Address(owner common.Address, salt common.Hash) common.Address {
	return s.svc.Address(owner, salt)
}

// Get returns a deployed account.
func (s *AccountService) Get(ctx context.Context, addr common.Address) (_ Account, err error) {
	start := time.Now()
	defer func() { s.obs.observe("account.get", start, err) }()

	acc, err := s.svc.Get(ctx, addr)
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return fromInternalAccount(acc), nil
}

// Fund credits amount of asset to addr and returns the new balance.
func (s *AccountService) Fund(
	ctx context.Context, addr, asset common.Address, amount uint256.Int,
) (_ uint256.Int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("account.fund", start, err) }()

	bal, err := s.svc.Fund(ctx, addr, asset, amount)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("fund account: %w", err)
	}
	return bal, nil
}

// Balance returns the balance of asset held by addr.
func (s *AccountService) Balance(ctx context.Context, addr, asset common.Address) (_ uint256.Int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("account.balance", start, err) }()

	bal, err := s.svc.Balance(ctx, addr, asset)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("get balance: %w", err)
	}
	return bal, nil
}
