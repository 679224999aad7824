package spendguard

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/samber/lo"

	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/call"
)

// LimitService manages the daily spending limits of one account.
type LimitService struct {
	account common.Address
	svc     ledgerUseCase
	obs     *observer
}

// Set applies an owner-signed limit for asset. Sign it with Signer.SignSetSpendingLimit.
func (s *LimitService) Set(
	ctx context.Context, asset common.Address, limit uint256.Int, nonce uint64, sig []byte,
) (_ Limit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("limit.set", start, err) }()

	rec, err := s.svc.SetSpendingLimit(ctx, call.Call{
		Kind:    call.KindSetSpendingLimit,
		Account: s.account,
		Asset:   asset,
		Amount:  limit,
		Nonce:   nonce,
	}, sig)
	if err != nil {
		return Limit{}, fmt.Errorf("set spending limit: %w", err)
	}
	return fromInternalRecord(rec), nil
}

// Remove lifts the limit of asset. Fails with ErrInvalidUpdate when no limit is enabled.
func (s *LimitService) Remove(
	ctx context.Context, asset common.Address, nonce uint64, sig []byte,
) (_ Limit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("limit.remove", start, err) }()

	rec, err := s.svc.RemoveSpendingLimit(ctx, call.Call{
		Kind:    call.KindRemoveSpendingLimit,
		Account: s.account,
		Asset:   asset,
		Nonce:   nonce,
	}, sig)
	if err != nil {
		return Limit{}, fmt.Errorf("remove spending limit: %w", err)
	}
	return fromInternalRecord(rec), nil
}

// Get returns the stored limit of asset. A never-set asset yields a disabled limit.
func (s *LimitService) Get(ctx context.Context, asset common.Address) (_ Limit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("limit.get", start, err) }()

	rec, err := s.svc.Limits(ctx, s.account, asset)
	if err != nil {
		return Limit{}, fmt.Errorf("get limit: %w", err)
	}
	return fromInternalRecord(rec), nil
}

// List returns every stored limit of the account, removed ones included.
func (s *LimitService) List(ctx context.Context) (_ []Limit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("limit.list", start, err) }()

	recs, err := s.svc.List(ctx, s.account)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	return lo.Map(recs, func(r allowance.Record, _ int) Limit { return fromInternalRecord(r) }), nil
}

// Spendable returns what could be spent of asset right now.
// ok is false when the asset has no enabled limit, i.e. spending is unrestricted.
func (s *LimitService) Spendable(ctx context.Context, asset common.Address) (_ uint256.Int, ok bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("limit.spendable", start, err) }()

	v, ok, err := s.svc.Spendable(ctx, s.account, asset)
	if err != nil {
		return uint256.Int{}, false, fmt.Errorf("spendable: %w", err)
	}
	return v, ok, nil
}
