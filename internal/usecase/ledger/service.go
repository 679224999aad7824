package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/kailas-cloud/spendguard/internal/domain"
	"github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/call"
	"github.com/kailas-cloud/spendguard/internal/domain/changeset"
	"github.com/kailas-cloud/spendguard/internal/logger"
	"github.com/kailas-cloud/spendguard/internal/metrics"
)

// SpendRequest is one outgoing value movement that must pass the allowance.
type SpendRequest struct {
	Account common.Address
	Asset   common.Address
	Amount  uint256.Int
	// Counterparties are locked together with Account, in address order.
	Counterparties []common.Address
	// Check runs under the lock before the allowance is consulted.
	Check func(ctx context.Context, acc account.Account) error
}

// TransferFunc stages the writes of the transfer primitive into cs.
// Returning an error aborts the spend with nothing persisted.
type TransferFunc func(ctx context.Context, acc account.Account, cs *changeset.Set) error

// Service owns the allowance records: limit administration and spend authorization.
type Service struct {
	repo   Repository
	locker Locker
	clock  Clock
	sink   EventSink
	cfg    domain.LedgerConfig
	mode   allowance.UpdateMode
	logger *zap.Logger
}

// New creates a ledger service with the system clock, overwrite updates and no event sink.
func New(repo Repository, locker Locker, cfg domain.LedgerConfig) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		clock:  newMonotonicClock(SystemClock{}),
		sink:   nopSink{},
		cfg:    cfg,
		mode:   allowance.ModeOverwrite,
		logger: zap.NewNop(),
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(c Clock) *Service {
	if c != nil {
		s.clock = newMonotonicClock(c)
	}
	return s
}

// WithEventSink sets where committed events go.
func (s *Service) WithEventSink(sink EventSink) *Service {
	if sink != nil {
		s.sink = sink
	}
	return s
}

// WithUpdateMode selects how setSpendingLimit treats an enabled record.
func (s *Service) WithUpdateMode(m allowance.UpdateMode) *Service {
	if m.IsValid() {
		s.mode = m
	}
	return s
}

// WithLogger sets the fallback logger used when the context carries none.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// Period returns the allowance period.
func (s *Service) Period() time.Duration { return s.cfg.Period }

// SignedDomain returns the chain and factory every call signature is bound to.
func (s *Service) SignedDomain() call.Domain {
	return call.Domain{ChainID: s.cfg.ChainID, Factory: s.cfg.Factory}
}

// SetSpendingLimit applies an owner-signed setSpendingLimit call.
func (s *Service) SetSpendingLimit(ctx context.Context, c call.Call, sig []byte) (rec allowance.Record, err error) {
	defer s.observe("set_limit", time.Now(), &err)

	if c.Kind != call.KindSetSpendingLimit {
		return allowance.Record{}, fmt.Errorf("%w: expected %s call, got %q", domain.ErrInvalidRequest, call.KindSetSpendingLimit, c.Kind)
	}
	if err := c.Validate(); err != nil {
		return allowance.Record{}, err
	}

	unlock := s.locker.Lock(LockKey(c.Account))
	defer unlock()

	acc, err := s.verified(ctx, c, sig)
	if err != nil {
		return allowance.Record{}, err
	}

	cur, err := s.repo.GetAllowance(ctx, acc.Address(), c.Asset)
	if err != nil {
		return allowance.Record{}, fmt.Errorf("load allowance: %w", err)
	}
	now := s.clock.Now()
	next := cur.Set(now.Unix(), s.cfg.Period, c.Amount, s.mode)

	var cs changeset.Set
	cs.PutAllowance(acc.Address(), next)
	cs.PutAccount(acc.WithNextNonce())
	if err := s.repo.Commit(ctx, &cs); err != nil {
		return allowance.Record{}, fmt.Errorf("commit set limit: %w", err)
	}

	s.sink.Emit(ctx, newEvent(EventLimitSet, acc.Address(), next, c.Amount, now))
	return next, nil
}

// RemoveSpendingLimit applies an owner-signed removeSpendingLimit call.
// Removing a limit that is not enabled fails with ErrInvalidUpdate and keeps the nonce.
func (s *Service) RemoveSpendingLimit(ctx context.Context, c call.Call, sig []byte) (rec allowance.Record, err error) {
	defer s.observe("remove_limit", time.Now(), &err)

	if c.Kind != call.KindRemoveSpendingLimit {
		return allowance.Record{}, fmt.Errorf("%w: expected %s call, got %q", domain.ErrInvalidRequest, call.KindRemoveSpendingLimit, c.Kind)
	}
	if err := c.Validate(); err != nil {
		return allowance.Record{}, err
	}

	unlock := s.locker.Lock(LockKey(c.Account))
	defer unlock()

	acc, err := s.verified(ctx, c, sig)
	if err != nil {
		return allowance.Record{}, err
	}

	cur, err := s.repo.GetAllowance(ctx, acc.Address(), c.Asset)
	if err != nil {
		return allowance.Record{}, fmt.Errorf("load allowance: %w", err)
	}
	next, err := cur.Remove()
	if err != nil {
		return allowance.Record{}, err
	}

	var cs changeset.Set
	cs.PutAllowance(acc.Address(), next)
	cs.PutAccount(acc.WithNextNonce())
	if err := s.repo.Commit(ctx, &cs); err != nil {
		return allowance.Record{}, fmt.Errorf("commit remove limit: %w", err)
	}

	s.sink.Emit(ctx, newEvent(EventLimitRemoved, acc.Address(), cur, uint256.Int{}, s.clock.Now()))
	return next, nil
}

// Limits returns the stored record of asset for acc. A never-set asset yields a disabled record.
func (s *Service) Limits(ctx context.Context, acc, asset common.Address) (allowance.Record, error) {
	if _, err := s.repo.GetAccount(ctx, acc); err != nil {
		return allowance.Record{}, fmt.Errorf("get account: %w", err)
	}
	rec, err := s.repo.GetAllowance(ctx, acc, asset)
	if err != nil {
		return allowance.Record{}, fmt.Errorf("get allowance: %w", err)
	}
	return rec, nil
}

// List returns every stored record of acc, removed ones included.
func (s *Service) List(ctx context.Context, acc common.Address) ([]allowance.Record, error) {
	if _, err := s.repo.GetAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	recs, err := s.repo.ListAllowances(ctx, acc)
	if err != nil {
		return nil, fmt.Errorf("list allowances: %w", err)
	}
	return recs, nil
}

// LimitView reads the record of asset once and returns it as stored together with its
// effective state at the current time. Both values describe the same committed state.
func (s *Service) LimitView(ctx context.Context, acc, asset common.Address) (stored, effective allowance.Record, err error) {
	stored, err = s.Limits(ctx, acc, asset)
	if err != nil {
		return allowance.Record{}, allowance.Record{}, err
	}
	return stored, stored.Effective(s.clock.Now().Unix(), s.cfg.Period), nil
}

// Spendable returns what acc could spend of asset right now, replenishment applied.
// The second result is false when no limit is enabled.
func (s *Service) Spendable(ctx context.Context, acc, asset common.Address) (uint256.Int, bool, error) {
	_, eff, err := s.LimitView(ctx, acc, asset)
	if err != nil {
		return uint256.Int{}, false, err
	}
	if !eff.IsEnabled() {
		return uint256.Int{}, false, nil
	}
	return eff.Available(), true, nil
}

// Authorize checks amount of asset against the allowance of acc and records the spend.
func (s *Service) Authorize(ctx context.Context, acc, asset common.Address, amount uint256.Int) (allowance.Record, error) {
	return s.Spend(ctx, SpendRequest{Account: acc, Asset: asset, Amount: amount}, nil)
}

// Spend is the guard every outgoing transfer runs through. Under the account lock it runs
// req.Check, authorizes the amount, then lets transfer stage its writes. The new record and
// the transfer writes are committed together; any failure persists nothing.
func (s *Service) Spend(ctx context.Context, req SpendRequest, transfer TransferFunc) (rec allowance.Record, err error) {
	defer s.observe("spend", time.Now(), &err)

	if req.Account == (common.Address{}) || req.Asset == (common.Address{}) {
		return allowance.Record{}, fmt.Errorf("%w: account and asset are required", domain.ErrInvalidRequest)
	}

	keys := lo.Map(append([]common.Address{req.Account}, req.Counterparties...), func(a common.Address, _ int) string {
		return LockKey(a)
	})
	unlock := s.locker.Lock(keys...)
	defer unlock()

	acc, err := s.repo.GetAccount(ctx, req.Account)
	if err != nil {
		return allowance.Record{}, fmt.Errorf("get account: %w", err)
	}
	if req.Check != nil {
		if err := req.Check(ctx, acc); err != nil {
			return allowance.Record{}, err
		}
	}

	cur, err := s.repo.GetAllowance(ctx, acc.Address(), req.Asset)
	if err != nil {
		return allowance.Record{}, fmt.Errorf("load allowance: %w", err)
	}
	now := s.clock.Now()
	next, err := cur.Authorize(now.Unix(), s.cfg.Period, req.Amount)
	if err != nil {
		s.sink.Emit(ctx, newEvent(EventSpendDenied, acc.Address(), cur, req.Amount, now))
		return cur, fmt.Errorf("spend %s of %s: %w", req.Amount.Dec(), req.Asset.Hex(), err)
	}

	var cs changeset.Set
	if next != cur {
		cs.PutAllowance(acc.Address(), next)
	}
	if transfer != nil {
		if err := transfer(ctx, acc, &cs); err != nil {
			return cur, err
		}
	}
	if !cs.Empty() {
		if err := s.repo.Commit(ctx, &cs); err != nil {
			return cur, fmt.Errorf("commit spend: %w", err)
		}
	}

	s.sink.Emit(ctx, newEvent(EventSpendAuthorized, acc.Address(), next, req.Amount, now))
	return next, nil
}

// verified loads the account of c and checks owner signature and nonce. Caller holds the lock.
func (s *Service) verified(ctx context.Context, c call.Call, sig []byte) (account.Account, error) {
	acc, err := s.repo.GetAccount(ctx, c.Account)
	if err != nil {
		return account.Account{}, fmt.Errorf("get account: %w", err)
	}
	if err := call.Verify(c, s.SignedDomain(), acc.Owner(), acc.Nonce(), sig); err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Rejected call",
			zap.String("kind", string(c.Kind)),
			zap.String("account", c.Account.Hex()),
			zap.Uint64("nonce", c.Nonce),
			zap.Error(err),
		)
		return account.Account{}, err
	}
	return acc, nil
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	status := "ok"
	if err := *errp; err != nil {
		status = "error"
		if errors.Is(err, domain.ErrLimitExceeded) {
			status = "denied"
		}
	}
	metrics.LedgerOpDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// LockKey is the Locker key of an account. Every service that writes account state uses it.
func LockKey(addr common.Address) string { return "account:" + strings.ToLower(addr.Hex()) }
