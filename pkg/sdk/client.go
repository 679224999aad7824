package spendguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/db"
	"github.com/kailas-cloud/spendguard/internal/db/memory"
	dbRedis "github.com/kailas-cloud/spendguard/internal/db/redis"
	domacc "github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/call"
	"github.com/kailas-cloud/spendguard/internal/keylock"
	ledgerrepo "github.com/kailas-cloud/spendguard/internal/repository/ledger"
	accountuc "github.com/kailas-cloud/spendguard/internal/usecase/account"
	healthuc "github.com/kailas-cloud/spendguard/internal/usecase/health"
	ledgeruc "github.com/kailas-cloud/spendguard/internal/usecase/ledger"
	transferuc "github.com/kailas-cloud/spendguard/internal/usecase/transfer"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced by mocks in tests.
type accountUseCase interface {
	Deploy(ctx context.Context, owner common.Address, salt common.Hash) (domacc.Account, bool, error)
	Address(owner common.Address, salt common.Hash) common.Address
	Get(ctx context.Context, addr common.Address) (domacc.Account, error)
	Fund(ctx context.Context, addr, asset common.Address, amount uint256.Int) (uint256.Int, error)
	Balance(ctx context.Context, addr, asset common.Address) (uint256.Int, error)
}

type ledgerUseCase interface {
	SetSpendingLimit(ctx context.Context, c call.Call, sig []byte) (allowance.Record, error)
	RemoveSpendingLimit(ctx context.Context, c call.Call, sig []byte) (allowance.Record, error)
	Limits(ctx context.Context, acc, asset common.Address) (allowance.Record, error)
	List(ctx context.Context, acc common.Address) ([]allowance.Record, error)
	Spendable(ctx context.Context, acc, asset common.Address) (uint256.Int, bool, error)
}

type transferUseCase interface {
	Transfer(ctx context.Context, c call.Call, sig []byte) (transferuc.Receipt, error)
}

// Client is the spendguard SDK entry point: an embedded ledger over the chosen store.
type Client struct {
	store       db.Store
	domain      Domain
	accountSvc  accountUseCase
	ledgerSvc   ledgerUseCase
	transferSvc transferUseCase
	healthSvc   healthUseCase
	obs         *observer
}

// New creates a Client and connects to the store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("spendguard: store required (use WithValkey, WithRedis or WithMemory)")
	}
	if !allowance.UpdateMode(cfg.updateMode).IsValid() {
		return nil, fmt.Errorf("spendguard: unknown update mode %q", cfg.updateMode)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("spendguard: store not ready: %w", err)
	}

	return wireClient(store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, fmt.Errorf("spendguard: %s address required", cfg.driver)
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("spendguard: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("spendguard: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	locker := keylock.New()
	repo := ledgerrepo.New(store, cfg.keyPrefix)

	ledgerSvc := ledgeruc.New(repo, locker, cfg.ledger).
		WithUpdateMode(allowance.UpdateMode(cfg.updateMode)).
		WithEventSink(obs)

	return &Client{
		store:       store,
		domain:      Domain{ChainID: cfg.ledger.ChainID, Factory: cfg.ledger.Factory},
		accountSvc:  accountuc.New(repo, locker, cfg.ledger.Factory),
		ledgerSvc:   ledgerSvc,
		transferSvc: transferuc.New(repo, ledgerSvc),
		healthSvc:   healthuc.New(store),
		obs:         obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Domain returns the chain and factory signatures must be bound to.
func (c *Client) Domain() Domain { return c.domain }

// Accounts returns the account service.
func (c *Client) Accounts() *AccountService {
	return &AccountService{svc: c.accountSvc, obs: c.obs}
}

// Limits returns the spending limit service for one account.
func (c *Client) Limits(account common.Address) *LimitService {
	return &LimitService{account: account, svc: c.ledgerSvc, obs: c.obs}
}

// Transfer executes an owner-signed transfer. It fails with ErrLimitExceeded when the
// daily allowance does not cover the amount, and with ErrInsufficientFunds when the
// balance does not. Failed transfers change nothing.
func (c *Client) Transfer(ctx context.Context, req TransferRequest, sig []byte) (_ Receipt, err error) {
	start := time.Now()
	defer func() { c.obs.observe("transfer", start, err) }()

	r, err := c.transferSvc.Transfer(ctx, req.toCall(), sig)
	if err != nil {
		return Receipt{}, err
	}
	return fromInternalReceipt(r), nil
}

func (r TransferRequest) toCall() call.Call {
	return call.Call{
		Kind:    call.KindTransfer,
		Account: r.From,
		Asset:   r.Asset,
		Amount:  r.Amount,
		To:      r.To,
		Nonce:   r.Nonce,
	}
}
