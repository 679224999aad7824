package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/samber/lo"

	"github.com/kailas-cloud/spendguard/internal/db"
	"github.com/kailas-cloud/spendguard/internal/domain"
	"github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/changeset"
)

// store is the consumer interface for ledger state (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HSetAtomic(ctx context.Context, items []db.HashSetItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the account, allowance and balance repositories of the usecases.
type Repo struct {
	store  store
	prefix string
}

// New creates a ledger repository. Every key starts with prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// GetAccount loads an account or returns domain.ErrAccountNotFound.
func (r *Repo) GetAccount(ctx context.Context, addr common.Address) (account.Account, error) {
	m, err := r.store.HGetAll(ctx, r.accountKey(addr))
	if err != nil {
		return account.Account{}, fmt.Errorf("hgetall account %s: %w", addr.Hex(), err)
	}
	if len(m) == 0 {
		return account.Account{}, domain.ErrAccountNotFound
	}
	acc, err := accountFromHash(m)
	if err != nil {
		return account.Account{}, fmt.Errorf("parse account %s: %w", addr.Hex(), err)
	}
	return acc, nil
}

// GetAllowance loads the record for (acc, asset). A missing record is a disabled one.
func (r *Repo) GetAllowance(ctx context.Context, acc, asset common.Address) (allowance.Record, error) {
	m, err := r.store.HGetAll(ctx, r.allowanceKey(acc, asset))
	if err != nil {
		return allowance.Record{}, fmt.Errorf("hgetall allowance %s/%s: %w", acc.Hex(), asset.Hex(), err)
	}
	if len(m) == 0 {
		return allowance.Disabled(asset), nil
	}
	rec, err := recordFromHash(m)
	if err != nil {
		return allowance.Record{}, fmt.Errorf("parse allowance %s/%s: %w", acc.Hex(), asset.Hex(), err)
	}
	return rec, nil
}

// ListAllowances returns every stored record of acc, sorted by asset.
func (r *Repo) ListAllowances(ctx context.Context, acc common.Address) ([]allowance.Record, error) {
	keys, err := r.store.Scan(ctx, r.allowancePattern(acc))
	if err != nil {
		return nil, fmt.Errorf("scan allowances %s: %w", acc.Hex(), err)
	}
	if len(keys) == 0 {
		return []allowance.Record{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi allowances %s: %w", acc.Hex(), err)
	}

	records := make([]allowance.Record, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		rec, err := recordFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse allowance %s: %w", keys[i], err)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Asset().Cmp(records[j].Asset()) < 0
	})
	return records, nil
}

// GetBalance returns the balance of acc in asset, zero when never credited.
func (r *Repo) GetBalance(ctx context.Context, acc, asset common.Address) (uint256.Int, error) {
	m, err := r.store.HGetAll(ctx, r.balanceKey(acc))
	if err != nil {
		return uint256.Int{}, fmt.Errorf("hgetall balance %s: %w", acc.Hex(), err)
	}
	return parseBalance(m[assetField(asset)])
}

// Balances returns every non-empty balance of acc keyed by asset.
func (r *Repo) Balances(ctx context.Context, acc common.Address) (map[common.Address]uint256.Int, error) {
	m, err := r.store.HGetAll(ctx, r.balanceKey(acc))
	if err != nil {
		return nil, fmt.Errorf("hgetall balance %s: %w", acc.Hex(), err)
	}
	out := make(map[common.Address]uint256.Int, len(m))
	for field, v := range m {
		amount, err := parseBalance(v)
		if err != nil {
			return nil, fmt.Errorf("parse balance %s/%s: %w", acc.Hex(), field, err)
		}
		out[common.HexToAddress(field)] = amount
	}
	return out, nil
}

// Commit writes every change in cs in one MULTI/EXEC.
func (r *Repo) Commit(ctx context.Context, cs *changeset.Set) error {
	if cs.Empty() {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(cs.Accounts())+len(cs.Allowances())+len(cs.Balances()))
	items = append(items, lo.Map(cs.Accounts(), func(a account.Account, _ int) db.HashSetItem {
		return db.HashSetItem{Key: r.accountKey(a.Address()), Fields: accountToHash(a)}
	})...)
	items = append(items, lo.Map(cs.Allowances(), func(a changeset.Allowance, _ int) db.HashSetItem {
		return db.HashSetItem{Key: r.allowanceKey(a.Account, a.Record.Asset()), Fields: recordToHash(a.Record)}
	})...)
	items = append(items, lo.Map(cs.Balances(), func(b changeset.Balance, _ int) db.HashSetItem {
		return db.HashSetItem{Key: r.balanceKey(b.Account), Fields: map[string]string{assetField(b.Asset): b.Amount.Dec()}}
	})...)

	if err := r.store.HSetAtomic(ctx, items); err != nil {
		return fmt.Errorf("commit %d writes: %w", len(items), err)
	}
	return nil
}

// Key patterns: {prefix}account:{addr}, {prefix}allowance:{addr}:{asset}, {prefix}balance:{addr}

func (r *Repo) accountKey(addr common.Address) string {
	return fmt.Sprintf("%saccount:%s", r.prefix, keyPart(addr))
}

func (r *Repo) allowanceKey(acc, asset common.Address) string {
	return fmt.Sprintf("%sallowance:%s:%s", r.prefix, keyPart(acc), keyPart(asset))
}

func (r *Repo) allowancePattern(acc common.Address) string {
	return fmt.Sprintf("%sallowance:%s:*", r.prefix, keyPart(acc))
}

func (r *Repo) balanceKey(acc common.Address) string {
	return fmt.Sprintf("%sbalance:%s", r.prefix, keyPart(acc))
}

func keyPart(addr common.Address) string { return strings.ToLower(addr.Hex()) }

func assetField(asset common.Address) string { return keyPart(asset) }
