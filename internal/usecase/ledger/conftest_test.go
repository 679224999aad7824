package ledger

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain"
	"github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/call"
	"github.com/kailas-cloud/spendguard/internal/domain/changeset"
	"github.com/kailas-cloud/spendguard/internal/keylock"
)

const testPeriod = 10 * time.Second

var testAsset = domain.NativeAsset

type recordKey struct{ account, asset common.Address }

// fakeRepo is an in-memory Repository with commit failure injection.
type fakeRepo struct {
	mu        sync.Mutex
	accounts  map[common.Address]account.Account
	records   map[recordKey]allowance.Record
	balances  map[recordKey]uint256.Int
	commits   int
	reads     int
	commitErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts: map[common.Address]account.Account{},
		records:  map[recordKey]allowance.Record{},
		balances: map[recordKey]uint256.Int{},
	}
}

func (f *fakeRepo) GetAccount(_ context.Context, addr common.Address) (account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[addr]
	if !ok {
		return account.Account{}, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (f *fakeRepo) GetAllowance(_ context.Context, acc, asset common.Address) (allowance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	rec, ok := f.records[recordKey{acc, asset}]
	if !ok {
		return allowance.Disabled(asset), nil
	}
	return rec, nil
}

func (f *fakeRepo) ListAllowances(_ context.Context, acc common.Address) ([]allowance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []allowance.Record{}
	for k, rec := range f.records {
		if k.account == acc {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) Commit(_ context.Context, cs *changeset.Set) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits++
	for _, a := range cs.Accounts() {
		f.accounts[a.Address()] = a
	}
	for _, a := range cs.Allowances() {
		f.records[recordKey{a.Account, a.Record.Asset()}] = a.Record
	}
	for _, b := range cs.Balances() {
		f.balances[recordKey{b.Account, b.Asset}] = b.Amount
	}
	return nil
}

func (f *fakeRepo) record(acc common.Address) allowance.Record {
	rec, _ := f.GetAllowance(context.Background(), acc, testAsset)
	return rec
}

func (f *fakeRepo) nonce(acc common.Address) uint64 {
	a, _ := f.GetAccount(context.Background(), acc)
	return a.Nonce()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	clock   *fakeClock
	sink    *recordingSink
	key     *ecdsa.PrivateKey
	account common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	cfg := domain.DefaultLedgerConfig()
	cfg.Period = testPeriod

	acc, err := account.New(cfg.Factory, crypto.PubkeyToAddress(key.PublicKey), common.Hash{1})
	if err != nil {
		t.Fatal(err)
	}
	repo := newFakeRepo()
	repo.accounts[acc.Address()] = acc

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	sink := &recordingSink{}
	svc := New(repo, keylock.New(), cfg).WithClock(clock).WithEventSink(sink)

	return &fixture{svc: svc, repo: repo, clock: clock, sink: sink, key: key, account: acc.Address()}
}

func (f *fixture) signed(t *testing.T, kind call.Kind, limit uint64) (call.Call, []byte) {
	t.Helper()
	c := call.Call{
		Kind:    kind,
		Account: f.account,
		Asset:   testAsset,
		Amount:  *uint256.NewInt(limit),
		Nonce:   f.repo.nonce(f.account),
	}
	sig, err := call.Sign(c, f.svc.SignedDomain(), f.key)
	if err != nil {
		t.Fatal(err)
	}
	return c, sig
}

func (f *fixture) setLimit(t *testing.T, limit uint64) allowance.Record {
	t.Helper()
	c, sig := f.signed(t, call.KindSetSpendingLimit, limit)
	rec, err := f.svc.SetSpendingLimit(context.Background(), c, sig)
	if err != nil {
		t.Fatalf("SetSpendingLimit(%d): %v", limit, err)
	}
	return rec
}

func (f *fixture) spend(amount uint64) (allowance.Record, error) {
	return f.svc.Authorize(context.Background(), f.account, testAsset, *uint256.NewInt(amount))
}

func (f *fixture) now() int64 { return f.clock.Now().Unix() }

func assertRecord(t *testing.T, r allowance.Record, limit, available uint64, resetTime int64, enabled bool) {
	t.Helper()
	if got := r.Limit(); got.Uint64() != limit {
		t.Errorf("limit = %s, want %d", got.Dec(), limit)
	}
	if got := r.Available(); got.Uint64() != available {
		t.Errorf("available = %s, want %d", got.Dec(), available)
	}
	if r.ResetTime() != resetTime {
		t.Errorf("resetTime = %d, want %d", r.ResetTime(), resetTime)
	}
	if r.IsEnabled() != enabled {
		t.Errorf("enabled = %v, want %v", r.IsEnabled(), enabled)
	}
}
