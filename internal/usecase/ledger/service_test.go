package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
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
)

// --- Scenarios ---

func TestScenario_SpendWithinDenyThenReplenish(t *testing.T) {
	f := newFixture(t)
	start := f.now()

	f.setLimit(t, 10)
	assertRecord(t, f.repo.record(f.account), 10, 10, start+10, true)

	if _, err := f.spend(5); err != nil {
		t.Fatalf("spend 5: %v", err)
	}
	assertRecord(t, f.repo.record(f.account), 10, 5, start+10, true)

	if _, err := f.spend(6); !errors.Is(err, domain.ErrLimitExceeded) {
		t.Fatalf("spend 6: expected ErrLimitExceeded, got %v", err)
	}
	assertRecord(t, f.repo.record(f.account), 10, 5, start+10, true)

	f.clock.Advance(testPeriod)
	if _, err := f.spend(6); err != nil {
		t.Fatalf("spend 6 after period: %v", err)
	}
	assertRecord(t, f.repo.record(f.account), 10, 4, start+20, true)
}

func TestScenario_RaiseLimitAfterDenial(t *testing.T) {
	f := newFixture(t)
	start := f.now()

	f.setLimit(t, 10)
	if _, err := f.spend(15); !errors.Is(err, domain.ErrLimitExceeded) {
		t.Fatalf("spend 15: expected ErrLimitExceeded, got %v", err)
	}

	f.setLimit(t, 20)
	if _, err := f.spend(15); err != nil {
		t.Fatalf("spend 15 after raise: %v", err)
	}
	assertRecord(t, f.repo.record(f.account), 20, 5, start+10, true)
}

// --- Authorize ---

func TestAuthorize_NoRecordAllowsAnything(t *testing.T) {
	f := newFixture(t)
	var max uint256.Int
	max.SetAllOne()

	rec, err := f.svc.Authorize(context.Background(), f.account, testAsset, max)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRecord(t, rec, 0, 0, 0, false)
	if f.repo.commits != 0 {
		t.Errorf("expected no state write, got %d commits", f.repo.commits)
	}
}

func TestAuthorize_DeniedDiscardsReplenish(t *testing.T) {
	f := newFixture(t)
	start := f.now()
	f.setLimit(t, 10)
	if _, err := f.spend(8); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(testPeriod + time.Second)
	rec, err := f.spend(11)
	if !errors.Is(err, domain.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	assertRecord(t, rec, 10, 2, start+10, true)
	assertRecord(t, f.repo.record(f.account), 10, 2, start+10, true)
}

func TestAuthorize_ExactAvailable(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 10)

	if _, err := f.spend(10); err != nil {
		t.Fatalf("spend of the whole allowance: %v", err)
	}
	if _, err := f.spend(1); !errors.Is(err, domain.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
}

func TestAuthorize_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Authorize(context.Background(), common.Address{0x42}, testAsset, *uint256.NewInt(1))
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAuthorize_ZeroLimitDeniesNonZero(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 0)

	if _, err := f.spend(0); err != nil {
		t.Fatalf("zero spend: %v", err)
	}
	if _, err := f.spend(1); !errors.Is(err, domain.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
}

func TestAuthorize_Events(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 10)
	_, _ = f.spend(4)
	_, _ = f.spend(7)

	got := f.sink.types()
	want := []EventType{EventLimitSet, EventSpendAuthorized, EventSpendDenied}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	denied := f.sink.events[2]
	if denied.Amount.Uint64() != 7 || denied.Available.Uint64() != 6 || denied.ID == "" {
		t.Errorf("unexpected denied event: %+v", denied)
	}
}

func TestAuthorize_ConcurrentSpendsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 50)

	var (
		wg sync.WaitGroup
		ok atomic.Int64
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.spend(1); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 50 {
		t.Errorf("authorized %d spends, want 50", ok.Load())
	}
	if avail := f.repo.record(f.account).Available(); !avail.IsZero() {
		t.Errorf("available = %s, want 0", avail.Dec())
	}
}

// --- Spend guard ---

func TestSpend_TransferFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	start := f.now()
	f.setLimit(t, 10)
	commits := f.repo.commits

	boom := errors.New("transfer failed")
	_, err := f.svc.Spend(context.Background(),
		SpendRequest{Account: f.account, Asset: testAsset, Amount: *uint256.NewInt(3)},
		func(context.Context, account.Account, *changeset.Set) error { return boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected transfer error, got %v", err)
	}
	assertRecord(t, f.repo.record(f.account), 10, 10, start+10, true)
	if f.repo.commits != commits {
		t.Error("nothing may be committed after a failed transfer")
	}
}

func TestSpend_CommitsTransferWritesWithRecord(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 10)
	other := common.Address{0x77}

	_, err := f.svc.Spend(context.Background(),
		SpendRequest{Account: f.account, Asset: testAsset, Amount: *uint256.NewInt(3), Counterparties: []common.Address{other}},
		func(_ context.Context, acc account.Account, cs *changeset.Set) error {
			cs.PutBalance(acc.Address(), testAsset, *uint256.NewInt(97))
			cs.PutBalance(other, testAsset, *uint256.NewInt(3))
			return nil
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b := f.repo.balances[recordKey{other, testAsset}]; b.Uint64() != 3 {
		t.Errorf("recipient balance = %s", b.Dec())
	}
	if avail := f.repo.record(f.account).Available(); avail.Uint64() != 7 {
		t.Errorf("available = %s, want 7", avail.Dec())
	}
}

func TestSpend_CheckRunsBeforeAllowance(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 1)

	_, err := f.svc.Spend(context.Background(),
		SpendRequest{
			Account: f.account, Asset: testAsset, Amount: *uint256.NewInt(5),
			Check: func(context.Context, account.Account) error { return domain.ErrUnauthorized },
		}, nil)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized before the limit check, got %v", err)
	}
	for _, typ := range f.sink.types() {
		if typ == EventSpendDenied {
			t.Error("a rejected check must not reach the allowance")
		}
	}
}

func TestSpend_CommitErrorKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 10)
	f.repo.commitErr = errors.New("EXECABORT")

	if _, err := f.spend(3); err == nil {
		t.Fatal("expected commit error")
	}
	f.repo.commitErr = nil
	if avail := f.repo.record(f.account).Available(); avail.Uint64() != 10 {
		t.Errorf("available = %s, want 10", avail.Dec())
	}
}

// --- Administration ---

func TestSetSpendingLimit_ConsumesNonce(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 10)
	f.setLimit(t, 12)
	if n := f.repo.nonce(f.account); n != 2 {
		t.Errorf("nonce = %d, want 2", n)
	}
}

func TestSetSpendingLimit_WrongSigner(t *testing.T) {
	f := newFixture(t)
	c, _ := f.signed(t, call.KindSetSpendingLimit, 10)

	intruder, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := call.Sign(c, f.svc.SignedDomain(), intruder)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.SetSpendingLimit(context.Background(), c, sig); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if f.repo.record(f.account).IsEnabled() || f.repo.nonce(f.account) != 0 {
		t.Error("unauthorized call must not change state")
	}
}

func TestSetSpendingLimit_ReplayedNonce(t *testing.T) {
	f := newFixture(t)
	c, sig := f.signed(t, call.KindSetSpendingLimit, 10)
	if _, err := f.svc.SetSpendingLimit(context.Background(), c, sig); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.SetSpendingLimit(context.Background(), c, sig); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected replay to fail with ErrUnauthorized, got %v", err)
	}
}

func TestSetSpendingLimit_WrongKind(t *testing.T) {
	f := newFixture(t)
	c, sig := f.signed(t, call.KindRemoveSpendingLimit, 0)

	if _, err := f.svc.SetSpendingLimit(context.Background(), c, sig); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSetSpendingLimit_PreserveUsage(t *testing.T) {
	f := newFixture(t)
	f.svc.WithUpdateMode(allowance.ModePreserveUsage)
	start := f.now()

	f.setLimit(t, 10)
	_, _ = f.spend(7)
	f.clock.Advance(time.Second)

	rec := f.setLimit(t, 20)
	assertRecord(t, rec, 20, 13, start+10, true)

	rec = f.setLimit(t, 5)
	assertRecord(t, rec, 5, 0, start+10, true)
}

func TestSetSpendingLimit_OverwriteResetsUsage(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 10)
	_, _ = f.spend(7)
	f.clock.Advance(3 * time.Second)

	rec := f.setLimit(t, 10)
	assertRecord(t, rec, 10, 10, f.now()+10, true)
}

func TestRemoveSpendingLimit(t *testing.T) {
	f := newFixture(t)
	f.setLimit(t, 10)

	c, sig := f.signed(t, call.KindRemoveSpendingLimit, 0)
	rec, err := f.svc.RemoveSpendingLimit(context.Background(), c, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRecord(t, rec, 0, 0, 0, false)

	if _, err := f.spend(1_000_000); err != nil {
		t.Fatalf("spend after removal must be unrestricted: %v", err)
	}
}

func TestRemoveSpendingLimit_DisabledKeepsNonce(t *testing.T) {
	f := newFixture(t)
	c, sig := f.signed(t, call.KindRemoveSpendingLimit, 0)

	if _, err := f.svc.RemoveSpendingLimit(context.Background(), c, sig); !errors.Is(err, domain.ErrInvalidUpdate) {
		t.Fatalf("expected ErrInvalidUpdate, got %v", err)
	}
	if n := f.repo.nonce(f.account); n != 0 {
		t.Errorf("nonce = %d, want 0", n)
	}
}

// --- Queries ---

func TestLimitsAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Limits(ctx, f.account, testAsset)
	if err != nil || rec.IsEnabled() {
		t.Fatalf("Limits before set = %+v, %v", rec, err)
	}

	f.setLimit(t, 10)
	recs, err := f.svc.List(ctx, f.account)
	if err != nil || len(recs) != 1 {
		t.Fatalf("List = %v, %v", recs, err)
	}

	if _, err := f.svc.List(ctx, common.Address{0x42}); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestSpendable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, limited, err := f.svc.Spendable(ctx, f.account, testAsset); err != nil || limited {
		t.Fatalf("Spendable without limit = %v, %v", limited, err)
	}

	f.setLimit(t, 10)
	_, _ = f.spend(9)
	if v, _, _ := f.svc.Spendable(ctx, f.account, testAsset); v.Uint64() != 1 {
		t.Errorf("spendable = %s, want 1", v.Dec())
	}

	f.clock.Advance(testPeriod)
	if v, _, _ := f.svc.Spendable(ctx, f.account, testAsset); v.Uint64() != 10 {
		t.Errorf("spendable after period = %s, want 10", v.Dec())
	}
	if avail := f.repo.record(f.account).Available(); avail.Uint64() != 1 {
		t.Error("Spendable must not write the replenished record")
	}
}

func TestLimitView_SingleRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.setLimit(t, 10)
	_, _ = f.spend(9)
	f.clock.Advance(testPeriod)

	f.repo.mu.Lock()
	before := f.repo.reads
	f.repo.mu.Unlock()

	stored, eff, err := f.svc.LimitView(ctx, f.account, testAsset)
	if err != nil {
		t.Fatal(err)
	}

	f.repo.mu.Lock()
	reads := f.repo.reads - before
	f.repo.mu.Unlock()
	if reads != 1 {
		t.Errorf("allowance reads = %d, want 1", reads)
	}

	storedAvail, effAvail := stored.Available(), eff.Available()
	if storedAvail.Uint64() != 1 || effAvail.Uint64() != 10 {
		t.Errorf("stored = %d, effective = %d, want 1 and 10", storedAvail.Uint64(), effAvail.Uint64())
	}
	if eff.ResetTime() != f.now()+int64(testPeriod/time.Second) {
		t.Errorf("effective reset = %d", eff.ResetTime())
	}

	if _, _, err := f.svc.LimitView(ctx, common.Address{0x42}, testAsset); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}
