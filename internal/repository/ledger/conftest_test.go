package ledger

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/db"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
)

const testPrefix = "spendguard:"

var (
	testAccount = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testAsset   = common.HexToAddress("0x000000000000000000000000000000000000800A")
	testToken   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	hsetAtomicFn   func(ctx context.Context, items []db.HashSetItem) error
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) HSetAtomic(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetAtomicFn != nil {
		return m.hsetAtomicFn(ctx, items)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testPrefix), ms
}

func testRecord(t *testing.T) allowance.Record {
	t.Helper()
	return allowance.Reconstruct(testAsset, *uint256.NewInt(1000), *uint256.NewInt(400), 1700000086, true)
}
