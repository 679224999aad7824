package spendguard

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_NoStore(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no store is configured")
	}
}

func TestNew_UnknownUpdateMode(t *testing.T) {
	_, err := New(context.Background(), WithMemory(), WithUpdateMode("sometimes"))
	if err == nil {
		t.Fatal("expected error for unknown update mode")
	}
}

func TestCreateStore_Errors(t *testing.T) {
	if _, err := createStore(&clientConfig{driver: "unknown"}); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := createStore(&clientConfig{driver: "valkey", addrs: []string{""}}); err == nil {
		t.Error("expected error for empty address")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := defaultClientConfig()
	if cfg.ledger.Period != 24*time.Hour || cfg.ledger.ChainID != 270 || cfg.updateMode != ModeOverwrite {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("valkey option: %+v", cfg)
	}

	WithRedis("localhost:6380", "pass").apply(cfg)
	if cfg.driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg.driver)
	}

	WithMemory().apply(cfg)
	if cfg.driver != "memory" || cfg.addrs != nil {
		t.Errorf("memory option: %+v", cfg)
	}

	WithPeriod(10 * time.Millisecond).apply(cfg)
	if cfg.ledger.Period != time.Second {
		t.Errorf("period = %v, want 1s floor", cfg.ledger.Period)
	}

	factory := common.HexToAddress("0x00000000000000000000000000000000000000f0")
	WithChainID(324).apply(cfg)
	WithFactory(factory).apply(cfg)
	WithUpdateMode(ModePreserveUsage).apply(cfg)
	WithKeyPrefix("t:").apply(cfg)
	if cfg.ledger.ChainID != 324 || cfg.ledger.Factory != factory || cfg.updateMode != ModePreserveUsage || cfg.keyPrefix != "t:" {
		t.Errorf("ledger options: %+v", cfg)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected registerer to be set")
	}
}

func TestNewSDKMetrics_Reuse(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if first.operations != second.operations {
		t.Error("expected existing collector to be reused")
	}
}

func TestClient_Memory_DailyLimit(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	client, err := New(ctx, WithMemory(), WithPrometheus(reg))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if h := client.Health(ctx); !h.OK() {
		t.Errorf("health = %+v", h)
	}

	owner, err := GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}
	owner = owner.ForDomain(client.Domain())

	acc, created, err := client.Accounts().Deploy(ctx, owner.Address(), common.Hash{})
	if err != nil || !created {
		t.Fatalf("deploy: created=%v err=%v", created, err)
	}
	if acc.Address != client.Accounts().Address(owner.Address(), common.Hash{}) {
		t.Error("deployed address differs from derived address")
	}
	if _, err := client.Accounts().Fund(ctx, acc.Address, NativeAsset, *uint256.NewInt(100)); err != nil {
		t.Fatalf("fund: %v", err)
	}

	limits := client.Limits(acc.Address)
	nonce := uint64(0)
	setLimit := func(v uint64) {
		t.Helper()
		sig, err := owner.SignSetSpendingLimit(acc.Address, NativeAsset, *uint256.NewInt(v), nonce)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := limits.Set(ctx, NativeAsset, *uint256.NewInt(v), nonce, sig); err != nil {
			t.Fatalf("set limit %d: %v", v, err)
		}
		nonce++
	}
	transfer := func(v uint64) (Receipt, error) {
		t.Helper()
		req := TransferRequest{From: acc.Address, To: common.HexToAddress("0xbeef"), Asset: NativeAsset,
			Amount: *uint256.NewInt(v), Nonce: nonce}
		sig, err := owner.SignTransfer(req)
		if err != nil {
			t.Fatal(err)
		}
		r, err := client.Transfer(ctx, req, sig)
		if err == nil {
			nonce++
		}
		return r, err
	}

	setLimit(10)
	if _, err := transfer(15); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	setLimit(20)
	r, err := transfer(15)
	if err != nil {
		t.Fatalf("transfer 15: %v", err)
	}
	if r.Allowance.Available.Uint64() != 5 || r.Balance.Uint64() != 85 {
		t.Errorf("unexpected receipt: %+v", r)
	}

	got, err := limits.Get(ctx, NativeAsset)
	if err != nil {
		t.Fatal(err)
	}
	if got.Limit.Uint64() != 20 || got.Available.Uint64() != 5 || !got.Enabled {
		t.Errorf("unexpected limit: %+v", got)
	}

	ops := client.obs.metrics.operations
	if v := testutil.ToFloat64(ops.WithLabelValues("transfer", "denied")); v != 1 {
		t.Errorf("denied transfers = %v, want 1", v)
	}
	if v := testutil.ToFloat64(ops.WithLabelValues("transfer", "ok")); v != 1 {
		t.Errorf("ok transfers = %v, want 1", v)
	}
	if v := testutil.ToFloat64(ops.WithLabelValues("health", "ok")); v != 1 {
		t.Errorf("health checks = %v, want 1", v)
	}
	if v := testutil.ToFloat64(client.obs.metrics.events.WithLabelValues("limit_set")); v != 2 {
		t.Errorf("limit_set events = %v, want 2", v)
	}
}
