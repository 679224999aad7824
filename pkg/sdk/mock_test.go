package spendguard

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	domacc "github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/call"
	transferuc "github.com/kailas-cloud/spendguard/internal/usecase/transfer"
)

// --- accountUseCase mock ---

type mockAccountUC struct {
	deployFn  func(ctx context.Context, owner common.Address, salt common.Hash) (domacc.Account, bool, error)
	addressFn func(owner common.Address, salt common.Hash) common.Address
	getFn     func(ctx context.Context, addr common.Address) (domacc.Account, error)
	fundFn    func(ctx context.Context, addr, asset common.Address, amount uint256.Int) (uint256.Int, error)
	balanceFn func(ctx context.Context, addr, asset common.Address) (uint256.Int, error)
}

func (m *mockAccountUC) Deploy(ctx context.Context, owner common.Address, salt common.Hash) (domacc.Account, bool, error) {
	return m.deployFn(ctx, owner, salt)
}

func (m *mockAccountUC) Address(owner common.Address, salt common.Hash) common.Address {
	return m.addressFn(owner, salt)
}

func (m *mockAccountUC) Get(ctx context.Context, addr common.Address) (domacc.Account, error) {
	return m.getFn(ctx, addr)
}

func (m *mockAccountUC) Fund(ctx context.Context, addr, asset common.Address, amount uint256.Int) (uint256.Int, error) {
	return m.fundFn(ctx, addr, asset, amount)
}

func (m *mockAccountUC) Balance(ctx context.Context, addr, asset common.Address) (uint256.Int, error) {
	return m.balanceFn(ctx, addr, asset)
}

// --- ledgerUseCase mock ---

type mockLedgerUC struct {
	setFn       func(ctx context.Context, c call.Call, sig []byte) (allowance.Record, error)
	removeFn    func(ctx context.Context, c call.Call, sig []byte) (allowance.Record, error)
	limitsFn    func(ctx context.Context, acc, asset common.Address) (allowance.Record, error)
	listFn      func(ctx context.Context, acc common.Address) ([]allowance.Record, error)
	spendableFn func(ctx context.Context, acc, asset common.Address) (uint256.Int, bool, error)
}

func (m *mockLedgerUC) SetSpendingLimit(ctx context.Context, c call.Call, sig []byte) (allowance.Record, error) {
	return m.setFn(ctx, c, sig)
}

func (m *mockLedgerUC) RemoveSpendingLimit(ctx context.Context, c call.Call, sig []byte) (allowance.Record, error) {
	return m.removeFn(ctx, c, sig)
}

func (m *mockLedgerUC) Limits(ctx context.Context, acc, asset common.Address) (allowance.Record, error) {
	return m.limitsFn(ctx, acc, asset)
}

func (m *mockLedgerUC) List(ctx context.Context, acc common.Address) ([]allowance.Record, error) {
	return m.listFn(ctx, acc)
}

func (m *mockLedgerUC) Spendable(ctx context.Context, acc, asset common.Address) (uint256.Int, bool, error) {
	return m.spendableFn(ctx, acc, asset)
}

// --- transferUseCase mock ---

type mockTransferUC struct {
	fn func(ctx context.Context, c call.Call, sig []byte) (transferuc.Receipt, error)
}

func (m *mockTransferUC) Transfer(ctx context.Context, c call.Call, sig []byte) (transferuc.Receipt, error) {
	return m.fn(ctx, c, sig)
}
