package spendguard

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain"
	domacc "github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/call"
	transferuc "github.com/kailas-cloud/spendguard/internal/usecase/transfer"
)

const defaultKeyPrefix = "spendguard:"

// NativeAsset identifies the chain's native coin.
var NativeAsset = domain.NativeAsset

// UpdateMode controls how SetSpendingLimit treats an already enabled limit.
type UpdateMode string

// Update modes.
const (
	// ModeOverwrite resets available to the new limit and starts a new period.
	ModeOverwrite UpdateMode = UpdateMode(allowance.ModeOverwrite)
	// ModePreserveUsage keeps what was already spent in the current period.
	ModePreserveUsage UpdateMode = UpdateMode(allowance.ModePreserveUsage)
)

// Domain binds signatures to one deployment.
type Domain struct {
	ChainID uint64
	Factory common.Address
}

// DefaultDomain is the domain of a client built without WithChainID or WithFactory.
func DefaultDomain() Domain {
	cfg := domain.DefaultLedgerConfig()
	return Domain{ChainID: cfg.ChainID, Factory: cfg.Factory}
}

// Account is a deployed smart account.
type Account struct {
	Address   common.Address
	Owner     common.Address
	Salt      common.Hash
	Nonce     uint64 // next expected call nonce
	CreatedAt time.Time
}

// Limit is the daily allowance of one asset as stored.
// Available may be stale until the next spend when ResetTime has passed.
type Limit struct {
	Asset     common.Address
	Limit     uint256.Int
	Available uint256.Int
	ResetTime time.Time // zero when the limit was never set or was removed
	Enabled   bool
}

// TransferRequest describes an outgoing transfer. The owner signs it with Signer.SignTransfer.
type TransferRequest struct {
	From   common.Address
	To     common.Address
	Asset  common.Address
	Amount uint256.Int
	Nonce  uint64
}

// Receipt is the outcome of a committed transfer.
type Receipt struct {
	From      common.Address
	To        common.Address
	Asset     common.Address
	Amount    uint256.Int
	Nonce     uint64
	Balance   uint256.Int // sender balance after the transfer
	Allowance Limit       // sender limit after the transfer
	Internal  bool        // recipient is an account of this ledger
}

func (d Domain) toInternal() call.Domain {
	return call.Domain{ChainID: d.ChainID, Factory: d.Factory}
}

func fromInternalAccount(a domacc.Account) Account {
	return Account{
		Address:   a.Address(),
		Owner:     a.Owner(),
		Salt:      a.Salt(),
		Nonce:     a.Nonce(),
		CreatedAt: time.UnixMilli(a.CreatedAt()),
	}
}

func fromInternalRecord(r allowance.Record) Limit {
	l := Limit{
		Asset:     r.Asset(),
		Limit:     r.Limit(),
		Available: r.Available(),
		Enabled:   r.IsEnabled(),
	}
	if r.ResetTime() > 0 {
		l.ResetTime = time.Unix(r.ResetTime(), 0)
	}
	return l
}

func fromInternalReceipt(r transferuc.Receipt) Receipt {
	return Receipt{
		From:      r.From,
		To:        r.To,
		Asset:     r.Asset,
		Amount:    r.Amount,
		Nonce:     r.Nonce,
		Balance:   r.Balance,
		Allowance: fromInternalRecord(r.Allowance),
		Internal:  r.Internal,
	}
}
