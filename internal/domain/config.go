package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAsset identifies the chain's native coin.
var NativeAsset = common.HexToAddress("0x000000000000000000000000000000000000800A")

// DefaultFactory is the factory address used to derive account addresses when none is configured.
var DefaultFactory = common.HexToAddress("0x0000000000000000000000000000000000008006")

// LedgerConfig holds ledger-wide settings shared by the services.
type LedgerConfig struct {
	Period  time.Duration
	ChainID uint64
	Factory common.Address
}

// DefaultLedgerConfig returns a one-day allowance period on chain 270.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Period:  24 * time.Hour,
		ChainID: 270,
		Factory: DefaultFactory,
	}
}
