package ledger

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
)

// accountToHash converts a domain Account to a map for HSET.
func accountToHash(a account.Account) map[string]string {
	return map[string]string{
		"address":    a.Address().Hex(),
		"owner":      a.Owner().Hex(),
		"salt":       a.Salt().Hex(),
		"nonce":      strconv.FormatUint(a.Nonce(), 10),
		"created_at": strconv.FormatInt(a.CreatedAt(), 10),
	}
}

// accountFromHash hydrates a domain Account from an HGETALL result map.
func accountFromHash(m map[string]string) (account.Account, error) {
	for _, f := range []string{"address", "owner", "salt"} {
		if m[f] == "" {
			return account.Account{}, fmt.Errorf("missing %s", f)
		}
	}
	nonce, err := strconv.ParseUint(m["nonce"], 10, 64)
	if err != nil {
		return account.Account{}, fmt.Errorf("invalid nonce: %w", err)
	}
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return account.Account{}, fmt.Errorf("invalid created_at: %w", err)
	}
	return account.Reconstruct(
		common.HexToAddress(m["address"]),
		common.HexToAddress(m["owner"]),
		common.HexToHash(m["salt"]),
		nonce,
		createdAt,
	), nil
}

// recordToHash converts an allowance Record to a map for HSET.
func recordToHash(r allowance.Record) map[string]string {
	limit, available := r.Limit(), r.Available()
	enabled := "0"
	if r.IsEnabled() {
		enabled = "1"
	}
	return map[string]string{
		"asset":      r.Asset().Hex(),
		"limit":      limit.Dec(),
		"available":  available.Dec(),
		"reset_time": strconv.FormatInt(r.ResetTime(), 10),
		"enabled":    enabled,
	}
}

// recordFromHash hydrates an allowance Record and checks its invariants.
func recordFromHash(m map[string]string) (allowance.Record, error) {
	if m["asset"] == "" {
		return allowance.Record{}, fmt.Errorf("missing asset")
	}
	limit, err := uint256.FromDecimal(m["limit"])
	if err != nil {
		return allowance.Record{}, fmt.Errorf("invalid limit: %w", err)
	}
	available, err := uint256.FromDecimal(m["available"])
	if err != nil {
		return allowance.Record{}, fmt.Errorf("invalid available: %w", err)
	}
	resetTime, err := strconv.ParseInt(m["reset_time"], 10, 64)
	if err != nil {
		return allowance.Record{}, fmt.Errorf("invalid reset_time: %w", err)
	}
	r := allowance.Reconstruct(common.HexToAddress(m["asset"]), *limit, *available, resetTime, m["enabled"] == "1")
	if err := r.Validate(); err != nil {
		return allowance.Record{}, err
	}
	return r, nil
}

// parseBalance reads one balance field; a missing field is zero.
func parseBalance(v string) (uint256.Int, error) {
	if v == "" {
		return uint256.Int{}, nil
	}
	n, err := uint256.FromDecimal(v)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("invalid balance: %w", err)
	}
	return *n, nil
}
