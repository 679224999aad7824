package allowance

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain"
)

// UpdateMode controls how Set treats a record that is already enabled.
type UpdateMode string

const (
	// ModeOverwrite replaces limit and available and restarts the period.
	ModeOverwrite UpdateMode = "overwrite"
	// ModePreserveUsage changes the limit but keeps what was already spent in the current period.
	ModePreserveUsage UpdateMode = "preserve_usage"
)

// IsValid checks if the update mode is supported.
func (m UpdateMode) IsValid() bool {
	return m == ModeOverwrite || m == ModePreserveUsage
}

// Record is the per-asset daily allowance of an account (immutable value object).
// Transitions return a new Record; the receiver is never modified.
type Record struct {
	asset     common.Address
	limit     uint256.Int
	available uint256.Int
	resetTime int64 // unix seconds
	enabled   bool
}

// Disabled returns the zero record for an asset: no limit, unrestricted spending.
func Disabled(asset common.Address) Record {
	return Record{asset: asset}
}

// Reconstruct hydrates a Record from storage without validation.
func Reconstruct(asset common.Address, limit, available uint256.Int, resetTime int64, enabled bool) Record {
	return Record{
		asset:     asset,
		limit:     limit,
		available: available,
		resetTime: resetTime,
		enabled:   enabled,
	}
}

// Asset returns the asset the record applies to.
func (r Record) Asset() common.Address { return r.asset }

// Limit returns the maximum spendable amount per period.
func (r Record) Limit() uint256.Int { return r.limit }

// Available returns the amount still spendable in the current period.
func (r Record) Available() uint256.Int { return r.available }

// ResetTime returns the unix second at which available replenishes.
func (r Record) ResetTime() int64 { return r.resetTime }

// IsEnabled reports whether the asset has an active limit.
func (r Record) IsEnabled() bool { return r.enabled }

// Spent returns limit minus available.
func (r Record) Spent() uint256.Int {
	var out uint256.Int
	out.Sub(&r.limit, &r.available)
	return out
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if !r.enabled {
		if !r.limit.IsZero() || !r.available.IsZero() || r.resetTime != 0 {
			return fmt.Errorf("disabled record for %s must be zeroed", r.asset.Hex())
		}
		return nil
	}
	if r.available.Gt(&r.limit) {
		return fmt.Errorf("available %s exceeds limit %s for %s", r.available.Dec(), r.limit.Dec(), r.asset.Hex())
	}
	return nil
}

// Set applies an owner's setSpendingLimit at unix second now.
func (r Record) Set(now int64, period time.Duration, newLimit uint256.Int, mode UpdateMode) Record {
	if !r.enabled || mode != ModePreserveUsage {
		return Record{
			asset:     r.asset,
			limit:     newLimit,
			available: newLimit,
			resetTime: now + periodSeconds(period),
			enabled:   true,
		}
	}

	next := r.replenish(now, period)
	spent := next.Spent()
	next.limit = newLimit
	if spent.Lt(&newLimit) {
		next.available.Sub(&newLimit, &spent)
	} else {
		next.available.Clear()
	}
	return next
}

// Remove zeroes and disables the record.
func (r Record) Remove() (Record, error) {
	if !r.enabled {
		return r, fmt.Errorf("remove limit for %s: %w", r.asset.Hex(), domain.ErrInvalidUpdate)
	}
	return Disabled(r.asset), nil
}

// Authorize decides a spend of amount at unix second now.
// On success it returns the record with the spend applied; on denial it returns
// the receiver unchanged together with domain.ErrLimitExceeded.
func (r Record) Authorize(now int64, period time.Duration, amount uint256.Int) (Record, error) {
	if !r.enabled {
		return r, nil
	}

	next := r.replenish(now, period)
	if amount.Gt(&next.available) {
		return r, domain.ErrLimitExceeded
	}
	next.available.Sub(&next.available, &amount)
	return next, nil
}

// Effective returns the record as a spend at now would observe it, replenished if the period elapsed.
func (r Record) Effective(now int64, period time.Duration) Record {
	if !r.enabled {
		return r
	}
	return r.replenish(now, period)
}

func (r Record) replenish(now int64, period time.Duration) Record {
	if now < r.resetTime {
		return r
	}
	r.available = r.limit
	r.resetTime = now + periodSeconds(period)
	return r
}

func periodSeconds(period time.Duration) int64 {
	s := int64(period / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
