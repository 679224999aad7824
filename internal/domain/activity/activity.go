package activity

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Outcome is the counter a spend decision lands in.
type Outcome string

// Spend decision outcomes.
const (
	Authorized Outcome = "authorized"
	Denied     Outcome = "denied"
)

// Day returns the UTC day label of t, the granularity counters are kept at.
func Day(t time.Time) string { return t.UTC().Format(time.DateOnly) }

// NextMidnight returns the UTC midnight after t.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// Activity counts an account's spend decisions for one UTC day.
type Activity struct {
	account    common.Address
	day        string // YYYY-MM-DD
	authorized int64
	denied     int64
	resetsAt   int64 // unix millis of the next UTC midnight
}

// New creates an Activity snapshot.
func New(account common.Address, day string, authorized, denied, resetsAt int64) Activity {
	return Activity{
		account:    account,
		day:        day,
		authorized: authorized,
		denied:     denied,
		resetsAt:   resetsAt,
	}
}

// Account returns the account the counters belong to.
func (a Activity) Account() common.Address { return a.account }

// Day returns the UTC day the counters cover.
func (a Activity) Day() string { return a.day }

// Authorized returns the number of spends let through.
func (a Activity) Authorized() int64 { return a.authorized }

// Denied returns the number of spends rejected by the allowance.
func (a Activity) Denied() int64 { return a.denied }

// ResetsAt returns when the counters roll over (unix millis).
func (a Activity) ResetsAt() int64 { return a.resetsAt }
