// Package changeset describes the state writes of one ledger operation, committed all-or-nothing.
package changeset

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
)

// Allowance is a record write for one account.
type Allowance struct {
	Account common.Address
	Record  allowance.Record
}

// Balance is a balance write for one (account, asset).
type Balance struct {
	Account common.Address
	Asset   common.Address
	Amount  uint256.Int
}

// Set accumulates writes. The zero value is ready to use.
type Set struct {
	accounts   []account.Account
	allowances []Allowance
	balances   []Balance
}

// PutAccount stages an account write.
func (s *Set) PutAccount(a account.Account) { s.accounts = append(s.accounts, a) }

// PutAllowance stages an allowance record write.
func (s *Set) PutAllowance(acc common.Address, r allowance.Record) {
	s.allowances = append(s.allowances, Allowance{Account: acc, Record: r})
}

// PutBalance stages a balance write.
func (s *Set) PutBalance(acc, asset common.Address, amount uint256.Int) {
	s.balances = append(s.balances, Balance{Account: acc, Asset: asset, Amount: amount})
}

// Accounts returns staged account writes.
func (s *Set) Accounts() []account.Account { return s.accounts }

// Allowances returns staged allowance writes.
func (s *Set) Allowances() []Allowance { return s.allowances }

// Balances returns staged balance writes.
func (s *Set) Balances() []Balance { return s.balances }

// Empty reports whether nothing is staged.
func (s *Set) Empty() bool {
	return len(s.accounts) == 0 && len(s.allowances) == 0 && len(s.balances) == 0
}
