package balance

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain"
)

// Credit adds amount to balance.
func Credit(balance, amount uint256.Int) (uint256.Int, error) {
	var out uint256.Int
	if _, overflow := out.AddOverflow(&balance, &amount); overflow {
		return uint256.Int{}, fmt.Errorf("%w: balance overflow", domain.ErrInvalidAmount)
	}
	return out, nil
}

// Debit subtracts amount from balance.
func Debit(balance, amount uint256.Int) (uint256.Int, error) {
	if amount.Gt(&balance) {
		return uint256.Int{}, fmt.Errorf("%w: balance %s, need %s",
			domain.ErrInsufficientFunds, balance.Dec(), amount.Dec())
	}
	var out uint256.Int
	out.Sub(&balance, &amount)
	return out, nil
}
