package account

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a smart account deployed by the factory (immutable value object).
type Account struct {
	address   common.Address
	owner     common.Address
	salt      common.Hash
	nonce     uint64
	createdAt int64 // unix millis
}

// Address derives the account address for owner and salt, the way the factory's CREATE2 deployment does.
func Address(factory, owner common.Address, salt common.Hash) common.Address {
	initHash := crypto.Keccak256(factory.Bytes(), owner.Bytes())
	return crypto.CreateAddress2(factory, salt, initHash)
}

// New creates an Account at its derived address with nonce 0.
func New(factory, owner common.Address, salt common.Hash) (Account, error) {
	if owner == (common.Address{}) {
		return Account{}, fmt.Errorf("owner is required")
	}
	return Account{
		address:   Address(factory, owner, salt),
		owner:     owner,
		salt:      salt,
		createdAt: time.Now().UnixMilli(),
	}, nil
}

// Reconstruct hydrates an Account from storage without validation.
func Reconstruct(address, owner common.Address, salt common.Hash, nonce uint64, createdAt int64) Account {
	return Account{
		address:   address,
		owner:     owner,
		salt:      salt,
		nonce:     nonce,
		createdAt: createdAt,
	}
}

// Address returns the account address.
func (a Account) Address() common.Address { return a.address }

// Owner returns the address whose signatures authorize calls.
func (a Account) Owner() common.Address { return a.owner }

// Salt returns the deployment salt.
func (a Account) Salt() common.Hash { return a.salt }

// Nonce returns the next expected call nonce.
func (a Account) Nonce() uint64 { return a.nonce }

// CreatedAt returns the deployment time (unix millis).
func (a Account) CreatedAt() int64 { return a.createdAt }

// WithNextNonce returns the account with its nonce consumed.
func (a Account) WithNextNonce() Account {
	a.nonce++
	return a
}
