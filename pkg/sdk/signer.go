package spendguard

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain/call"
)

// Signer produces owner signatures for account calls.
type Signer struct {
	key    *ecdsa.PrivateKey
	domain Domain
}

// NewSigner parses a hex secp256k1 private key (with or without 0x).
// The signer is bound to DefaultDomain until ForDomain is called.
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("spendguard: parse private key: %w", err)
	}
	return &Signer{key: key, domain: DefaultDomain()}, nil
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("spendguard: generate key: %w", err)
	}
	return &Signer{key: key, domain: DefaultDomain()}, nil
}

// ForDomain returns a copy of the signer bound to d, usually Client.Domain().
func (s *Signer) ForDomain(d Domain) *Signer {
	return &Signer{key: s.key, domain: d}
}

// Address returns the owner address of the key.
func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// HexKey returns the 0x-prefixed private key.
func (s *Signer) HexKey() string {
	return hexutil.Encode(crypto.FromECDSA(s.key))
}

// SignSetSpendingLimit signs setSpendingLimit(asset, limit) on account.
func (s *Signer) SignSetSpendingLimit(account, asset common.Address, limit uint256.Int, nonce uint64) ([]byte, error) {
	return s.sign(call.Call{
		Kind:    call.KindSetSpendingLimit,
		Account: account,
		Asset:   asset,
		Amount:  limit,
		Nonce:   nonce,
	})
}

// SignRemoveSpendingLimit signs removeSpendingLimit(asset) on account.
func (s *Signer) SignRemoveSpendingLimit(account, asset common.Address, nonce uint64) ([]byte, error) {
	return s.sign(call.Call{
		Kind:    call.KindRemoveSpendingLimit,
		Account: account,
		Asset:   asset,
		Nonce:   nonce,
	})
}

// SignTransfer signs req.
func (s *Signer) SignTransfer(req TransferRequest) ([]byte, error) {
	return s.sign(req.toCall())
}

func (s *Signer) sign(c call.Call) ([]byte, error) {
	sig, err := call.Sign(c, s.domain.toInternal(), s.key)
	if err != nil {
		return nil, fmt.Errorf("spendguard: sign %s: %w", c.Kind, err)
	}
	return sig, nil
}
