// Package call defines the owner-signed call envelope for account administration and transfers.
package call

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/kailas-cloud/spendguard/internal/domain"
)

// Kind names the operation a call performs.
type Kind string

const (
	// KindSetSpendingLimit sets the daily allowance of an asset.
	KindSetSpendingLimit Kind = "set_spending_limit"
	// KindRemoveSpendingLimit removes the daily allowance of an asset.
	KindRemoveSpendingLimit Kind = "remove_spending_limit"
	// KindTransfer sends an asset from the account.
	KindTransfer Kind = "transfer"
)

var signatures = map[Kind]string{
	KindSetSpendingLimit:    "setSpendingLimit(address,uint256)",
	KindRemoveSpendingLimit: "removeSpendingLimit(address)",
	KindTransfer:            "transfer(address,address,uint256)",
}

// Selector returns the 4-byte method selector of the kind.
func (k Kind) Selector() ([4]byte, error) {
	sig, ok := signatures[k]
	if !ok {
		return [4]byte{}, fmt.Errorf("%w: unknown call kind %q", domain.ErrInvalidRequest, k)
	}
	var out [4]byte
	copy(out[:], crypto.Keccak256([]byte(sig))[:4])
	return out, nil
}

// Call is a single owner-authorized operation on an account.
type Call struct {
	Kind    Kind
	Account common.Address
	Asset   common.Address
	Amount  uint256.Int    // new limit for set, transfer amount for transfer
	To      common.Address // transfer recipient
	Nonce   uint64
}

// Domain binds digests to one deployment so signatures cannot be replayed elsewhere.
type Domain struct {
	ChainID uint64
	Factory common.Address
}

var digestArgs abi.Arguments

func init() {
	uint256Ty, _ := abi.NewType("uint256", "", nil)
	addressTy, _ := abi.NewType("address", "", nil)
	bytes4Ty, _ := abi.NewType("bytes4", "", nil)
	digestArgs = abi.Arguments{
		{Name: "chainId", Type: uint256Ty},
		{Name: "factory", Type: addressTy},
		{Name: "selector", Type: bytes4Ty},
		{Name: "account", Type: addressTy},
		{Name: "asset", Type: addressTy},
		{Name: "amount", Type: uint256Ty},
		{Name: "to", Type: addressTy},
		{Name: "nonce", Type: uint256Ty},
	}
}

// Validate checks that the call carries what its kind needs.
func (c Call) Validate() error {
	if _, err := c.Kind.Selector(); err != nil {
		return err
	}
	if c.Account == (common.Address{}) {
		return fmt.Errorf("%w: account is required", domain.ErrInvalidRequest)
	}
	if c.Asset == (common.Address{}) {
		return fmt.Errorf("%w: asset is required", domain.ErrInvalidRequest)
	}
	if c.Kind != KindTransfer {
		return nil
	}
	if c.To == (common.Address{}) {
		return fmt.Errorf("%w: recipient is required", domain.ErrInvalidRequest)
	}
	if c.To == c.Account {
		return fmt.Errorf("%w: transfer to self", domain.ErrInvalidRequest)
	}
	return nil
}

// Digest returns the keccak256 hash the owner signs.
func (c Call) Digest(d Domain) (common.Hash, error) {
	selector, err := c.Kind.Selector()
	if err != nil {
		return common.Hash{}, err
	}
	packed, err := digestArgs.Pack(
		new(uint256.Int).SetUint64(d.ChainID).ToBig(),
		d.Factory,
		selector,
		c.Account,
		c.Asset,
		c.Amount.ToBig(),
		c.To,
		new(uint256.Int).SetUint64(c.Nonce).ToBig(),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack call: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// Sign produces a 65-byte r|s|v signature over the call digest, with v in {27, 28}.
func Sign(c Call, d Domain, key *ecdsa.PrivateKey) ([]byte, error) {
	digest, err := c.Digest(d)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(accounts.TextHash(digest[:]), key)
	if err != nil {
		return nil, fmt.Errorf("sign call: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Signer recovers the address that produced signature over the call digest.
func Signer(c Call, d Domain, signature []byte) (common.Address, error) {
	digest, err := c.Digest(d)
	if err != nil {
		return common.Address{}, err
	}
	return recoverAddress(digest, signature)
}

// Verify checks that owner signed the call and that the call carries the expected nonce.
// Every failure wraps domain.ErrUnauthorized.
func Verify(c Call, d Domain, owner common.Address, nonce uint64, signature []byte) error {
	if c.Nonce != nonce {
		return fmt.Errorf("%w: nonce %d, expected %d", domain.ErrUnauthorized, c.Nonce, nonce)
	}
	signer, err := Signer(c, d, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if signer != owner {
		return fmt.Errorf("%w: signer %s is not the owner", domain.ErrUnauthorized, signer.Hex())
	}
	return nil
}

func recoverAddress(digest common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, errors.New("invalid signature length")
	}

	// wallets return v as 27/28, crypto expects the raw recovery id
	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(digest[:]), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
