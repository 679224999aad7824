package account

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/spendguard/internal/domain"
)

var (
	owner = common.HexToAddress("0x36f6B9eB5cC3C5a4c9E5AEB3D1A8fBdA1E0F4a21")
	salt  = common.HexToHash("0x01")
)

func TestNew(t *testing.T) {
	acc, err := New(domain.DefaultFactory, owner, salt)
	require.Nil(t, err)

	assert.Equal(t, owner, acc.Owner())
	assert.Equal(t, salt, acc.Salt())
	assert.EqualValues(t, 0, acc.Nonce())
	assert.NotZero(t, acc.CreatedAt())
	assert.Equal(t, Address(domain.DefaultFactory, owner, salt), acc.Address())
}

func TestNew_ZeroOwner(t *testing.T) {
	_, err := New(domain.DefaultFactory, common.Address{}, salt)
	assert.NotNil(t, err)
}

func TestAddress_Deterministic(t *testing.T) {
	a1 := Address(domain.DefaultFactory, owner, salt)
	a2 := Address(domain.DefaultFactory, owner, salt)
	assert.Equal(t, a1, a2)

	assert.NotEqual(t, a1, Address(domain.DefaultFactory, owner, common.HexToHash("0x02")))
	assert.NotEqual(t, a1, Address(common.HexToAddress("0x1000"), owner, salt))
	assert.NotEqual(t, a1, Address(domain.DefaultFactory, common.HexToAddress("0x1234"), salt))
}

func TestWithNextNonce(t *testing.T) {
	acc := Reconstruct(common.HexToAddress("0xabc"), owner, salt, 4, 1000)
	next := acc.WithNextNonce()

	assert.EqualValues(t, 4, acc.Nonce())
	assert.EqualValues(t, 5, next.Nonce())
	assert.Equal(t, acc.Address(), next.Address())
}
