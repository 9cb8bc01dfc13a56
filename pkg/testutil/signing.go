package testutil

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// TestAddress is a well formed lower case account address
const TestAddress = "0xabcdef0123456789abcdef0123456789abcdef01"

// PersonalSign produces a personal_sign style signature (v = 27/28) with key
func PersonalSign(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

// NewKey generates a secp256k1 key and its lower case address
func NewKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, hexutil.Encode(crypto.PubkeyToAddress(key.PublicKey).Bytes())
}
