package validation

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAddress = "0xabcdef0123456789abcdef0123456789abcdef01"

func signatureWithV(v string) string {
	return "0x" + strings.Repeat("ab", 64) + v
}

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"lower case", validAddress, true},
		{"upper case", "0xABCDEF0123456789ABCDEF0123456789ABCDEF01", true},
		{"mixed case", "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01", true},
		{"41 hex digits", "0xABCDEF0123456789ABCDEF0123456789ABCDEF012", false},
		{"39 hex digits", "0xABCDEF0123456789ABCDEF0123456789ABCDEF0", false},
		{"missing prefix", "abcdef0123456789abcdef0123456789abcdef0123", false},
		{"upper case prefix", "0XABCDEF0123456789ABCDEF0123456789ABCDEF01", false},
		{"non hex digit", "0xabcdef0123456789abcdef0123456789abcdef0g", false},
		{"empty", "", false},
		{"prefix only", "0x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAddress(tt.in))
		})
	}
}

func TestIsValidAddress_AnyLengthOtherThan42Fails(t *testing.T) {
	for n := 0; n < 60; n++ {
		if n == 40 {
			continue
		}
		s := "0x" + strings.Repeat("a", n)
		assert.False(t, IsValidAddress(s), "length %d", len(s))
	}
}

func TestSanitizeAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean", validAddress, validAddress},
		{"script tag", "<script>" + validAddress + "</script>", "c" + validAddress + "c"},
		{"whitespace", "  " + validAddress + "\n", validAddress},
		{"quotes and spaces", `"0x12 34"`, "0x1234"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeAddress(tt.in))
		})
	}
}

func TestSanitizeAddress_Idempotent(t *testing.T) {
	inputs := []string{
		validAddress,
		"<img src=x onerror=alert(1)>0xABC",
		"0xééff",
		"xxxx----0000",
		"",
	}
	for _, in := range inputs {
		once := SanitizeAddress(in)
		assert.Equal(t, once, SanitizeAddress(once))
	}
}

func TestIsValidSignature(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"v = 27", signatureWithV("1b"), true},
		{"v = 28", signatureWithV("1c"), true},
		{"upper case without prefix", strings.ToUpper(signatureWithV("1c")[2:]), false},
		{"v = 28 upper case digits", "0x" + strings.ToUpper(signatureWithV("1C")[2:]), true},
		{"v = 0", signatureWithV("00"), false},
		{"v = 1", signatureWithV("01"), false},
		{"v = 29", signatureWithV("1d"), false},
		{"v = 255", signatureWithV("ff"), false},
		{"too short", signatureWithV("1b")[:131], false},
		{"too long", signatureWithV("1b") + "0", false},
		{"missing prefix", "ab" + signatureWithV("1b")[2:], false},
		{"non hex", "0x" + strings.Repeat("zz", 64) + "1b", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidSignature(tt.in))
		})
	}
}

func TestIsValidSignature_OnlyRecoveryIDs27And28(t *testing.T) {
	for v := 0; v < 256; v++ {
		s := signatureWithV(hexByte(v))
		assert.Equal(t, v == 27 || v == 28, IsValidSignature(s), "v=%d", v)
	}
}

func hexByte(v int) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[v>>4], digits[v&0x0f]})
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(" " + strings.ToUpper(validAddress[2:]))
	require.Error(t, err, "prefix is required")
	assert.Equal(t, [20]byte{}, [20]byte(addr))

	addr, err = ParseAddress(validAddress)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(validAddress, addr.Hex()))
}

func TestDecodeSignature(t *testing.T) {
	sig, err := DecodeSignature(signatureWithV("1c"))
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)
	assert.Equal(t, byte(28), sig[crypto.RecoveryIDOffset])

	_, err = DecodeSignature(signatureWithV("02"))
	require.Error(t, err)
}

func personalSign(t *testing.T, message string) (string, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestRecoverSigner(t *testing.T) {
	message := "Sign to login: n1"
	sig, address := personalSign(t, message)
	require.True(t, IsValidSignature(sig))

	recovered, err := RecoverSigner(message, sig)
	require.NoError(t, err)
	assert.Equal(t, address, recovered.Hex())
}

func TestVerifySigner(t *testing.T) {
	message := "Sign to login: n1"
	sig, address := personalSign(t, message)

	require.NoError(t, VerifySigner(message, sig, strings.ToLower(address)))
	require.NoError(t, VerifySigner(message, sig, address))

	err := VerifySigner("Sign to login: n2", sig, address)
	require.Error(t, err)

	err = VerifySigner(message, sig, validAddress)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}
