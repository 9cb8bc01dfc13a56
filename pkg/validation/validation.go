package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// HexPrefix is the fixed prefix of every address and signature string
	HexPrefix = "0x"

	// AddressLength is 0x + 40 hex chars (20 bytes)
	AddressLength = len(HexPrefix) + 2*common.AddressLength

	// SignatureLength is 0x + 130 hex chars (65 bytes, r || s || v)
	SignatureLength = len(HexPrefix) + 2*crypto.SignatureLength

	// Legal recovery ids for personal_sign signatures
	RecoveryIDLow  = 27
	RecoveryIDHigh = 28
)

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func allHex(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

// IsValidAddress reports whether s is "0x" followed by exactly 40 hex digits (any case)
func IsValidAddress(s string) bool {
	if len(s) != AddressLength || !strings.HasPrefix(s, HexPrefix) {
		return false
	}
	return allHex(s[len(HexPrefix):])
}

// SanitizeAddress drops every character that is neither a hex digit nor the
// prefix character 'x'. Providers are untrusted, so markup or script content in
// a returned account string is removed before validation.
func SanitizeAddress(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isHexDigit(c) || c == 'x' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsValidSignature reports whether s is a 65 byte hex signature whose final
// byte is one of the two legal recovery ids (27 or 28).
func IsValidSignature(s string) bool {
	if len(s) != SignatureLength || !strings.HasPrefix(s, HexPrefix) {
		return false
	}
	digits := s[len(HexPrefix):]
	if !allHex(digits) {
		return false
	}
	v, err := strconv.ParseUint(digits[len(digits)-2:], 16, 8)
	if err != nil {
		return false
	}
	return v == RecoveryIDLow || v == RecoveryIDHigh
}

// ParseAddress sanitizes and validates s and returns it as a go-ethereum address
func ParseAddress(s string) (common.Address, error) {
	clean := SanitizeAddress(s)
	if !IsValidAddress(clean) {
		return common.Address{}, fmt.Errorf("invalid address format")
	}
	return common.HexToAddress(clean), nil
}

// DecodeSignature validates s and returns the 65 raw signature bytes
func DecodeSignature(s string) ([]byte, error) {
	if !IsValidSignature(s) {
		return nil, fmt.Errorf("invalid signature format")
	}
	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", err)
	}
	return sig, nil
}

// RecoverSigner recovers the address that produced a personal_sign signature over message
func RecoverSigner(message string, signature string) (common.Address, error) {
	sig, err := DecodeSignature(signature)
	if err != nil {
		return common.Address{}, err
	}

	// personal_sign uses 27/28, SigToPub expects 0/1
	sig[crypto.RecoveryIDOffset] -= RecoveryIDLow

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySigner checks that signature over message was produced by address.
// Addresses compare case-insensitively.
func VerifySigner(message string, signature string, address string) error {
	expected, err := ParseAddress(address)
	if err != nil {
		return err
	}
	recovered, err := RecoverSigner(message, signature)
	if err != nil {
		return err
	}
	if recovered != expected {
		return fmt.Errorf("signature signer %s does not match address %s", recovered.Hex(), expected.Hex())
	}
	return nil
}
