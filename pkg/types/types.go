package types

import (
	"fmt"
	"strings"
	"time"
)

// WalletKind identifies the wallet implementation behind an injected provider.
// The string value is what the backend expects as wallet_type.
type WalletKind string

func (k WalletKind) String() string {
	return string(k)
}

const (
	WalletKindMetaMask    WalletKind = "metamask"
	WalletKindTokenPocket WalletKind = "tp"
	WalletKindUnknown     WalletKind = "unknown"
)

// SupportedWalletKinds lists every kind the detector scores, in tie-break priority order
var SupportedWalletKinds = []WalletKind{
	WalletKindMetaMask,
	WalletKindTokenPocket,
}

// ParseWalletKind converts a wallet_type string into a WalletKind
func ParseWalletKind(s string) (WalletKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metamask":
		return WalletKindMetaMask, nil
	case "tp", "tokenpocket":
		return WalletKindTokenPocket, nil
	default:
		return WalletKindUnknown, fmt.Errorf("unsupported wallet kind: %s", s)
	}
}

// DetectionResult is the scored outcome of probing the injected provider for one wallet kind
type DetectionResult struct {
	Detected   bool           `json:"detected"`
	WalletKind WalletKind     `json:"walletKind"`
	Confidence int            `json:"confidence"` // 0-100
	Evidence   map[string]any `json:"evidence"`
}

// ConnectionState is the observable state of the wallet connection
type ConnectionState struct {
	Address    string     `json:"address,omitempty"`
	Connected  bool       `json:"connected"`
	WalletKind WalletKind `json:"walletKind,omitempty"`
	Error      string     `json:"error,omitempty"`
	Connecting bool       `json:"connecting"`
}

// IsIdle reports whether the state is neither connected nor connecting
func (s ConnectionState) IsIdle() bool {
	return !s.Connected && !s.Connecting
}

// SignedChallenge is a single authentication attempt's nonce, message and signature.
// It lives only for the duration of one Authenticate call.
type SignedChallenge struct {
	Nonce     string
	Message   string
	Signature string
	Address   string
}

// Session is the authenticated session handed to the session store
type Session struct {
	Token        string     `json:"token"`
	Address      string     `json:"address"`
	WalletKind   WalletKind `json:"walletKind"`
	BoundWallets []string   `json:"boundWallets,omitempty"`
	IssuedAt     int64      `json:"issuedAt"`
	// ExpiresAt is zero when the token carries no expiry
	ExpiresAt int64 `json:"expiresAt,omitempty"`
}

// Expired reports whether the session has a known expiry that has passed
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt == 0 {
		return false
	}
	return now.Unix() >= s.ExpiresAt
}

// InstalledWallet summarises whether a wallet kind is installed
type InstalledWallet struct {
	WalletKind  WalletKind `json:"walletKind"`
	IsInstalled bool       `json:"isInstalled"`
	Confidence  int        `json:"confidence"`
}
