package types

import "time"

// NonceRequest is sent to POST /auth/generate-nonce
type NonceRequest struct {
	Address    string `json:"address"`
	WalletType string `json:"wallet_type"`
}

// NonceResponse is returned by POST /auth/generate-nonce
type NonceResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	Timestamp int64     `json:"timestamp,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// AuthRequest is sent to POST /auth/authenticate
type AuthRequest struct {
	Address    string `json:"address"`
	Signature  string `json:"signature"`
	Nonce      string `json:"nonce"`
	WalletType string `json:"wallet_type"`
}

// AuthResult is returned by POST /auth/authenticate
type AuthResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Token        string   `json:"token,omitempty"`
	WalletAddr   string   `json:"wallet_addr,omitempty"`
	BoundWallets []string `json:"bound_wallets,omitempty"`
}

// LinkWalletRequest is sent to POST /wallet/link
type LinkWalletRequest struct {
	Address    string `json:"address"`
	WalletType string `json:"wallet_type"`
	IsPrimary  bool   `json:"is_primary"`
}

// LinkWalletResponse is returned by POST /wallet/link
type LinkWalletResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Address   string `json:"address"`
	IsPrimary bool   `json:"is_primary"`
}

// UnlinkWalletResponse is returned by DELETE /wallet/{address}
type UnlinkWalletResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Address string `json:"address"`
}

// LinkedWallet is one entry of GET /wallet/list
type LinkedWallet struct {
	ID         string    `json:"id"`
	Address    string    `json:"address"`
	WalletType string    `json:"wallet_type"`
	Label      string    `json:"label"`
	IsPrimary  bool      `json:"is_primary"`
	BoundAt    time.Time `json:"bound_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// ListWalletsResponse is returned by GET /wallet/list
type ListWalletsResponse struct {
	Success bool           `json:"success"`
	Wallets []LinkedWallet `json:"wallets"`
}

// ErrorResponse is the backend's error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Backend error codes that map to user-safe messages
const (
	ErrCodeInvalidAddress   = "WEB3_001"
	ErrCodeInvalidSignature = "WEB3_002"
	ErrCodeNonceExpired     = "WEB3_003"
	ErrCodeAddressMismatch  = "WEB3_004"
	ErrCodeWalletBound      = "WEB3_005"
	ErrCodeWalletNotBound   = "WEB3_006"
	ErrCodeCannotUnbind     = "WEB3_007"
	ErrCodeNonceNotFound    = "WEB3_009"
	ErrCodeNonceAlreadyUsed = "WEB3_010"
	ErrCodeRateLimited      = "WEB3_012"
)
