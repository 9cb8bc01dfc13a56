// Package walletLink binds wallets to, and removes them from, the account
// behind the current session token.
package walletLink

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/backend"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/validation"
)

// LinkBackend is the part of the backend API that manages bindings
type LinkBackend interface {
	LinkWallet(ctx context.Context, token string, req *types.LinkWalletRequest) (*types.LinkWalletResponse, error)
	UnlinkWallet(ctx context.Context, token string, address string) (*types.UnlinkWalletResponse, error)
	ListWallets(ctx context.Context, token string) (*types.ListWalletsResponse, error)
}

// TokenSource returns the current session token
type TokenSource interface {
	Token() (string, error)
}

// StateSource returns the current wallet connection
type StateSource interface {
	State() types.ConnectionState
}

type Config struct {
	Backend    LinkBackend
	Tokens     TokenSource
	Connection StateSource
	Logger     *zap.Logger
}

// Linker performs link, unlink and list operations
type Linker struct {
	backend LinkBackend
	tokens  TokenSource
	conn    StateSource
	logger  *zap.Logger
}

func NewLinker(cfg *Config) (*Linker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if cfg.Connection == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Linker{
		backend: cfg.Backend,
		tokens:  cfg.Tokens,
		conn:    cfg.Connection,
		logger:  cfg.Logger,
	}, nil
}

// LinkWallet binds the connected wallet to the authenticated account
func (l *Linker) LinkWallet(ctx context.Context, isPrimary bool) error {
	token, err := l.token()
	if err != nil {
		return err
	}
	state := l.conn.State()
	if !state.Connected || !validation.IsValidAddress(state.Address) {
		return authErrors.NotConnected()
	}

	sugar := l.logger.Sugar().With("address", state.Address, "wallet_kind", state.WalletKind)
	_, err = l.backend.LinkWallet(ctx, token, &types.LinkWalletRequest{
		Address:    state.Address,
		WalletType: string(state.WalletKind),
		IsPrimary:  isPrimary,
	})
	if err != nil {
		sugar.Warnw("Failed to link wallet", "error", causeOf(err))
		return translate(err)
	}
	sugar.Infow("Wallet linked", "is_primary", isPrimary)
	return nil
}

// UnlinkWallet removes the binding of address. No wallet connection is needed.
func (l *Linker) UnlinkWallet(ctx context.Context, address string) error {
	token, err := l.token()
	if err != nil {
		return err
	}
	address = validation.SanitizeAddress(address)
	if !validation.IsValidAddress(address) {
		return authErrors.FormatInvalid(fmt.Errorf("invalid wallet address %q", address))
	}

	sugar := l.logger.Sugar().With("address", address)
	if _, err := l.backend.UnlinkWallet(ctx, token, address); err != nil {
		sugar.Warnw("Failed to unlink wallet", "error", causeOf(err))
		return translate(err)
	}
	sugar.Infow("Wallet unlinked")
	return nil
}

// ListWallets returns the wallets bound to the authenticated account
func (l *Linker) ListWallets(ctx context.Context) ([]types.LinkedWallet, error) {
	token, err := l.token()
	if err != nil {
		return nil, err
	}
	resp, err := l.backend.ListWallets(ctx, token)
	if err != nil {
		l.logger.Sugar().Warnw("Failed to list wallets", "error", causeOf(err))
		return nil, translate(err)
	}
	return resp.Wallets, nil
}

func (l *Linker) token() (string, error) {
	token, err := l.tokens.Token()
	if err != nil {
		var classified *authErrors.Error
		if errors.As(err, &classified) {
			return "", classified
		}
		return "", authErrors.NotAuthenticated(err)
	}
	if token == "" {
		return "", authErrors.NotAuthenticated(nil)
	}
	return token, nil
}

// translate treats a 401 as an expired or revoked session
func translate(err error) error {
	if statusErr, ok := backend.StatusOf(err); ok && statusErr.StatusCode == http.StatusUnauthorized {
		return authErrors.NotAuthenticated(statusErr)
	}
	return backend.UserError(err)
}

func causeOf(err error) error {
	var classified *authErrors.Error
	if errors.As(err, &classified) && classified.Cause() != nil {
		return classified.Cause()
	}
	return err
}
