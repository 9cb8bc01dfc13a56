// Package authenticator runs the nonce based challenge-response login:
//
//  1. require a connected wallet with a validated address
//  2. ask the backend for a nonce and the message to sign
//  3. have the wallet personal_sign the message
//  4. validate the signature locally
//  5. submit it and hand a successful result to the session store
//
// Steps run strictly in order and a failure at any step stops the attempt.
// Nothing is retried automatically.
package authenticator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/backend"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/validation"
)

// ConnectionSource exposes the connection the challenge is signed through
type ConnectionSource interface {
	State() types.ConnectionState
	Provider() provider.Provider
}

// AuthBackend is the part of the backend API the login uses
type AuthBackend interface {
	GenerateNonce(ctx context.Context, req *types.NonceRequest) (*types.NonceResponse, error)
	Authenticate(ctx context.Context, req *types.AuthRequest) (*types.AuthResult, error)
}

// SessionSink receives the result of a successful login
type SessionSink interface {
	Start(address string, kind types.WalletKind, result *types.AuthResult) (*types.Session, error)
}

// NonceLedger remembers nonces already submitted
type NonceLedger interface {
	MarkNonceUsed(nonce string, ttl time.Duration) error
	IsNonceUsed(nonce string) (bool, error)
}

// Config configures an Authenticator. Sessions and Nonces are optional.
type Config struct {
	Connection ConnectionSource
	Backend    AuthBackend
	Sessions   SessionSink
	Nonces     NonceLedger
	NonceTTL   time.Duration
	// VerifySignatures recovers the signer locally and refuses to submit a
	// signature made by any key but the connected address
	VerifySignatures bool
	Logger           *zap.Logger
}

// Authenticator performs logins for one connection
type Authenticator struct {
	conn             ConnectionSource
	backend          AuthBackend
	sessions         SessionSink
	nonces           NonceLedger
	nonceTTL         time.Duration
	verifySignatures bool
	logger           *zap.Logger
}

// NewAuthenticator validates cfg and creates an Authenticator
func NewAuthenticator(cfg *Config) (*Authenticator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Connection == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Authenticator{
		conn:             cfg.Connection,
		backend:          cfg.Backend,
		sessions:         cfg.Sessions,
		nonces:           cfg.Nonces,
		nonceTTL:         cfg.NonceTTL,
		verifySignatures: cfg.VerifySignatures,
		logger:           cfg.Logger,
	}, nil
}

// PersonalSignParams orders the personal_sign parameters the way each wallet
// expects them: MetaMask takes [message, address], TokenPocket [address, message].
func PersonalSignParams(kind types.WalletKind, message string, address string) []any {
	if kind == types.WalletKindTokenPocket {
		return []any{address, message}
	}
	return []any{message, address}
}

// Authenticate runs one login attempt and returns the backend's result
func (a *Authenticator) Authenticate(ctx context.Context) (*types.AuthResult, error) {
	sugar := a.logger.Sugar()

	// 1. connected wallet
	state := a.conn.State()
	p := a.conn.Provider()
	if !state.Connected || !validation.IsValidAddress(state.Address) || p == nil {
		return nil, authErrors.NotConnected()
	}
	address, kind := state.Address, state.WalletKind
	sugar = sugar.With("address", address, "wallet_kind", kind)

	// 2. challenge
	challenge, err := a.backend.GenerateNonce(ctx, &types.NonceRequest{
		Address:    address,
		WalletType: string(kind),
	})
	if err != nil {
		sugar.Warnw("Failed to obtain nonce", "error", causeOf(err))
		return nil, backend.UserError(err)
	}
	if challenge.Nonce == "" || challenge.Message == "" {
		return nil, authErrors.NetworkFailure(errors.New("nonce response is missing the nonce or message"))
	}
	if err := a.checkNonceUnused(challenge.Nonce); err != nil {
		return nil, err
	}
	sugar.Debugw("Received challenge", "nonce", challenge.Nonce)

	// 3. signature
	signature, err := provider.PersonalSign(ctx, p, PersonalSignParams(kind, challenge.Message, address)...)
	if err != nil {
		sugar.Infow("Signing failed", "error", err)
		return nil, classifySignError(err)
	}

	// 4. local validation
	if !validation.IsValidSignature(signature) {
		return nil, authErrors.FormatInvalid(errors.New("wallet returned a malformed signature"))
	}
	if a.verifySignatures {
		if err := validation.VerifySigner(challenge.Message, signature, address); err != nil {
			sugar.Warnw("Signature does not recover to the connected address", "error", err)
			return nil, authErrors.FormatInvalid(err)
		}
	}
	if current := a.conn.State(); !current.Connected || !strings.EqualFold(current.Address, address) {
		sugar.Infow("Connection changed while signing, dropping signature")
		return nil, authErrors.Superseded()
	}

	signed := types.SignedChallenge{
		Nonce:     challenge.Nonce,
		Message:   challenge.Message,
		Signature: signature,
		Address:   address,
	}

	// 5. submit
	if err := a.consumeNonce(signed.Nonce); err != nil {
		return nil, err
	}
	result, err := a.backend.Authenticate(ctx, &types.AuthRequest{
		Address:    signed.Address,
		Signature:  signed.Signature,
		Nonce:      signed.Nonce,
		WalletType: string(kind),
	})
	if err != nil {
		sugar.Warnw("Authentication request failed", "error", causeOf(err))
		return nil, backend.UserError(err)
	}
	if !result.Success {
		sugar.Infow("Backend rejected the signature", "reason", result.Message)
		return nil, authErrors.AuthRejected(authErrors.MsgAuthFailed, errors.New(result.Message))
	}
	if result.Token == "" {
		sugar.Infow("Backend issued no session token")
	}

	if a.sessions != nil {
		if _, err := a.sessions.Start(address, kind, result); err != nil {
			sugar.Errorw("Failed to hand session to the store", "error", err)
			return nil, authErrors.New(authErrors.KindUnknown, authErrors.MsgOperationFailed, err)
		}
	}

	sugar.Infow("Wallet authenticated", "bound_wallets", len(result.BoundWallets))
	return result, nil
}

func (a *Authenticator) checkNonceUnused(nonce string) error {
	if a.nonces == nil {
		return nil
	}
	used, err := a.nonces.IsNonceUsed(nonce)
	if err != nil {
		return authErrors.New(authErrors.KindUnknown, authErrors.MsgOperationFailed, err)
	}
	if used {
		a.logger.Sugar().Warnw("Backend reissued a consumed nonce", "nonce", nonce)
		return authErrors.AuthRejected(authErrors.MsgSignatureExpired, persistence.ErrNonceAlreadyUsed)
	}
	return nil
}

func (a *Authenticator) consumeNonce(nonce string) error {
	if a.nonces == nil {
		return nil
	}
	err := a.nonces.MarkNonceUsed(nonce, a.nonceTTL)
	if errors.Is(err, persistence.ErrNonceAlreadyUsed) {
		return authErrors.AuthRejected(authErrors.MsgSignatureExpired, err)
	}
	if err != nil {
		return authErrors.New(authErrors.KindUnknown, authErrors.MsgOperationFailed, err)
	}
	return nil
}

func classifySignError(err error) error {
	switch {
	case provider.IsUserRejection(err):
		return authErrors.UserRejected(err)
	case errors.Is(err, context.DeadlineExceeded):
		return authErrors.Timeout(err)
	default:
		return authErrors.New(authErrors.KindUnknown, authErrors.MsgOperationFailed, err)
	}
}

func causeOf(err error) error {
	var classified *authErrors.Error
	if errors.As(err, &classified) && classified.Cause() != nil {
		return classified.Cause()
	}
	return err
}
