// Package session keeps the authenticated session produced by a successful
// login. It is the hand-off point between the authenticator and whatever
// store the application configured.
package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// Config configures a Manager
type Config struct {
	Store  persistence.ISessionPersistence
	Logger *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// Manager records and serves the current session
type Manager struct {
	store  persistence.ISessionPersistence
	logger *zap.Logger
	now    func() time.Time
}

// NewManager validates cfg and creates a Manager
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{store: cfg.Store, logger: cfg.Logger, now: now}, nil
}

// Start records the session from a successful authentication result. Expiry
// and issue time come from the token when it is a JWT. A result without a
// token still records the signed-in address; Token then reports
// NotAuthenticated.
func (m *Manager) Start(address string, kind types.WalletKind, result *types.AuthResult) (*types.Session, error) {
	if result == nil || !result.Success {
		return nil, fmt.Errorf("cannot start a session without a successful result")
	}

	s := &types.Session{
		Token:        result.Token,
		Address:      address,
		WalletKind:   kind,
		BoundWallets: result.BoundWallets,
		IssuedAt:     m.now().Unix(),
	}
	if info, ok := InspectToken(result.Token); ok {
		if !info.IssuedAt.IsZero() {
			s.IssuedAt = info.IssuedAt.Unix()
		}
		if !info.ExpiresAt.IsZero() {
			s.ExpiresAt = info.ExpiresAt.Unix()
		}
	}

	if err := m.store.SaveSession(s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.Sugar().Infow("Session started",
		"address", address,
		"wallet_kind", kind,
		"expires_at", s.ExpiresAt,
	)
	return s, nil
}

// Current returns the live session, or nil when there is none. An expired
// session is deleted and reported as absent.
func (m *Manager) Current() (*types.Session, error) {
	s, err := m.store.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		return nil, nil
	}
	if s.Expired(m.now()) {
		m.logger.Sugar().Infow("Session expired, discarding", "address", s.Address)
		if err := m.store.DeleteSession(); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, nil
	}
	return s, nil
}

// Token returns the bearer token of the live session, or a NotAuthenticated error
func (m *Manager) Token() (string, error) {
	s, err := m.Current()
	if err != nil {
		return "", authErrors.NotAuthenticated(err)
	}
	if s == nil {
		return "", authErrors.NotAuthenticated(errors.New("no active session"))
	}
	if s.Token == "" {
		return "", authErrors.NotAuthenticated(errors.New("session has no bearer token"))
	}
	return s.Token, nil
}

// End discards the current session
func (m *Manager) End() error {
	if err := m.store.DeleteSession(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	m.logger.Sugar().Infow("Session ended")
	return nil
}
