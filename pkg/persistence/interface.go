package persistence

import (
	"errors"
	"time"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

var (
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("persistence layer is closed")
	// ErrNonceAlreadyUsed is returned by MarkNonceUsed for a nonce already in the ledger
	ErrNonceAlreadyUsed = errors.New("nonce already used")
)

// ISessionPersistence stores the authenticated session handed over after a
// successful login and the ledger of challenge nonces already consumed.
// All implementations must be thread-safe.
//
// The interface supports:
// - Current session management (save, load, delete)
// - Consumed nonce tracking with expiry
// - Lifecycle management (close, health check)
type ISessionPersistence interface {
	// Session Management

	// SaveSession persists the current session, replacing any previous one.
	SaveSession(session *types.Session) error

	// LoadSession returns the current session.
	// Returns nil if there is none, error only on storage failure.
	LoadSession() (*types.Session, error)

	// DeleteSession removes the current session.
	// Idempotent - returns nil if there is none.
	DeleteSession() error

	// Nonce Ledger

	// MarkNonceUsed records nonce as consumed for ttl. Returns
	// ErrNonceAlreadyUsed if the nonce is already recorded and not expired.
	MarkNonceUsed(nonce string, ttl time.Duration) error

	// IsNonceUsed reports whether nonce is recorded and not expired.
	IsNonceUsed(nonce string) (bool, error)

	// Lifecycle Management

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return ErrClosed.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
