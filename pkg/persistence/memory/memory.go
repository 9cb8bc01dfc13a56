package memory

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// MemoryPersistence is an in-memory implementation of ISessionPersistence.
//
// All data is lost when the process exits, so a login does not survive a
// restart. Thread-safe using sync.RWMutex; sessions are deep copied in and out.
type MemoryPersistence struct {
	mu sync.RWMutex

	session *types.Session

	// nonce -> expiry
	nonces map[string]time.Time

	now    func() time.Time
	closed bool
}

var _ persistence.ISessionPersistence = (*MemoryPersistence)(nil)

// NewMemoryPersistence creates a new in-memory persistence layer
func NewMemoryPersistence(logger *zap.Logger) *MemoryPersistence {
	if logger != nil {
		logger.Sugar().Warnw("Using in-memory persistence, the session is lost on exit",
			"hint", "set WALLETAUTH_PERSISTENCE_TYPE=badger, redis or sqlite to keep it")
	}
	return &MemoryPersistence{
		nonces: make(map[string]time.Time),
		now:    time.Now,
	}
}

// SetClock replaces the time source used for nonce expiry
func (m *MemoryPersistence) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SaveSession persists the current session
func (m *MemoryPersistence) SaveSession(session *types.Session) error {
	if session == nil {
		return fmt.Errorf("cannot save nil Session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	m.session = persistence.CopySession(session)
	return nil
}

// LoadSession returns the current session or nil
func (m *MemoryPersistence) LoadSession() (*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	return persistence.CopySession(m.session), nil
}

// DeleteSession removes the current session
func (m *MemoryPersistence) DeleteSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	m.session = nil
	return nil
}

// MarkNonceUsed records nonce as consumed
func (m *MemoryPersistence) MarkNonceUsed(nonce string, ttl time.Duration) error {
	if nonce == "" {
		return fmt.Errorf("nonce cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	now := m.now()
	m.pruneLocked(now)
	if _, ok := m.nonces[nonce]; ok {
		return persistence.ErrNonceAlreadyUsed
	}
	m.nonces[nonce] = now.Add(persistence.EffectiveTTL(ttl))
	return nil
}

// IsNonceUsed reports whether nonce is recorded and not expired
func (m *MemoryPersistence) IsNonceUsed(nonce string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, persistence.ErrClosed
	}

	expiry, ok := m.nonces[nonce]
	if !ok {
		return false, nil
	}
	return m.now().Before(expiry), nil
}

func (m *MemoryPersistence) pruneLocked(now time.Time) {
	for nonce, expiry := range m.nonces {
		if !now.Before(expiry) {
			delete(m.nonces, nonce)
		}
	}
}

// Close marks the store closed
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.session = nil
	m.nonces = make(map[string]time.Time)
	return nil
}

// HealthCheck verifies the store is open
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}
	return nil
}
