package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// NewTestSession returns a populated session for persistence tests
func NewTestSession() *types.Session {
	return &types.Session{
		Token:        "eyJhbGciOiJIUzI1NiJ9.e30.sig",
		Address:      TestAddress,
		WalletKind:   types.WalletKindMetaMask,
		BoundWallets: []string{TestAddress},
		IssuedAt:     1700000000,
		ExpiresAt:    4102444800,
	}
}

// RunSessionPersistenceSuite exercises the behaviour every ISessionPersistence
// backend shares. open must return a fresh, empty store.
func RunSessionPersistenceSuite(t *testing.T, open func(t *testing.T) persistence.ISessionPersistence) {
	t.Run("SaveAndLoadSession", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		loaded, err := p.LoadSession()
		require.NoError(t, err)
		assert.Nil(t, loaded, "empty store has no session")

		session := NewTestSession()
		require.NoError(t, p.SaveSession(session))

		loaded, err = p.LoadSession()
		require.NoError(t, err)
		assert.Equal(t, session, loaded)
	})

	t.Run("SaveSessionReplaces", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		first := NewTestSession()
		require.NoError(t, p.SaveSession(first))
		second := NewTestSession()
		second.Token = "second"
		second.WalletKind = types.WalletKindTokenPocket
		require.NoError(t, p.SaveSession(second))

		loaded, err := p.LoadSession()
		require.NoError(t, err)
		assert.Equal(t, "second", loaded.Token)
		assert.Equal(t, types.WalletKindTokenPocket, loaded.WalletKind)
	})

	t.Run("SaveSessionNil", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		err := p.SaveSession(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil Session")
	})

	t.Run("LoadedSessionIsACopy", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		require.NoError(t, p.SaveSession(NewTestSession()))
		loaded, err := p.LoadSession()
		require.NoError(t, err)
		loaded.BoundWallets[0] = "mutated"

		again, err := p.LoadSession()
		require.NoError(t, err)
		assert.Equal(t, TestAddress, again.BoundWallets[0])
	})

	t.Run("DeleteSessionIdempotent", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		require.NoError(t, p.SaveSession(NewTestSession()))
		require.NoError(t, p.DeleteSession())
		require.NoError(t, p.DeleteSession())

		loaded, err := p.LoadSession()
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("NonceLedger", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		used, err := p.IsNonceUsed("n1")
		require.NoError(t, err)
		assert.False(t, used)

		require.NoError(t, p.MarkNonceUsed("n1", time.Hour))
		used, err = p.IsNonceUsed("n1")
		require.NoError(t, err)
		assert.True(t, used)

		err = p.MarkNonceUsed("n1", time.Hour)
		assert.ErrorIs(t, err, persistence.ErrNonceAlreadyUsed)

		used, err = p.IsNonceUsed("n2")
		require.NoError(t, err)
		assert.False(t, used)
	})

	t.Run("NonceEmpty", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		assert.Error(t, p.MarkNonceUsed("", time.Hour))
	})

	t.Run("ConcurrentNonceMarking", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		const workers = 10
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := p.MarkNonceUsed("contended", time.Hour); err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, winners, "exactly one caller consumes a nonce")
	})

	t.Run("HealthCheck", func(t *testing.T) {
		p := open(t)
		defer func() { _ = p.Close() }()

		assert.NoError(t, p.HealthCheck())
	})

	t.Run("OperationsAfterClose", func(t *testing.T) {
		p := open(t)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close(), "close is idempotent")

		assert.ErrorIs(t, p.SaveSession(NewTestSession()), persistence.ErrClosed)
		_, err := p.LoadSession()
		assert.ErrorIs(t, err, persistence.ErrClosed)
		assert.ErrorIs(t, p.DeleteSession(), persistence.ErrClosed)
		assert.ErrorIs(t, p.MarkNonceUsed("n1", time.Hour), persistence.ErrClosed)
		_, err = p.IsNonceUsed("n1")
		assert.ErrorIs(t, err, persistence.ErrClosed)
		assert.ErrorIs(t, p.HealthCheck(), persistence.ErrClosed)
	})
}
