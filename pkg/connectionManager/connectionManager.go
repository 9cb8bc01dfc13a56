// Package connectionManager owns the wallet connection state machine:
//
//	idle -> connecting -> connected | idle (with error)
//	connected -> idle      on Disconnect or an empty account list
//	connected -> connected on an account swap
//
// State is guarded by a mutex. Every Connect and Disconnect bumps a
// generation counter, and a connect attempt only writes its result while its
// generation is current and the state is still connecting, so a late wallet
// response can never overwrite a newer state.
package connectionManager

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/validation"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/walletDetector"
)

const eventBufferSize = 8

var ErrManagerClosed = errors.New("connection manager is closed")

// Config configures a Manager. Provider is the injected wallet object and may
// be nil when no wallet is installed.
type Config struct {
	Provider provider.Provider
	Logger   *zap.Logger
}

// Manager tracks the connection to one injected wallet
type Manager struct {
	root   provider.Provider
	logger *zap.Logger

	mu         sync.Mutex
	state      types.ConnectionState
	active     provider.Provider
	generation uint64
	watcher    *eventWatcher
	closed     bool

	stateFeed event.Feed
}

type eventWatcher struct {
	subs []event.Subscription
	stop chan struct{}
}

func (w *eventWatcher) close() {
	for _, s := range w.subs {
		s.Unsubscribe()
	}
	close(w.stop)
}

// NewManager creates a manager in the idle state
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Manager{
		root:   cfg.Provider,
		logger: cfg.Logger,
	}, nil
}

// State returns a copy of the current connection state
func (m *Manager) State() types.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Provider returns the provider entry the active connection was made through,
// or nil when not connected
func (m *Manager) Provider() provider.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Connected {
		return nil
	}
	return m.active
}

// SubscribeState delivers a copy of the state after every transition. The
// subscriber must keep draining ch.
func (m *Manager) SubscribeState(ch chan<- types.ConnectionState) event.Subscription {
	return m.stateFeed.Subscribe(ch)
}

// Connect requests account access from the wallet of the given kind and
// returns the validated address. Failures leave the manager idle with a
// user-safe error message in the state.
func (m *Manager) Connect(ctx context.Context, kind types.WalletKind) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrManagerClosed
	}
	m.stopWatcherLocked()
	m.generation++
	gen := m.generation
	m.active = nil
	m.state = types.ConnectionState{Connecting: true, WalletKind: kind}
	snapshot := m.state
	m.mu.Unlock()
	m.publish(snapshot)

	sugar := m.logger.Sugar()
	sugar.Debugw("Connecting wallet", "wallet_kind", kind, "generation", gen)

	if m.root == nil {
		return "", m.fail(gen, authErrors.ProviderAbsent(nil))
	}
	entry, err := walletDetector.ProviderForKind(m.root, kind, m.logger)
	if err != nil {
		return "", m.fail(gen, authErrors.ProviderMismatch(err))
	}

	accounts, err := provider.RequestAccounts(ctx, entry)
	if err != nil {
		return "", m.fail(gen, classifyProviderError(err))
	}
	if len(accounts) == 0 {
		return "", m.fail(gen, authErrors.FormatInvalid(errors.New("wallet returned no accounts")))
	}
	address := validation.SanitizeAddress(accounts[0])
	if !validation.IsValidAddress(address) {
		return "", m.fail(gen, authErrors.FormatInvalid(errors.New("wallet returned a malformed address")))
	}

	m.mu.Lock()
	if gen != m.generation || !m.state.Connecting {
		m.mu.Unlock()
		sugar.Debugw("Discarding stale connect result", "generation", gen)
		return "", authErrors.Superseded()
	}
	m.state = types.ConnectionState{Address: address, Connected: true, WalletKind: kind}
	m.active = entry
	m.startWatcherLocked(entry, gen)
	snapshot = m.state
	m.mu.Unlock()
	m.publish(snapshot)

	sugar.Infow("Wallet connected", "wallet_kind", kind, "address", address)
	return address, nil
}

// classifyProviderError maps a raw provider failure onto the taxonomy
func classifyProviderError(err error) *authErrors.Error {
	switch {
	case provider.IsUserRejection(err):
		return authErrors.UserRejected(err)
	case errors.Is(err, context.DeadlineExceeded):
		return authErrors.Timeout(err)
	default:
		return authErrors.New(authErrors.KindUnknown, authErrors.MsgOperationFailed, err)
	}
}

func (m *Manager) fail(gen uint64, failure *authErrors.Error) error {
	m.logger.Sugar().Warnw("Wallet connection failed",
		"kind", failure.Kind.String(),
		"error", failure.Cause(),
	)
	m.mu.Lock()
	if gen != m.generation || !m.state.Connecting {
		m.mu.Unlock()
		return authErrors.Superseded()
	}
	m.state = types.ConnectionState{Error: failure.Message}
	snapshot := m.state
	m.mu.Unlock()
	m.publish(snapshot)
	return failure
}

// Disconnect resets to the idle state and stops listening for wallet events.
// Calling it when already idle is a no-op apart from clearing any error.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	wasConnected := m.state.Connected
	m.resetLocked("")
	snapshot := m.state
	m.mu.Unlock()
	m.publish(snapshot)
	if wasConnected {
		m.logger.Sugar().Infow("Wallet disconnected")
	}
}

// ClearError drops the user-visible error, if any
func (m *Manager) ClearError() {
	m.mu.Lock()
	if m.state.Error == "" {
		m.mu.Unlock()
		return
	}
	m.state.Error = ""
	snapshot := m.state
	m.mu.Unlock()
	m.publish(snapshot)
}

// Close disconnects and rejects further Connect calls. Observers see the
// final idle state once.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.resetLocked("")
	snapshot := m.state
	m.mu.Unlock()
	m.publish(snapshot)
}

func (m *Manager) resetLocked(errMsg string) {
	m.stopWatcherLocked()
	m.generation++
	m.active = nil
	m.state = types.ConnectionState{Error: errMsg}
}

func (m *Manager) publish(state types.ConnectionState) {
	m.stateFeed.Send(state)
}

func (m *Manager) stopWatcherLocked() {
	if m.watcher != nil {
		m.watcher.close()
		m.watcher = nil
	}
}

func (m *Manager) startWatcherLocked(p provider.Provider, gen uint64) {
	source, ok := p.(provider.EventSource)
	if !ok {
		return
	}
	accountsCh := make(chan []string, eventBufferSize)
	chainCh := make(chan string, eventBufferSize)
	w := &eventWatcher{
		subs: []event.Subscription{
			source.SubscribeAccountsChanged(accountsCh),
			source.SubscribeChainChanged(chainCh),
		},
		stop: make(chan struct{}),
	}
	m.watcher = w
	go m.watch(gen, w, accountsCh, chainCh)
}

func (m *Manager) watch(gen uint64, w *eventWatcher, accountsCh <-chan []string, chainCh <-chan string) {
	accountsErr := w.subs[0].Err()
	chainErr := w.subs[1].Err()
	for {
		select {
		case <-w.stop:
			return
		case accounts := <-accountsCh:
			m.onAccountsChanged(gen, accounts)
		case chainID := <-chainCh:
			m.onChainChanged(gen, chainID)
		case err, ok := <-accountsErr:
			if ok && err != nil {
				m.logger.Sugar().Warnw("Account subscription failed", "error", err)
			}
			return
		case err, ok := <-chainErr:
			if ok && err != nil {
				m.logger.Sugar().Warnw("Chain subscription failed", "error", err)
			}
			return
		}
	}
}

func (m *Manager) onAccountsChanged(gen uint64, accounts []string) {
	sugar := m.logger.Sugar()

	m.mu.Lock()
	if gen != m.generation || !m.state.Connected {
		m.mu.Unlock()
		return
	}
	switch {
	case len(accounts) == 0:
		m.resetLocked("")
		sugar.Infow("Wallet locked or access revoked, disconnecting")
	default:
		address := validation.SanitizeAddress(accounts[0])
		if !validation.IsValidAddress(address) {
			m.resetLocked(authErrors.MsgOperationFailed)
			sugar.Warnw("Wallet switched to a malformed address, disconnecting")
			break
		}
		if strings.EqualFold(address, m.state.Address) {
			m.mu.Unlock()
			return
		}
		sugar.Infow("Wallet account changed", "from", m.state.Address, "to", address)
		m.state.Address = address
	}
	snapshot := m.state
	m.mu.Unlock()
	m.publish(snapshot)
}

func (m *Manager) onChainChanged(gen uint64, chainID string) {
	m.mu.Lock()
	if gen != m.generation || !m.state.Connected {
		m.mu.Unlock()
		return
	}
	m.state.Error = authErrors.MsgNetworkChanged
	snapshot := m.state
	m.mu.Unlock()

	m.logger.Sugar().Infow("Wallet network changed", "chain_id", chainID)
	m.publish(snapshot)
}
