// Package walletClient assembles detection, connection, login and wallet
// binding into one client configured from a WalletAuthConfig.
package walletClient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authenticator"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/backend"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/config"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/connectionManager"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/session"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/walletDetector"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/walletLink"
)

// ClientConfig holds the dependencies of a Client
type ClientConfig struct {
	Settings *config.WalletAuthConfig
	// Environment is what detection inspects; Environment.Provider is also
	// the provider connections are made through
	Environment walletDetector.Environment
	// Store overrides the store Settings.Persistence would open. The caller
	// keeps ownership of a store passed here.
	Store      persistence.ISessionPersistence
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is the entry point for applications and the CLI
type Client struct {
	detector *walletDetector.Detector
	conn     *connectionManager.Manager
	sessions *session.Manager
	auth     *authenticator.Authenticator
	linker   *walletLink.Linker

	store     persistence.ISessionPersistence
	ownsStore bool
	logger    *zap.Logger
}

// NewClient validates config and builds every component
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	store, ownsStore := cfg.Store, false
	if store == nil {
		var err error
		store, err = session.OpenStore(&cfg.Settings.Persistence, cfg.Logger)
		if err != nil {
			return nil, err
		}
		ownsStore = true
	}

	c, err := build(cfg, store)
	if err != nil {
		if ownsStore {
			_ = store.Close()
		}
		return nil, err
	}
	c.ownsStore = ownsStore
	return c, nil
}

func build(cfg *ClientConfig, store persistence.ISessionPersistence) (*Client, error) {
	settings, logger := cfg.Settings, cfg.Logger

	conn, err := connectionManager.NewManager(&connectionManager.Config{
		Provider: cfg.Environment.Provider,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}

	api, err := backend.NewClient(&backend.Config{
		BaseURL:        settings.BackendURL,
		RequestTimeout: settings.RequestTimeout,
		RateLimit:      settings.RateLimit,
		RateBurst:      settings.RateBurst,
		HTTPClient:     cfg.HTTPClient,
		Logger:         logger,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	sessions, err := session.NewManager(&session.Config{Store: store, Logger: logger})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	auth, err := authenticator.NewAuthenticator(&authenticator.Config{
		Connection:       conn,
		Backend:          api,
		Sessions:         sessions,
		Nonces:           store,
		NonceTTL:         settings.NonceTTL,
		VerifySignatures: settings.VerifySignatures,
		Logger:           logger,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	linker, err := walletLink.NewLinker(&walletLink.Config{
		Backend:    api,
		Tokens:     sessions,
		Connection: conn,
		Logger:     logger,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create wallet linker: %w", err)
	}

	return &Client{
		detector: walletDetector.NewDetector(cfg.Environment, logger),
		conn:     conn,
		sessions: sessions,
		auth:     auth,
		linker:   linker,
		store:    store,
		logger:   logger,
	}, nil
}

// Detect returns every detected wallet kind, most confident first
func (c *Client) Detect() []types.DetectionResult {
	return c.detector.DetectAll()
}

// InstalledWallets reports every supported kind and whether it is installed
func (c *Client) InstalledWallets() []types.InstalledWallet {
	return c.detector.InstalledWallets()
}

// Connect connects the wallet of the given kind. WalletKindUnknown connects
// whichever wallet detection ranks first.
func (c *Client) Connect(ctx context.Context, kind types.WalletKind) (string, error) {
	if kind == types.WalletKindUnknown || kind == "" {
		primary, ok := c.detector.DetectPrimary()
		if !ok {
			c.logger.Sugar().Infow("No wallet detected")
			return "", authErrors.ProviderAbsent(fmt.Errorf("no wallet detected"))
		}
		kind = primary.WalletKind
	}
	return c.conn.Connect(ctx, kind)
}

// Disconnect drops the wallet connection. The session is kept.
func (c *Client) Disconnect() {
	c.conn.Disconnect()
}

// State returns the current connection state
func (c *Client) State() types.ConnectionState {
	return c.conn.State()
}

// SubscribeState delivers every connection state change to ch
func (c *Client) SubscribeState(ch chan<- types.ConnectionState) event.Subscription {
	return c.conn.SubscribeState(ch)
}

// ClearError clears the error shown on the connection state
func (c *Client) ClearError() {
	c.conn.ClearError()
}

// Provider returns the provider of the active connection
func (c *Client) Provider() provider.Provider {
	return c.conn.Provider()
}

// Login runs the challenge-response login over the connected wallet and
// returns the stored session
func (c *Client) Login(ctx context.Context) (*types.Session, error) {
	if _, err := c.auth.Authenticate(ctx); err != nil {
		return nil, err
	}
	s, err := c.sessions.Current()
	if err != nil {
		return nil, authErrors.New(authErrors.KindUnknown, authErrors.MsgOperationFailed, err)
	}
	if s == nil {
		return nil, authErrors.NotAuthenticated(fmt.Errorf("session expired immediately after login"))
	}
	return s, nil
}

// Session returns the live session or nil
func (c *Client) Session() (*types.Session, error) {
	return c.sessions.Current()
}

// Logout discards the session. The wallet stays connected.
func (c *Client) Logout() error {
	return c.sessions.End()
}

func (c *Client) LinkWallet(ctx context.Context, isPrimary bool) error {
	return c.linker.LinkWallet(ctx, isPrimary)
}

func (c *Client) UnlinkWallet(ctx context.Context, address string) error {
	return c.linker.UnlinkWallet(ctx, address)
}

func (c *Client) ListWallets(ctx context.Context) ([]types.LinkedWallet, error) {
	return c.linker.ListWallets(ctx)
}

// Close stops event handling and closes the store when the client opened it
func (c *Client) Close() error {
	c.conn.Close()
	if c.ownsStore {
		if err := c.store.Close(); err != nil {
			return fmt.Errorf("failed to close session store: %w", err)
		}
	}
	return nil
}
