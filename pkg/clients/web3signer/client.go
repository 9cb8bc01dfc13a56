// Package web3signer is a JSON-RPC client for a Consensys Web3Signer instance
// holding secp256k1 keys.
package web3signer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Config holds the connection settings for a Web3Signer instance
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client, e.g. for TLS settings
	HTTPClient *http.Client
}

// DefaultConfig points at a Web3Signer running locally on its default port
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:9000",
		Timeout: 30 * time.Second,
	}
}

// Client talks to Web3Signer's eth1 JSON-RPC endpoint
type Client struct {
	rpc     *rpc.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a client. No request is made until a method is called.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	c, err := rpc.DialOptions(context.Background(), cfg.BaseURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create web3signer rpc client: %w", err)
	}
	return &Client{rpc: c, timeout: timeout, logger: logger}, nil
}

func (c *Client) EthAccounts(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var accounts []string
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		c.logger.Sugar().Warnw("web3signer eth_accounts failed", "error", err)
		return nil, fmt.Errorf("eth_accounts: %w", err)
	}
	c.logger.Sugar().Debugw("web3signer accounts", "count", len(accounts))
	return accounts, nil
}

func (c *Client) EthSign(ctx context.Context, account string, data string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var signature string
	if err := c.rpc.CallContext(ctx, &signature, "eth_sign", account, data); err != nil {
		c.logger.Sugar().Warnw("web3signer eth_sign failed", "account", account, "error", err)
		return "", fmt.Errorf("eth_sign: %w", err)
	}
	return signature, nil
}

// Close releases the underlying connection
func (c *Client) Close() {
	c.rpc.Close()
}
