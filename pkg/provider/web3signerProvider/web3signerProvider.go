// Package web3signerProvider implements provider.Provider with keys held by a
// remote Web3Signer, so a login can be signed without the key ever being
// loaded into this process.
package web3signerProvider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/clients/web3signer"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
)

type Config struct {
	Signer web3signer.IWeb3Signer
	// Account selects one of the signer's accounts; empty uses the first
	Account string
	Flags   map[string]bool
	ChainID string
}

// Web3SignerProvider answers account and signing requests from Web3Signer
type Web3SignerProvider struct {
	signer  web3signer.IWeb3Signer
	flags   map[string]bool
	chainID string
	logger  *zap.Logger

	mu      sync.Mutex
	want    string
	account string
}

var (
	_ provider.Provider     = (*Web3SignerProvider)(nil)
	_ provider.FlagReader   = (*Web3SignerProvider)(nil)
	_ provider.ChainReader  = (*Web3SignerProvider)(nil)
	_ provider.MethodProber = (*Web3SignerProvider)(nil)
)

func NewWeb3SignerProvider(cfg *Config, logger *zap.Logger) (*Web3SignerProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	chainID := cfg.ChainID
	if chainID == "" {
		chainID = "0x1"
	}
	flags := make(map[string]bool, len(cfg.Flags))
	for k, v := range cfg.Flags {
		flags[k] = v
	}
	return &Web3SignerProvider{
		signer:  cfg.Signer,
		flags:   flags,
		chainID: chainID,
		logger:  logger,
		want:    strings.ToLower(cfg.Account),
	}, nil
}

func (p *Web3SignerProvider) Flag(name string) (bool, bool) {
	v, ok := p.flags[name]
	return v, ok
}

func (p *Web3SignerProvider) ChainID() (string, bool) {
	return p.chainID, true
}

func (p *Web3SignerProvider) SupportsMethod(method string) bool {
	switch method {
	case provider.MethodRequestAccounts, provider.MethodAccounts, provider.MethodPersonalSign, provider.MethodChainID:
		return true
	default:
		return false
	}
}

func (p *Web3SignerProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case provider.MethodRequestAccounts, provider.MethodAccounts:
		account, err := p.resolveAccount(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal([]string{account})
	case provider.MethodChainID:
		return json.Marshal(p.chainID)
	case provider.MethodPersonalSign:
		account, err := p.resolveAccount(ctx)
		if err != nil {
			return nil, err
		}
		message, _, err := provider.SplitPersonalSignParams(params, func(a string) bool {
			return strings.EqualFold(a, account)
		})
		if err != nil {
			return nil, err
		}
		sig, err := p.signer.EthSign(ctx, account, hexutil.Encode([]byte(message)))
		if err != nil {
			return nil, fmt.Errorf("web3signer refused to sign: %w", err)
		}
		p.logger.Sugar().Debugw("Web3Signer signed message", "address", account)
		return json.Marshal(sig)
	default:
		return nil, &provider.RPCError{Code: provider.CodeUnsupportedMethod, Message: fmt.Sprintf("method %s is not supported", method)}
	}
}

// resolveAccount looks the account up once and caches it
func (p *Web3SignerProvider) resolveAccount(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.account != "" {
		return p.account, nil
	}

	accounts, err := p.signer.EthAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list web3signer accounts: %w", err)
	}
	for _, a := range accounts {
		a = strings.ToLower(a)
		if p.want == "" || a == p.want {
			p.account = a
			return a, nil
		}
	}
	if p.want != "" {
		return "", &provider.RPCError{Code: provider.CodeUnauthorized, Message: fmt.Sprintf("web3signer holds no key for %s", p.want)}
	}
	return "", &provider.RPCError{Code: provider.CodeUnauthorized, Message: "web3signer holds no keys"}
}
