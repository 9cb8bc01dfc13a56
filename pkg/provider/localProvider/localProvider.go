package localProvider

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
)

// ApproveFunc decides whether a prompt for method is approved. Returning
// false answers the request with a 4001 user rejection.
type ApproveFunc func(ctx context.Context, method string) bool

// LocalProviderConfig configures an in-process provider
type LocalProviderConfig struct {
	// Flags are the self-declared capability flags, e.g. isMetaMask
	Flags map[string]bool
	// ChainID is returned by eth_chainId, hex encoded ("0x1")
	ChainID string
	// Approve gates eth_requestAccounts and personal_sign. nil approves everything.
	Approve ApproveFunc
}

// LocalProvider implements provider.Provider on top of a secp256k1 private key
// held in memory. It stands in for a browser wallet in the CLI and in tests.
type LocalProvider struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	key     *ecdsa.PrivateKey
	address common.Address
	flags   map[string]bool
	chainID string
	approve ApproveFunc

	accountsFeed event.Feed
	chainFeed    event.Feed
}

var (
	_ provider.Provider     = (*LocalProvider)(nil)
	_ provider.FlagReader   = (*LocalProvider)(nil)
	_ provider.ChainReader  = (*LocalProvider)(nil)
	_ provider.MethodProber = (*LocalProvider)(nil)
	_ provider.EventSource  = (*LocalProvider)(nil)
)

// NewLocalProvider creates a provider that signs with key
func NewLocalProvider(key *ecdsa.PrivateKey, cfg *LocalProviderConfig, logger *zap.Logger) (*LocalProvider, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &LocalProviderConfig{}
	}
	chainID := cfg.ChainID
	if chainID == "" {
		chainID = "0x1"
	}
	flags := make(map[string]bool, len(cfg.Flags))
	for k, v := range cfg.Flags {
		flags[k] = v
	}

	return &LocalProvider{
		logger:  logger,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		flags:   flags,
		chainID: chainID,
		approve: cfg.Approve,
	}, nil
}

// NewLocalProviderFromHex creates a provider from a hex encoded private key
func NewLocalProviderFromHex(privateKeyHex string, cfg *LocalProviderConfig, logger *zap.Logger) (*LocalProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("error loading private key: %w", err)
	}
	return NewLocalProvider(key, cfg, logger)
}

// NewLocalProviderFromKeystore decrypts a go-ethereum keystore file
func NewLocalProviderFromKeystore(path string, passphrase string, cfg *LocalProviderConfig, logger *zap.Logger) (*LocalProvider, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore file: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}
	return NewLocalProvider(key.PrivateKey, cfg, logger)
}

// Address returns the account this provider signs for
func (lp *LocalProvider) Address() common.Address {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	return lp.address
}

func (lp *LocalProvider) Flag(name string) (bool, bool) {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	v, ok := lp.flags[name]
	return v, ok
}

func (lp *LocalProvider) ChainID() (string, bool) {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	return lp.chainID, lp.chainID != ""
}

func (lp *LocalProvider) SupportsMethod(method string) bool {
	switch method {
	case provider.MethodRequestAccounts, provider.MethodAccounts, provider.MethodPersonalSign, provider.MethodChainID:
		return true
	default:
		return false
	}
}

func (lp *LocalProvider) SubscribeAccountsChanged(ch chan<- []string) event.Subscription {
	return lp.accountsFeed.Subscribe(ch)
}

func (lp *LocalProvider) SubscribeChainChanged(ch chan<- string) event.Subscription {
	return lp.chainFeed.Subscribe(ch)
}

// SwitchAccount replaces the signing key and emits accountsChanged
func (lp *LocalProvider) SwitchAccount(key *ecdsa.PrivateKey) {
	lp.mu.Lock()
	lp.key = key
	lp.address = crypto.PubkeyToAddress(key.PublicKey)
	addr := lp.address
	lp.mu.Unlock()

	lp.logger.Sugar().Debugw("Local provider switched account", "address", addr.Hex())
	lp.accountsFeed.Send([]string{strings.ToLower(addr.Hex())})
}

// SwitchChain changes the chain id and emits chainChanged
func (lp *LocalProvider) SwitchChain(chainID string) {
	lp.mu.Lock()
	lp.chainID = chainID
	lp.mu.Unlock()

	lp.logger.Sugar().Debugw("Local provider switched chain", "chain_id", chainID)
	lp.chainFeed.Send(chainID)
}

func (lp *LocalProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch method {
	case provider.MethodRequestAccounts:
		if !lp.approved(ctx, method) {
			return nil, provider.ErrUserRejected
		}
		return json.Marshal([]string{strings.ToLower(lp.Address().Hex())})
	case provider.MethodAccounts:
		return json.Marshal([]string{strings.ToLower(lp.Address().Hex())})
	case provider.MethodChainID:
		id, _ := lp.ChainID()
		return json.Marshal(id)
	case provider.MethodPersonalSign:
		if !lp.approved(ctx, method) {
			return nil, provider.ErrUserRejected
		}
		sig, err := lp.personalSign(params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(sig)
	default:
		return nil, &provider.RPCError{Code: provider.CodeUnsupportedMethod, Message: fmt.Sprintf("method %s is not supported", method)}
	}
}

func (lp *LocalProvider) approved(ctx context.Context, method string) bool {
	if lp.approve == nil {
		return true
	}
	return lp.approve(ctx, method)
}

func (lp *LocalProvider) personalSign(params []any) (string, error) {
	lp.mu.RLock()
	key := lp.key
	self := lp.address
	lp.mu.RUnlock()

	message, address, err := provider.SplitPersonalSignParams(params, func(a string) bool {
		return common.IsHexAddress(a) && common.HexToAddress(a) == self
	})
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	lp.logger.Sugar().Debugw("Local provider signed message", "address", address)
	return hexutil.Encode(sig), nil
}
