// Package config holds the wallet auth client configuration. Values are read
// from WALLETAUTH_* environment variables and can be overridden by CLI flags.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/validation"
)

// Environment variable names
const (
	EnvBackendURL       = "WALLETAUTH_BACKEND_URL"
	EnvRequestTimeout   = "WALLETAUTH_REQUEST_TIMEOUT"
	EnvRateLimit        = "WALLETAUTH_RATE_LIMIT"
	EnvRateBurst        = "WALLETAUTH_RATE_BURST"
	EnvVerifySignatures = "WALLETAUTH_VERIFY_SIGNATURES"
	EnvNonceTTL         = "WALLETAUTH_NONCE_TTL"
	EnvDebug            = "WALLETAUTH_DEBUG"
	EnvOtelEndpoint     = "WALLETAUTH_OTEL_ENDPOINT"

	EnvPersistenceType = "WALLETAUTH_PERSISTENCE_TYPE"
	EnvDataPath        = "WALLETAUTH_DATA_PATH"
	EnvRedisAddress    = "WALLETAUTH_REDIS_ADDRESS"
	EnvRedisPassword   = "WALLETAUTH_REDIS_PASSWORD"
	EnvRedisDB         = "WALLETAUTH_REDIS_DB"
	EnvRedisKeyPrefix  = "WALLETAUTH_REDIS_KEY_PREFIX"

	EnvWalletKind   = "WALLETAUTH_WALLET_KIND"
	EnvKeystorePath = "WALLETAUTH_KEYSTORE"
	EnvPrivateKey   = "WALLETAUTH_PRIVATE_KEY"
	EnvChainID      = "WALLETAUTH_CHAIN_ID"

	EnvMnemonic          = "WALLETAUTH_MNEMONIC"
	EnvMnemonicIndex     = "WALLETAUTH_MNEMONIC_INDEX"
	EnvWeb3SignerURL     = "WALLETAUTH_WEB3SIGNER_URL"
	EnvWeb3SignerAccount = "WALLETAUTH_WEB3SIGNER_ACCOUNT"
)

const (
	DefaultBackendURL     = "http://localhost:8080/api/web3"
	DefaultRequestTimeout = 15 * time.Second
	DefaultNonceTTL       = 10 * time.Minute
	MaxRedisDB            = 15
)

// PersistenceConfig selects and configures the session store
type PersistenceConfig struct {
	Type           string `json:"type" env:"WALLETAUTH_PERSISTENCE_TYPE" envDefault:"memory"`
	DataPath       string `json:"data_path" env:"WALLETAUTH_DATA_PATH"`
	RedisAddress   string `json:"redis_address" env:"WALLETAUTH_REDIS_ADDRESS"`
	RedisPassword  string `json:"-" env:"WALLETAUTH_REDIS_PASSWORD"`
	RedisDB        int    `json:"redis_db" env:"WALLETAUTH_REDIS_DB"`
	RedisKeyPrefix string `json:"redis_key_prefix" env:"WALLETAUTH_REDIS_KEY_PREFIX"`
}

// WalletConfig describes the locally held key the CLI signs with
type WalletConfig struct {
	Kind         string `json:"kind" env:"WALLETAUTH_WALLET_KIND" envDefault:"metamask"`
	KeystorePath string `json:"keystore_path" env:"WALLETAUTH_KEYSTORE"`
	PrivateKey   string `json:"-" env:"WALLETAUTH_PRIVATE_KEY"`
	ChainID      string `json:"chain_id" env:"WALLETAUTH_CHAIN_ID" envDefault:"0x1"`
	// Mnemonic derives the key at m/44'/60'/0'/0/{MnemonicIndex}
	Mnemonic      string `json:"-" env:"WALLETAUTH_MNEMONIC"`
	MnemonicIndex uint32 `json:"mnemonic_index" env:"WALLETAUTH_MNEMONIC_INDEX"`
	// Web3SignerURL signs with a key held by a remote Web3Signer instead
	Web3SignerURL     string `json:"web3signer_url" env:"WALLETAUTH_WEB3SIGNER_URL"`
	Web3SignerAccount string `json:"web3signer_account" env:"WALLETAUTH_WEB3SIGNER_ACCOUNT"`
}

// WalletAuthConfig is the complete client configuration
type WalletAuthConfig struct {
	BackendURL     string        `json:"backend_url" env:"WALLETAUTH_BACKEND_URL" envDefault:"http://localhost:8080/api/web3"`
	RequestTimeout time.Duration `json:"request_timeout" env:"WALLETAUTH_REQUEST_TIMEOUT" envDefault:"15s"`
	RateLimit      float64       `json:"rate_limit" env:"WALLETAUTH_RATE_LIMIT" envDefault:"5"`
	RateBurst      int           `json:"rate_burst" env:"WALLETAUTH_RATE_BURST" envDefault:"10"`
	// VerifySignatures recovers the signer locally before a signature is submitted
	VerifySignatures bool          `json:"verify_signatures" env:"WALLETAUTH_VERIFY_SIGNATURES" envDefault:"true"`
	NonceTTL         time.Duration `json:"nonce_ttl" env:"WALLETAUTH_NONCE_TTL" envDefault:"10m"`
	Debug            bool          `json:"debug" env:"WALLETAUTH_DEBUG"`
	// OtelEndpoint enables tracing of backend calls to an OTLP/HTTP collector
	OtelEndpoint string `json:"otel_endpoint" env:"WALLETAUTH_OTEL_ENDPOINT"`

	Persistence PersistenceConfig `json:"persistence"`
	Wallet      WalletConfig      `json:"wallet"`
}

// FromEnv loads the configuration from the environment, applying defaults
func FromEnv() (*WalletAuthConfig, error) {
	var cfg WalletAuthConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks every field and reports all problems at once
func (c *WalletAuthConfig) Validate() error {
	var allErrors field.ErrorList

	backendPath := field.NewPath("backendUrl")
	if c.BackendURL == "" {
		allErrors = append(allErrors, field.Required(backendPath, "backend URL is required"))
	} else if u, err := url.Parse(c.BackendURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		allErrors = append(allErrors, field.Invalid(backendPath, c.BackendURL, "must be an absolute http or https URL"))
	}

	if c.RequestTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("requestTimeout"), c.RequestTimeout.String(), "must be positive"))
	}
	if c.RateLimit <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit"), c.RateLimit, "must be positive"))
	}
	if c.RateBurst < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateBurst"), c.RateBurst, "must be at least 1"))
	}
	if c.OtelEndpoint != "" {
		if u, err := url.Parse(c.OtelEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
			allErrors = append(allErrors, field.Invalid(field.NewPath("otelEndpoint"), c.OtelEndpoint, "must be an absolute URL"))
		}
	}
	if c.NonceTTL < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("nonceTtl"), c.NonceTTL.String(), "must not be negative"))
	}

	allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)
	allErrors = append(allErrors, c.Wallet.validate(field.NewPath("wallet"))...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (p *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList

	typ, err := persistence.ParsePersistenceType(p.Type)
	if err != nil {
		supported := make([]string, 0, len(persistence.SupportedPersistenceTypes))
		for _, t := range persistence.SupportedPersistenceTypes {
			supported = append(supported, string(t))
		}
		return append(allErrors, field.NotSupported(path.Child("type"), p.Type, supported))
	}

	switch typ {
	case persistence.PersistenceTypeBadger, persistence.PersistenceTypeSqlite:
		if p.DataPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("dataPath"), fmt.Sprintf("data path is required for %s persistence", typ)))
		}
	case persistence.PersistenceTypeRedis:
		if p.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(path.Child("redisAddress"), "redis address is required for redis persistence"))
		}
		if p.RedisDB < 0 || p.RedisDB > MaxRedisDB {
			allErrors = append(allErrors, field.Invalid(path.Child("redisDb"), p.RedisDB, fmt.Sprintf("must be between 0 and %d", MaxRedisDB)))
		}
	}
	return allErrors
}

func (w *WalletConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if _, err := types.ParseWalletKind(w.Kind); err != nil {
		supported := make([]string, 0, len(types.SupportedWalletKinds))
		for _, k := range types.SupportedWalletKinds {
			supported = append(supported, string(k))
		}
		allErrors = append(allErrors, field.NotSupported(path.Child("kind"), w.Kind, supported))
	}
	if w.KeystorePath != "" && w.PrivateKey != "" {
		allErrors = append(allErrors, field.Forbidden(path.Child("privateKey"), "set either a keystore or a private key, not both"))
	}
	if w.Mnemonic != "" && (w.KeystorePath != "" || w.PrivateKey != "") {
		allErrors = append(allErrors, field.Forbidden(path.Child("mnemonic"), "a mnemonic cannot be combined with another local key"))
	}
	if w.Web3SignerURL != "" {
		if w.KeystorePath != "" || w.PrivateKey != "" || w.Mnemonic != "" {
			allErrors = append(allErrors, field.Forbidden(path.Child("web3SignerUrl"), "a web3signer cannot be combined with a local key"))
		}
		if u, err := url.Parse(w.Web3SignerURL); err != nil || u.Scheme == "" || u.Host == "" {
			allErrors = append(allErrors, field.Invalid(path.Child("web3SignerUrl"), w.Web3SignerURL, "must be an absolute URL"))
		}
	}
	if w.Web3SignerAccount != "" && !validation.IsValidAddress(w.Web3SignerAccount) {
		allErrors = append(allErrors, field.Invalid(path.Child("web3SignerAccount"), w.Web3SignerAccount, "must be a 0x prefixed 20 byte address"))
	}
	return allErrors
}

// PersistenceType returns the parsed store type. Call Validate first.
func (p *PersistenceConfig) PersistenceType() persistence.PersistenceType {
	t, _ := persistence.ParsePersistenceType(p.Type)
	return t
}

// WalletKind returns the parsed wallet kind. Call Validate first.
func (w *WalletConfig) WalletKind() types.WalletKind {
	k, _ := types.ParseWalletKind(w.Kind)
	return k
}
