package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/clients/web3signer"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/config"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/logger"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider/localProvider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider/web3signerProvider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/telemetry"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/walletClient"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/walletDetector"
)

// loadSettings reads the environment and applies explicitly set flags on top
func loadSettings(c *cli.Context) (*config.WalletAuthConfig, error) {
	settings, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	overrides := map[string]*string{
		"backend-url":        &settings.BackendURL,
		"wallet":             &settings.Wallet.Kind,
		"keystore":           &settings.Wallet.KeystorePath,
		"private-key":        &settings.Wallet.PrivateKey,
		"mnemonic":           &settings.Wallet.Mnemonic,
		"persistence":        &settings.Persistence.Type,
		"data-path":          &settings.Persistence.DataPath,
		"redis-address":      &settings.Persistence.RedisAddress,
		"otel-endpoint":      &settings.OtelEndpoint,
		"web3signer-url":     &settings.Wallet.Web3SignerURL,
		"web3signer-account": &settings.Wallet.Web3SignerAccount,
	}
	for name, target := range overrides {
		if c.IsSet(name) {
			*target = c.String(name)
		}
	}
	if c.IsSet("mnemonic-index") {
		settings.Wallet.MnemonicIndex = uint32(c.Uint("mnemonic-index"))
	}
	if c.IsSet("debug") {
		settings.Debug = c.Bool("debug")
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// walletFlags is how the local key presents itself to detection
var walletFlags = map[types.WalletKind]map[string]bool{
	types.WalletKindMetaMask:    {provider.FlagIsMetaMask: true},
	types.WalletKindTokenPocket: {provider.FlagIsTokenPocket: true, provider.FlagIsTp: true},
}

// loadProvider builds the wallet the CLI signs with. It returns a nil
// provider when no key source is configured. release frees the provider's
// resources and is never nil.
func loadProvider(c *cli.Context, settings *config.WalletAuthConfig, l *zap.Logger) (p provider.Provider, release func(), err error) {
	release = func() {}
	flags := walletFlags[settings.Wallet.WalletKind()]

	if settings.Wallet.Web3SignerURL != "" {
		signer, err := web3signer.NewClient(&web3signer.Config{
			BaseURL: settings.Wallet.Web3SignerURL,
			Timeout: settings.RequestTimeout,
		}, l)
		if err != nil {
			return nil, release, err
		}
		wp, err := web3signerProvider.NewWeb3SignerProvider(&web3signerProvider.Config{
			Signer:  signer,
			Account: settings.Wallet.Web3SignerAccount,
			Flags:   flags,
			ChainID: settings.Wallet.ChainID,
		}, l)
		if err != nil {
			signer.Close()
			return nil, release, err
		}
		return wp, signer.Close, nil
	}

	cfg := &localProvider.LocalProviderConfig{
		Flags:   flags,
		ChainID: settings.Wallet.ChainID,
	}
	if c.Bool("confirm") {
		cfg.Approve = confirmPrompt
	}

	var lp *localProvider.LocalProvider
	switch {
	case settings.Wallet.KeystorePath != "":
		passphrase := c.String("keystore-passphrase")
		if passphrase == "" {
			passphrase, err = readPassphrase(settings.Wallet.KeystorePath)
			if err != nil {
				return nil, release, err
			}
		}
		lp, err = localProvider.NewLocalProviderFromKeystore(settings.Wallet.KeystorePath, passphrase, cfg, l)
	case settings.Wallet.PrivateKey != "":
		lp, err = localProvider.NewLocalProviderFromHex(settings.Wallet.PrivateKey, cfg, l)
	case settings.Wallet.Mnemonic != "":
		lp, err = localProvider.NewLocalProviderFromMnemonic(settings.Wallet.Mnemonic, settings.Wallet.MnemonicIndex, cfg, l)
	default:
		return nil, release, nil
	}
	if err != nil {
		return nil, release, err
	}
	return lp, release, nil
}

func readPassphrase(path string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("keystore passphrase required: set --keystore-passphrase or run in a terminal")
	}
	fmt.Fprintf(os.Stderr, "Passphrase for %s: ", path)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(b), nil
}

func confirmPrompt(_ context.Context, method string) bool {
	fmt.Fprintf(os.Stderr, "Approve %s? [y/N]: ", method)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// createClient builds the wallet client from CLI context
func createClient(c *cli.Context) (*walletClient.Client, *config.WalletAuthConfig, func(), error) {
	settings, err := loadSettings(c)
	if err != nil {
		return nil, nil, nil, err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: settings.Debug})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	shutdownTracing, err := telemetry.Setup(c.Context, settings.OtelEndpoint, l)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	p, releaseProvider, err := loadProvider(c, settings, l)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, nil, nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	release := func() {
		releaseProvider()
		if err := shutdownTracing(context.Background()); err != nil {
			l.Sugar().Warnw("Failed to flush traces", "error", err)
		}
		_ = l.Sync()
	}

	client, err := walletClient.NewClient(&walletClient.ClientConfig{
		Settings:    settings,
		Environment: walletDetector.Environment{Provider: p},
		Logger:      l,
	})
	if err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("failed to create wallet client: %w", err)
	}
	return client, settings, release, nil
}
