package main

import (
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/config"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider/localProvider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider/web3signerProvider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/testutil"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// Hardhat's first development account
const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("walletauth", flag.ContinueOnError)
	for _, f := range globalFlags() {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadSettings_Defaults(t *testing.T) {
	settings, err := loadSettings(newContext(t))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBackendURL, settings.BackendURL)
	assert.Equal(t, "memory", settings.Persistence.Type)
	assert.Equal(t, types.WalletKindMetaMask, settings.Wallet.WalletKind())
}

func TestLoadSettings_FlagsOverrideEnv(t *testing.T) {
	t.Setenv(config.EnvBackendURL, "http://env.example/api/web3")
	t.Setenv(config.EnvWalletKind, "metamask")

	dataPath := filepath.Join(t.TempDir(), "sessions.db")
	settings, err := loadSettings(newContext(t,
		"--wallet", "tp",
		"--persistence", "sqlite",
		"--data-path", dataPath,
		"--otel-endpoint", "http://collector.example:4318",
		"--debug",
	))
	require.NoError(t, err)
	assert.Equal(t, "http://env.example/api/web3", settings.BackendURL, "unset flag keeps env value")
	assert.Equal(t, types.WalletKindTokenPocket, settings.Wallet.WalletKind())
	assert.Equal(t, "sqlite", settings.Persistence.Type)
	assert.Equal(t, dataPath, settings.Persistence.DataPath)
	assert.Equal(t, "http://collector.example:4318", settings.OtelEndpoint)
	assert.True(t, settings.Debug)
}

func TestLoadSettings_Invalid(t *testing.T) {
	_, err := loadSettings(newContext(t, "--persistence", "badger"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistence.dataPath")

	_, err = loadSettings(newContext(t, "--private-key", devKey, "--keystore", "/tmp/key.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet.privateKey")
}

func TestLoadProvider(t *testing.T) {
	c := newContext(t, "--wallet", "tp", "--private-key", "0x"+devKey)
	settings, err := loadSettings(c)
	require.NoError(t, err)

	p, release, err := loadProvider(c, settings, zap.NewNop())
	require.NoError(t, err)
	defer release()
	lp, ok := p.(*localProvider.LocalProvider)
	require.True(t, ok)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", lp.Address().Hex())
	assert.True(t, provider.FlagTrue(lp, provider.FlagIsTokenPocket))
	assert.False(t, provider.FlagTrue(lp, provider.FlagIsMetaMask))

	keyless := *settings
	keyless.Wallet.PrivateKey = ""
	none, release, err := loadProvider(newContext(t), &keyless, zap.NewNop())
	require.NoError(t, err)
	release()
	assert.Nil(t, none)
}

func TestLoadProvider_Mnemonic(t *testing.T) {
	c := newContext(t,
		"--mnemonic", "test test test test test test test test test test test junk",
		"--mnemonic-index", "1",
	)
	settings, err := loadSettings(c)
	require.NoError(t, err)

	p, release, err := loadProvider(c, settings, zap.NewNop())
	require.NoError(t, err)
	defer release()
	lp, ok := p.(*localProvider.LocalProvider)
	require.True(t, ok)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", lp.Address().Hex())
}

func TestLoadProvider_Web3Signer(t *testing.T) {
	signer := testutil.NewFakeWeb3Signer(t)
	c := newContext(t, "--web3signer-url", signer.URL())
	settings, err := loadSettings(c)
	require.NoError(t, err)

	p, release, err := loadProvider(c, settings, zap.NewNop())
	require.NoError(t, err)
	defer release()
	require.IsType(t, &web3signerProvider.Web3SignerProvider{}, p)

	accounts, err := provider.RequestAccounts(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{signer.Address}, accounts)
	assert.True(t, provider.FlagTrue(p, provider.FlagIsMetaMask))
}
