package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/config"
)

func main() {
	app := &cli.App{
		Name:  "walletauth",
		Usage: "Web3 wallet sign-in client",
		Description: `Signs in to a wallet auth backend with a locally held Ethereum key.

The key, local or held by a Web3Signer, plays the part of a browser wallet (MetaMask or TokenPocket):
- detect shows which wallet the configured key presents as
- login runs the nonce challenge and stores the session
- link, unlink and wallets manage the wallets bound to the account

Settings are read from WALLETAUTH_* environment variables; flags override them.
Use a badger, sqlite or redis store to keep the session between invocations.`,
		Version: "1.0.0",
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "detect",
				Usage:  "Show which wallets are detected",
				Action: detectCommand,
			},
			{
				Name:   "login",
				Usage:  "Connect the wallet and sign in",
				Action: loginCommand,
			},
			{
				Name:  "link",
				Usage: "Bind the connected wallet to the signed-in account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "primary",
						Usage: "Make the wallet the account's primary wallet",
					},
				},
				Action: linkCommand,
			},
			{
				Name:  "unlink",
				Usage: "Remove a wallet binding",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "address",
						Usage:    "Address of the wallet to unbind",
						Required: true,
					},
				},
				Action: unlinkCommand,
			},
			{
				Name:   "wallets",
				Usage:  "List the wallets bound to the signed-in account",
				Action: walletsCommand,
			},
			{
				Name:   "status",
				Usage:  "Show the stored session",
				Action: statusCommand,
			},
			{
				Name:   "logout",
				Usage:  "Discard the stored session",
				Action: logoutCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// globalFlags are shared by every subcommand
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend-url",
			Usage: "Backend base URL including the API prefix",
			Value: config.DefaultBackendURL,
		},
		&cli.StringFlag{
			Name:  "wallet",
			Usage: "Wallet kind to present as (metamask, tp)",
			Value: "metamask",
		},
		&cli.StringFlag{
			Name:  "keystore",
			Usage: "Path to a go-ethereum keystore file",
		},
		&cli.StringFlag{
			Name:    "keystore-passphrase",
			Usage:   "Keystore passphrase; prompted for when omitted",
			EnvVars: []string{"WALLETAUTH_KEYSTORE_PASSPHRASE"},
		},
		&cli.StringFlag{
			Name:  "private-key",
			Usage: "Hex encoded private key (prefer --keystore)",
		},
		&cli.StringFlag{
			Name:  "mnemonic",
			Usage: "BIP-39 mnemonic to derive the key from",
		},
		&cli.UintFlag{
			Name:  "mnemonic-index",
			Usage: "Account index on the m/44'/60'/0'/0 path",
		},
		&cli.StringFlag{
			Name:  "web3signer-url",
			Usage: "Sign with a key held by this Web3Signer instead of a local key",
		},
		&cli.StringFlag{
			Name:  "web3signer-account",
			Usage: "Web3Signer account to use; defaults to the first one",
		},
		&cli.StringFlag{
			Name:  "persistence",
			Usage: "Session store: memory, badger, sqlite, redis",
			Value: "memory",
		},
		&cli.StringFlag{
			Name:  "data-path",
			Usage: "Data path for the badger or sqlite store",
		},
		&cli.StringFlag{
			Name:  "redis-address",
			Usage: "Redis address for the redis store",
		},
		&cli.BoolFlag{
			Name:  "confirm",
			Usage: "Ask before approving each wallet prompt",
		},
		&cli.StringFlag{
			Name:  "otel-endpoint",
			Usage: "OTLP/HTTP endpoint to send backend call traces to",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
}
