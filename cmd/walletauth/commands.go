package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/walletClient"
)

// userError keeps command output on the user-safe vocabulary
func userError(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(fmt.Sprintf("❌ %s", authErrors.UserMessage(err)), 1)
}

func withClient(c *cli.Context, fn func(*walletClient.Client, types.WalletKind) error) error {
	client, settings, release, err := createClient(c)
	if err != nil {
		return err
	}
	defer release()
	defer func() { _ = client.Close() }()
	return fn(client, settings.Wallet.WalletKind())
}

func connect(c *cli.Context, client *walletClient.Client, kind types.WalletKind) error {
	address, err := client.Connect(c.Context, kind)
	if err != nil {
		return userError(err)
	}
	fmt.Printf("🔌 Connected %s wallet %s\n", kind, address)
	return nil
}

// detectCommand handles the detect subcommand
func detectCommand(c *cli.Context) error {
	return withClient(c, func(client *walletClient.Client, _ types.WalletKind) error {
		results := client.Detect()
		if len(results) == 0 {
			fmt.Println("No wallet detected")
		}
		for _, r := range results {
			fmt.Printf("✅ %s (confidence %d)\n", r.WalletKind, r.Confidence)
		}
		for _, w := range client.InstalledWallets() {
			fmt.Printf("   %-10s installed=%t confidence=%d\n", w.WalletKind, w.IsInstalled, w.Confidence)
		}
		return nil
	})
}

// loginCommand handles the login subcommand
func loginCommand(c *cli.Context) error {
	return withClient(c, func(client *walletClient.Client, kind types.WalletKind) error {
		if err := connect(c, client, kind); err != nil {
			return err
		}
		fmt.Println("✍️  Signing login challenge...")
		sess, err := client.Login(c.Context)
		if err != nil {
			return userError(err)
		}
		fmt.Printf("✅ Signed in as %s\n", sess.Address)
		printExpiry(sess)
		for _, w := range sess.BoundWallets {
			fmt.Printf("   bound wallet: %s\n", w)
		}
		return nil
	})
}

// linkCommand handles the link subcommand
func linkCommand(c *cli.Context) error {
	return withClient(c, func(client *walletClient.Client, kind types.WalletKind) error {
		if err := connect(c, client, kind); err != nil {
			return err
		}
		if err := client.LinkWallet(c.Context, c.Bool("primary")); err != nil {
			return userError(err)
		}
		fmt.Printf("🔗 Linked %s\n", client.State().Address)
		return nil
	})
}

// unlinkCommand handles the unlink subcommand
func unlinkCommand(c *cli.Context) error {
	return withClient(c, func(client *walletClient.Client, _ types.WalletKind) error {
		address := c.String("address")
		if err := client.UnlinkWallet(c.Context, address); err != nil {
			return userError(err)
		}
		fmt.Printf("✅ Unlinked %s\n", address)
		return nil
	})
}

// walletsCommand handles the wallets subcommand
func walletsCommand(c *cli.Context) error {
	return withClient(c, func(client *walletClient.Client, _ types.WalletKind) error {
		wallets, err := client.ListWallets(c.Context)
		if err != nil {
			return userError(err)
		}
		if len(wallets) == 0 {
			fmt.Println("No wallets bound")
			return nil
		}
		for _, w := range wallets {
			primary := ""
			if w.IsPrimary {
				primary = " (primary)"
			}
			fmt.Printf("%s %-8s %s%s\n", w.Address, w.WalletType, w.Label, primary)
		}
		return nil
	})
}

// statusCommand handles the status subcommand
func statusCommand(c *cli.Context) error {
	return withClient(c, func(client *walletClient.Client, _ types.WalletKind) error {
		sess, err := client.Session()
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}
		if sess == nil {
			fmt.Println("Not signed in")
			return nil
		}
		fmt.Printf("Signed in as %s (%s)\n", sess.Address, sess.WalletKind)
		printExpiry(sess)
		return nil
	})
}

// logoutCommand handles the logout subcommand
func logoutCommand(c *cli.Context) error {
	return withClient(c, func(client *walletClient.Client, _ types.WalletKind) error {
		if err := client.Logout(); err != nil {
			return fmt.Errorf("failed to log out: %w", err)
		}
		fmt.Println("👋 Signed out")
		return nil
	})
}

func printExpiry(sess *types.Session) {
	if sess.ExpiresAt == 0 {
		fmt.Println("   session has no expiry")
		return
	}
	fmt.Printf("   expires %s\n", time.Unix(sess.ExpiresAt, 0).UTC().Format(time.RFC3339))
}
