package web3signer

import (
	"context"
)

// IWeb3Signer is the part of the Web3Signer JSON-RPC API a wallet needs
type IWeb3Signer interface {
	// EthAccounts returns the accounts the signer holds keys for.
	// This corresponds to the eth_accounts JSON-RPC method.
	EthAccounts(ctx context.Context) ([]string, error)

	// EthSign signs data with the EIP-191 personal message prefix.
	// This corresponds to the eth_sign JSON-RPC method; data is 0x hex.
	EthSign(ctx context.Context, account string, data string) (string, error)

	Close()
}

// Compile-time check to ensure Client implements IWeb3Signer
var _ IWeb3Signer = (*Client)(nil)
