// Package provider models the wallet object a browser injects into the page.
//
// Only Request is mandatory. Everything else a real injected object may or may
// not expose is an optional interface, discovered with a type assertion the same
// way io.WriterTo is: FlagReader for self-declared flags such as isMetaMask,
// MultiProvider for the providers list some extensions install when several
// wallets compete, ChainReader, MethodProber and EventSource.
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/event"
)

// JSON-RPC methods used by the authentication flow
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodPersonalSign    = "personal_sign"
	MethodSendTransaction = "eth_sendTransaction"
	MethodChainID         = "eth_chainId"
)

// Self-declared capability flags
const (
	FlagIsMetaMask    = "isMetaMask"
	FlagIsTokenPocket = "isTokenPocket"
	FlagIsTp          = "isTp"
)

// Provider is the injected wallet object
type Provider interface {
	// Request performs an EIP-1193 request. Implementations may block until a
	// human approves or rejects a prompt.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// FlagReader exposes self-declared boolean flags. declared is false when the
// flag is not present at all, which differs from a flag explicitly set to false.
type FlagReader interface {
	Flag(name string) (value bool, declared bool)
}

// MultiProvider exposes the list of concurrently injected providers
type MultiProvider interface {
	Providers() []Provider
}

// ChainReader exposes the provider's chainId property
type ChainReader interface {
	// ChainID returns the chain id and whether it is exposed as a string
	ChainID() (string, bool)
}

// MethodProber reports whether a JSON-RPC method is callable on the provider
type MethodProber interface {
	SupportsMethod(method string) bool
}

// EventSource delivers accountsChanged and chainChanged notifications
type EventSource interface {
	SubscribeAccountsChanged(ch chan<- []string) event.Subscription
	SubscribeChainChanged(ch chan<- string) event.Subscription
}

// FlagTrue reports whether p declares name and sets it to true
func FlagTrue(p Provider, name string) bool {
	fr, ok := p.(FlagReader)
	if !ok {
		return false
	}
	v, declared := fr.Flag(name)
	return declared && v
}

// RequestAccounts asks the provider for account access
func RequestAccounts(ctx context.Context, p Provider) ([]string, error) {
	raw, err := p.Request(ctx, MethodRequestAccounts)
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	return accounts, nil
}

// PersonalSign requests a personal_sign signature. params must already be in
// the order the wallet kind expects.
func PersonalSign(ctx context.Context, p Provider, params ...any) (string, error) {
	raw, err := p.Request(ctx, MethodPersonalSign, params...)
	if err != nil {
		return "", err
	}
	var sig string
	if err := json.Unmarshal(raw, &sig); err != nil {
		return "", fmt.Errorf("failed to decode signature: %w", err)
	}
	return sig, nil
}

// SplitPersonalSignParams accepts both [message, address] and [address, message]
// and returns the message and the address, using isSelf to tell which
// parameter names the signing account
func SplitPersonalSignParams(params []any, isSelf func(address string) bool) (message string, address string, err error) {
	if len(params) != 2 {
		return "", "", &RPCError{Code: CodeInvalidParams, Message: "personal_sign expects two params"}
	}
	first, ok1 := params[0].(string)
	second, ok2 := params[1].(string)
	if !ok1 || !ok2 {
		return "", "", &RPCError{Code: CodeInvalidParams, Message: "personal_sign params must be strings"}
	}
	switch {
	case isSelf(second):
		return first, second, nil
	case isSelf(first):
		return second, first, nil
	default:
		return "", "", &RPCError{Code: CodeUnauthorized, Message: "requested account is not authorized"}
	}
}
