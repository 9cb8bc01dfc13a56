package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/event"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
)

// FakeProvider is a scriptable stand-in for an injected wallet object
type FakeProvider struct {
	mu sync.Mutex

	Flags         map[string]bool
	SubProviders  []provider.Provider
	Chain         string
	ChainIsString bool
	// Methods lists supported methods; nil means every method is supported
	Methods []string

	// PanicOnProbe makes Providers, ChainID and SupportsMethod panic
	PanicOnProbe bool
	// PanicOnFlags makes Flag panic
	PanicOnFlags bool

	Accounts    []string
	AccountsErr error
	// AccountsGate, when set, holds eth_requestAccounts until it is closed or receives
	AccountsGate chan struct{}

	// Signature is returned by personal_sign unless SignErr is set
	Signature string
	SignErr   error
	// SignFunc overrides Signature/SignErr
	SignFunc func(params []any) (string, error)

	calls []FakeCall

	accountsFeed event.Feed
	chainFeed    event.Feed
}

// FakeCall records one Request invocation
type FakeCall struct {
	Method string
	Params []any
}

var (
	_ provider.Provider      = (*FakeProvider)(nil)
	_ provider.FlagReader    = (*FakeProvider)(nil)
	_ provider.MultiProvider = (*FakeProvider)(nil)
	_ provider.ChainReader   = (*FakeProvider)(nil)
	_ provider.MethodProber  = (*FakeProvider)(nil)
	_ provider.EventSource   = (*FakeProvider)(nil)
)

// NewMetaMaskProvider returns a fake provider declaring isMetaMask with one account
func NewMetaMaskProvider(account string) *FakeProvider {
	return &FakeProvider{
		Flags:    map[string]bool{provider.FlagIsMetaMask: true},
		Accounts: []string{account},
	}
}

// NewTokenPocketProvider returns a fake provider declaring isTokenPocket with one account
func NewTokenPocketProvider(account string) *FakeProvider {
	return &FakeProvider{
		Flags:    map[string]bool{provider.FlagIsTokenPocket: true},
		Accounts: []string{account},
	}
}

func (f *FakeProvider) Flag(name string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PanicOnFlags {
		panic("flag getter exploded")
	}
	v, ok := f.Flags[name]
	return v, ok
}

func (f *FakeProvider) Providers() []provider.Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PanicOnProbe {
		panic("providers getter exploded")
	}
	return f.SubProviders
}

func (f *FakeProvider) ChainID() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PanicOnProbe {
		panic("chainId getter exploded")
	}
	return f.Chain, f.ChainIsString
}

func (f *FakeProvider) SupportsMethod(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PanicOnProbe {
		panic("method probe exploded")
	}
	if f.Methods == nil {
		return true
	}
	for _, m := range f.Methods {
		if m == method {
			return true
		}
	}
	return false
}

func (f *FakeProvider) SubscribeAccountsChanged(ch chan<- []string) event.Subscription {
	return f.accountsFeed.Subscribe(ch)
}

func (f *FakeProvider) SubscribeChainChanged(ch chan<- string) event.Subscription {
	return f.chainFeed.Subscribe(ch)
}

// EmitAccountsChanged delivers an accountsChanged notification and returns
// how many subscribers received it
func (f *FakeProvider) EmitAccountsChanged(accounts ...string) int {
	return f.accountsFeed.Send(accounts)
}

// EmitChainChanged delivers a chainChanged notification
func (f *FakeProvider) EmitChainChanged(chainID string) int {
	return f.chainFeed.Send(chainID)
}

// Calls returns the recorded Request invocations
func (f *FakeProvider) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times method was requested
func (f *FakeProvider) CallCount(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *FakeProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Method: method, Params: params})
	gate := f.AccountsGate
	f.mu.Unlock()

	switch method {
	case provider.MethodRequestAccounts, provider.MethodAccounts:
		if gate != nil && method == provider.MethodRequestAccounts {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		f.mu.Lock()
		accounts, err := f.Accounts, f.AccountsErr
		f.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return json.Marshal(accounts)
	case provider.MethodPersonalSign:
		f.mu.Lock()
		signFunc, sig, err := f.SignFunc, f.Signature, f.SignErr
		f.mu.Unlock()
		if signFunc != nil {
			sig, err = signFunc(params)
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(sig)
	case provider.MethodChainID:
		return json.Marshal(f.Chain)
	default:
		return nil, &provider.RPCError{Code: provider.CodeUnsupportedMethod, Message: fmt.Sprintf("unsupported method %s", method)}
	}
}

// SetAccounts replaces the accounts returned by eth_requestAccounts
func (f *FakeProvider) SetAccounts(accounts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts = accounts
}
