package testutil

import (
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// FakeWeb3Signer serves eth_accounts and eth_sign over JSON-RPC for one key
type FakeWeb3Signer struct {
	Server  *httptest.Server
	Key     *ecdsa.PrivateKey
	Address string

	mu        sync.Mutex
	signError string
	methods   []string
}

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []string        `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// NewFakeWeb3Signer starts a signer holding a fresh key
func NewFakeWeb3Signer(t *testing.T) *FakeWeb3Signer {
	t.Helper()
	key, address := NewKey(t)
	fs := &FakeWeb3Signer{Key: key, Address: address}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Server.Close)
	return fs
}

// URL is the JSON-RPC endpoint
func (fs *FakeWeb3Signer) URL() string {
	return fs.Server.URL
}

// Methods returns the JSON-RPC methods called so far
func (fs *FakeWeb3Signer) Methods() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.methods...)
}

// SetSignError makes eth_sign fail with msg; empty restores signing
func (fs *FakeWeb3Signer) SetSignError(msg string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.signError = msg
}

func (fs *FakeWeb3Signer) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fs.mu.Lock()
	fs.methods = append(fs.methods, req.Method)
	signErr := fs.signError
	fs.mu.Unlock()

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "eth_accounts":
		resp.Result = []string{fs.Address}
	case "eth_sign":
		switch {
		case signErr != "":
			resp.Error = &rpcError{Code: -32000, Message: signErr}
		case len(req.Params) != 2 || !strings.EqualFold(req.Params[0], fs.Address):
			resp.Error = &rpcError{Code: -32602, Message: "unknown signer"}
		default:
			data, err := hexutil.Decode(req.Params[1])
			if err != nil {
				resp.Error = &rpcError{Code: -32602, Message: "invalid data"}
				break
			}
			sig, err := crypto.Sign(accounts.TextHash(data), fs.Key)
			if err != nil {
				resp.Error = &rpcError{Code: -32000, Message: err.Error()}
				break
			}
			sig[crypto.RecoveryIDOffset] += 27
			resp.Result = hexutil.Encode(sig)
		}
	default:
		resp.Error = &rpcError{Code: -32601, Message: "method not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
