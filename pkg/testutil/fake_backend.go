package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// Backend paths served by FakeBackend
const (
	PathGenerateNonce = "/auth/generate-nonce"
	PathAuthenticate  = "/auth/authenticate"
	PathLinkWallet    = "/wallet/link"
	PathListWallets   = "/wallet/list"
	PathWalletPrefix  = "/wallet/"
)

// FakeBackend is an httptest server implementing the wallet auth REST contract.
// Handlers can be overridden per test; every request is recorded.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest

	// Nonce and Message are returned by generate-nonce
	Nonce   string
	Message string
	// Token is returned by a successful authenticate call
	Token        string
	BoundWallets []string
	// BearerToken is what wallet endpoints require
	BearerToken string
	Wallets     []types.LinkedWallet

	// Optional overrides
	NonceHandler  http.HandlerFunc
	AuthHandler   http.HandlerFunc
	LinkHandler   http.HandlerFunc
	UnlinkHandler http.HandlerFunc
	ListHandler   http.HandlerFunc
}

// RecordedRequest is one request seen by FakeBackend
type RecordedRequest struct {
	Method        string
	Path          string
	Body          map[string]any
	Authorization string
	RequestID     string
	Traceparent   string
}

// NewFakeBackend starts a fake backend that is closed when the test ends
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		Nonce:       "n1",
		Message:     "Sign to login: n1",
		Token:       "t1",
		BearerToken: "t1",
	}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL is the base URL of the fake backend
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// Requests returns the recorded requests
func (fb *FakeBackend) Requests() []RecordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]RecordedRequest, len(fb.requests))
	copy(out, fb.requests)
	return out
}

// RequestsTo returns the recorded requests for path
func (fb *FakeBackend) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range fb.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (fb *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	rec := RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
		Traceparent:   r.Header.Get("traceparent"),
	}
	if r.Body != nil && r.ContentLength != 0 {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		rec.Body = body
	}
	fb.mu.Lock()
	fb.requests = append(fb.requests, rec)
	fb.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == PathGenerateNonce:
		fb.dispatch(fb.NonceHandler, fb.defaultNonce, w, r)
	case r.Method == http.MethodPost && r.URL.Path == PathAuthenticate:
		fb.dispatch(fb.AuthHandler, fb.defaultAuth, w, r)
	case r.Method == http.MethodPost && r.URL.Path == PathLinkWallet:
		fb.dispatch(fb.LinkHandler, fb.defaultLink, w, r)
	case r.Method == http.MethodGet && r.URL.Path == PathListWallets:
		fb.dispatch(fb.ListHandler, fb.defaultList, w, r)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, PathWalletPrefix):
		fb.dispatch(fb.UnlinkHandler, fb.defaultUnlink, w, r)
	default:
		WriteJSON(w, http.StatusNotFound, types.ErrorResponse{Code: "NOT_FOUND", Message: "not found"})
	}
}

func (fb *FakeBackend) dispatch(override, fallback http.HandlerFunc, w http.ResponseWriter, r *http.Request) {
	if override != nil {
		override(w, r)
		return
	}
	fallback(w, r)
}

func (fb *FakeBackend) defaultNonce(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, types.NonceResponse{Nonce: fb.Nonce, Message: fb.Message})
}

func (fb *FakeBackend) defaultAuth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, types.AuthResult{
		Success:      true,
		Message:      "ok",
		Token:        fb.Token,
		BoundWallets: fb.BoundWallets,
	})
}

func (fb *FakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+fb.BearerToken {
		WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Code: "AUTH_001", Message: "unauthorized"})
		return false
	}
	return true
}

func (fb *FakeBackend) defaultLink(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	WriteJSON(w, http.StatusOK, types.LinkWalletResponse{Success: true, Message: "linked"})
}

func (fb *FakeBackend) defaultUnlink(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	WriteJSON(w, http.StatusOK, types.UnlinkWalletResponse{
		Success: true,
		Message: "unlinked",
		Address: strings.TrimPrefix(r.URL.Path, PathWalletPrefix),
	})
}

func (fb *FakeBackend) defaultList(w http.ResponseWriter, r *http.Request) {
	if !fb.authorized(w, r) {
		return
	}
	WriteJSON(w, http.StatusOK, types.ListWalletsResponse{Success: true, Wallets: fb.Wallets})
}

// WriteJSON writes v with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
