package backend

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/testutil"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(&Config{
		BaseURL:        baseURL,
		RequestTimeout: timeout,
		RateLimit:      1000,
		RateBurst:      1000,
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "config cannot be nil"},
		{name: "missing base URL", cfg: &Config{Logger: zap.NewNop()}, wantErr: "base URL is required"},
		{name: "relative base URL", cfg: &Config{BaseURL: "/api/web3", Logger: zap.NewNop()}, wantErr: "not an absolute URL"},
		{name: "missing logger", cfg: &Config{BaseURL: "http://localhost:8080/api/web3"}, wantErr: "logger is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	c, err := NewClient(&Config{BaseURL: "http://localhost:8080/api/web3/", Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/web3", c.baseURL)
	assert.Equal(t, DefaultRequestTimeout, c.timeout)
}

func TestGenerateNonce(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	c := newTestClient(t, fb.URL(), time.Second)

	resp, err := c.GenerateNonce(context.Background(), &types.NonceRequest{
		Address:    testutil.TestAddress,
		WalletType: string(types.WalletKindTokenPocket),
	})
	require.NoError(t, err)
	assert.Equal(t, "n1", resp.Nonce)
	assert.Equal(t, "Sign to login: n1", resp.Message)

	reqs := fb.RequestsTo(testutil.PathGenerateNonce)
	require.Len(t, reqs, 1)
	assert.Equal(t, testutil.TestAddress, reqs[0].Body["address"])
	assert.Equal(t, "tp", reqs[0].Body["wallet_type"])
	assert.Empty(t, reqs[0].Authorization)
	_, err = uuid.Parse(reqs[0].RequestID)
	assert.NoError(t, err, "every request carries a uuid request id")
}

func TestAuthenticate(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.BoundWallets = []string{testutil.TestAddress}
	c := newTestClient(t, fb.URL(), time.Second)

	result, err := c.Authenticate(context.Background(), &types.AuthRequest{
		Address:    testutil.TestAddress,
		Signature:  "0xsig",
		Nonce:      "n1",
		WalletType: "metamask",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "t1", result.Token)
	assert.Equal(t, []string{testutil.TestAddress}, result.BoundWallets)

	reqs := fb.RequestsTo(testutil.PathAuthenticate)
	require.Len(t, reqs, 1)
	assert.Equal(t, "n1", reqs[0].Body["nonce"])
	assert.Equal(t, "0xsig", reqs[0].Body["signature"])
}

func TestAuthenticate_UnauthorizedIsRejection(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.AuthHandler = func(w http.ResponseWriter, _ *http.Request) {
		testutil.WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Message: "bad signature"})
	}
	c := newTestClient(t, fb.URL(), time.Second)

	result, err := c.Authenticate(context.Background(), &types.AuthRequest{Address: testutil.TestAddress})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "bad signature", result.Message)
	assert.Empty(t, result.Token)
}

func TestAuthenticate_UnauthorizedKeepsKnownCode(t *testing.T) {
	tests := []struct {
		code    string
		message string
	}{
		{code: types.ErrCodeNonceExpired, message: authErrors.MsgSignatureExpired},
		{code: types.ErrCodeNonceAlreadyUsed, message: authErrors.MsgSignatureExpired},
		{code: types.ErrCodeInvalidSignature, message: authErrors.MsgAuthFailed},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fb := testutil.NewFakeBackend(t)
			fb.AuthHandler = func(w http.ResponseWriter, _ *http.Request) {
				testutil.WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Code: tt.code, Message: "rejected"})
			}
			c := newTestClient(t, fb.URL(), time.Second)

			result, err := c.Authenticate(context.Background(), &types.AuthRequest{Address: testutil.TestAddress})
			require.Error(t, err)
			assert.Nil(t, result)

			statusErr, ok := StatusOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, statusErr.Code)

			userErr := UserError(err)
			assert.ErrorIs(t, userErr, authErrors.ErrAuthRejected)
			assert.Equal(t, tt.message, userErr.Error())
		})
	}
}

func TestNon2xxIsNetworkFailure(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.NonceHandler = func(w http.ResponseWriter, _ *http.Request) {
		testutil.WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Code: types.ErrCodeInvalidAddress, Message: "invalid address 0xzz"})
	}
	c := newTestClient(t, fb.URL(), time.Second)

	_, err := c.GenerateNonce(context.Background(), &types.NonceRequest{Address: "0xzz"})
	require.Error(t, err)
	assert.ErrorIs(t, err, authErrors.ErrNetworkFailure)
	assert.Equal(t, authErrors.MsgOperationFailed, err.Error())

	statusErr, ok := StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, types.ErrCodeInvalidAddress, statusErr.Code)
}

func TestNon2xxWithoutJSONBody(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.NonceHandler = func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}
	c := newTestClient(t, fb.URL(), time.Second)

	_, err := c.GenerateNonce(context.Background(), &types.NonceRequest{})
	require.Error(t, err)
	statusErr, ok := StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Empty(t, statusErr.Code)
}

func TestRequestTimeout(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.NonceHandler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	c := newTestClient(t, fb.URL(), 50*time.Millisecond)

	_, err := c.GenerateNonce(context.Background(), &types.NonceRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, authErrors.ErrTimeout)
	assert.Equal(t, authErrors.MsgRequestTimedOut, err.Error())

	var authErr *authErrors.Error
	require.ErrorAs(t, err, &authErr)
	assert.True(t, authErr.Retryable())
}

func TestUnreachableBackend(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	url := fb.URL()
	fb.Server.Close()
	c := newTestClient(t, url, time.Second)

	_, err := c.GenerateNonce(context.Background(), &types.NonceRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, authErrors.ErrNetworkFailure)
}

func TestWalletEndpoints(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Wallets = []types.LinkedWallet{{ID: "w1", Address: testutil.TestAddress, WalletType: "metamask", IsPrimary: true}}
	c := newTestClient(t, fb.URL(), time.Second)
	ctx := context.Background()

	link, err := c.LinkWallet(ctx, "t1", &types.LinkWalletRequest{Address: testutil.TestAddress, WalletType: "tp", IsPrimary: true})
	require.NoError(t, err)
	assert.True(t, link.Success)

	unlink, err := c.UnlinkWallet(ctx, "t1", testutil.TestAddress)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestAddress, unlink.Address)

	list, err := c.ListWallets(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list.Wallets, 1)
	assert.Equal(t, "w1", list.Wallets[0].ID)

	reqs := fb.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, true, reqs[0].Body["is_primary"])
	assert.Equal(t, http.MethodDelete, reqs[1].Method)
	assert.Equal(t, testutil.PathWalletPrefix+testutil.TestAddress, reqs[1].Path)
	assert.Equal(t, http.MethodGet, reqs[2].Method)
	for _, r := range reqs {
		assert.Equal(t, "Bearer t1", r.Authorization)
	}
}

func TestWalletEndpoints_BadToken(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	c := newTestClient(t, fb.URL(), time.Second)

	_, err := c.ListWallets(context.Background(), "expired")
	require.Error(t, err)
	statusErr, ok := StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestWalletEndpoints_BodyOptional(t *testing.T) {
	tests := []struct {
		name  string
		write func(w http.ResponseWriter)
	}{
		{name: "no content", write: func(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }},
		{name: "empty object", write: func(w http.ResponseWriter) { testutil.WriteJSON(w, http.StatusOK, map[string]any{}) }},
		{name: "empty 200", write: func(w http.ResponseWriter) { w.WriteHeader(http.StatusOK) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := testutil.NewFakeBackend(t)
			fb.LinkHandler = func(w http.ResponseWriter, _ *http.Request) { tt.write(w) }
			fb.UnlinkHandler = func(w http.ResponseWriter, _ *http.Request) { tt.write(w) }
			c := newTestClient(t, fb.URL(), time.Second)
			ctx := context.Background()

			link, err := c.LinkWallet(ctx, "t1", &types.LinkWalletRequest{Address: testutil.TestAddress, WalletType: "metamask"})
			require.NoError(t, err)
			assert.False(t, link.Success)

			_, err = c.UnlinkWallet(ctx, "t1", testutil.TestAddress)
			require.NoError(t, err)
		})
	}
}

func TestEmptyBodyStillFailsWhereRequired(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.NonceHandler = func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	c := newTestClient(t, fb.URL(), time.Second)

	_, err := c.GenerateNonce(context.Background(), &types.NonceRequest{Address: testutil.TestAddress})
	require.Error(t, err)
	assert.ErrorIs(t, err, authErrors.ErrNetworkFailure)
}
