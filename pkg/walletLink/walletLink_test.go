package walletLink

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/backend"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/testutil"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) Token() (string, error) { return s.token, s.err }

type staticState types.ConnectionState

func (s staticState) State() types.ConnectionState { return types.ConnectionState(s) }

var connectedState = staticState{
	Address:    testutil.TestAddress,
	Connected:  true,
	WalletKind: types.WalletKindTokenPocket,
}

func newLinker(t *testing.T, fb *testutil.FakeBackend, tokens TokenSource, state StateSource) *Linker {
	t.Helper()
	client, err := backend.NewClient(&backend.Config{
		BaseURL:        fb.URL(),
		RequestTimeout: time.Second,
		RateLimit:      1000,
		RateBurst:      1000,
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)
	l, err := NewLinker(&Config{Backend: client, Tokens: tokens, Connection: state, Logger: zap.NewNop()})
	require.NoError(t, err)
	return l
}

func TestNewLinker_Validation(t *testing.T) {
	_, err := NewLinker(nil)
	assert.EqualError(t, err, "config cannot be nil")
	_, err = NewLinker(&Config{})
	assert.EqualError(t, err, "backend is required")
}

func TestLinkWallet(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	l := newLinker(t, fb, staticToken{token: "t1"}, connectedState)

	require.NoError(t, l.LinkWallet(context.Background(), true))

	reqs := fb.RequestsTo(testutil.PathLinkWallet)
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer t1", reqs[0].Authorization)
	assert.Equal(t, testutil.TestAddress, reqs[0].Body["address"])
	assert.Equal(t, "tp", reqs[0].Body["wallet_type"])
	assert.Equal(t, true, reqs[0].Body["is_primary"])
}

func TestLinkWallet_Preconditions(t *testing.T) {
	fb := testutil.NewFakeBackend(t)

	t.Run("no token", func(t *testing.T) {
		l := newLinker(t, fb, staticToken{err: authErrors.NotAuthenticated(nil)}, connectedState)
		err := l.LinkWallet(context.Background(), false)
		assert.ErrorIs(t, err, authErrors.ErrNotAuthenticated)
		assert.Equal(t, authErrors.MsgNotLoggedIn, err.Error())
	})

	t.Run("empty token", func(t *testing.T) {
		l := newLinker(t, fb, staticToken{}, connectedState)
		assert.ErrorIs(t, l.LinkWallet(context.Background(), false), authErrors.ErrNotAuthenticated)
	})

	t.Run("not connected", func(t *testing.T) {
		l := newLinker(t, fb, staticToken{token: "t1"}, staticState{})
		err := l.LinkWallet(context.Background(), false)
		assert.ErrorIs(t, err, authErrors.ErrNotConnected)
		assert.Equal(t, authErrors.MsgNotConnected, err.Error())
	})

	assert.Empty(t, fb.Requests())
}

func TestLinkWallet_BackendCodes(t *testing.T) {
	tests := []struct {
		code    string
		status  int
		kind    error
		message string
	}{
		{code: types.ErrCodeWalletBound, status: http.StatusConflict, kind: authErrors.ErrAuthRejected, message: authErrors.MsgWalletAlreadyLinked},
		{code: types.ErrCodeRateLimited, status: http.StatusTooManyRequests, kind: authErrors.ErrNetworkFailure, message: authErrors.MsgTooManyRequests},
		{code: "WEB3_999", status: http.StatusBadRequest, kind: authErrors.ErrNetworkFailure, message: authErrors.MsgOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fb := testutil.NewFakeBackend(t)
			fb.LinkHandler = func(w http.ResponseWriter, _ *http.Request) {
				testutil.WriteJSON(w, tt.status, types.ErrorResponse{Code: tt.code, Message: "raw backend text"})
			}
			l := newLinker(t, fb, staticToken{token: "t1"}, connectedState)

			err := l.LinkWallet(context.Background(), false)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.Error())
			assert.NotContains(t, err.Error(), "raw backend text")
		})
	}
}

func TestLinkWallet_ExpiredToken(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	l := newLinker(t, fb, staticToken{token: "stale"}, connectedState)

	err := l.LinkWallet(context.Background(), false)
	assert.ErrorIs(t, err, authErrors.ErrNotAuthenticated)
}

func TestUnlinkWallet(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	// no connection needed
	l := newLinker(t, fb, staticToken{token: "t1"}, staticState{})

	require.NoError(t, l.UnlinkWallet(context.Background(), " "+testutil.TestAddress+"\n"))

	reqs := fb.RequestsTo(testutil.PathWalletPrefix + testutil.TestAddress)
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodDelete, reqs[0].Method)
	assert.Equal(t, "Bearer t1", reqs[0].Authorization)
}

func TestLinkAndUnlink_AnySuccessStatus(t *testing.T) {
	tests := []struct {
		name  string
		write func(w http.ResponseWriter)
	}{
		{name: "204 no content", write: func(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }},
		{name: "200 empty object", write: func(w http.ResponseWriter) { testutil.WriteJSON(w, http.StatusOK, map[string]any{}) }},
		{name: "200 success false", write: func(w http.ResponseWriter) {
			testutil.WriteJSON(w, http.StatusOK, types.LinkWalletResponse{Success: false})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := testutil.NewFakeBackend(t)
			fb.LinkHandler = func(w http.ResponseWriter, _ *http.Request) { tt.write(w) }
			fb.UnlinkHandler = func(w http.ResponseWriter, _ *http.Request) { tt.write(w) }
			l := newLinker(t, fb, staticToken{token: "t1"}, connectedState)

			require.NoError(t, l.LinkWallet(context.Background(), false))
			require.NoError(t, l.UnlinkWallet(context.Background(), testutil.TestAddress))
			assert.Len(t, fb.RequestsTo(testutil.PathLinkWallet), 1)
		})
	}
}

func TestUnlinkWallet_InvalidAddress(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	l := newLinker(t, fb, staticToken{token: "t1"}, connectedState)

	for _, addr := range []string{"", "0x123", "abcdef0123456789abcdef0123456789abcdef0123", "0xzzcdef0123456789abcdef0123456789abcdef01"} {
		err := l.UnlinkWallet(context.Background(), addr)
		assert.ErrorIs(t, err, authErrors.ErrFormatInvalid, "address %q", addr)
	}
	assert.Empty(t, fb.Requests())
}

func TestUnlinkWallet_BackendCodes(t *testing.T) {
	for code, msg := range map[string]string{
		types.ErrCodeWalletNotBound: authErrors.MsgWalletNotLinked,
		types.ErrCodeCannotUnbind:   authErrors.MsgWalletCannotUnlink,
	} {
		fb := testutil.NewFakeBackend(t)
		fb.UnlinkHandler = func(w http.ResponseWriter, _ *http.Request) {
			testutil.WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Code: code})
		}
		l := newLinker(t, fb, staticToken{token: "t1"}, connectedState)

		err := l.UnlinkWallet(context.Background(), testutil.TestAddress)
		assert.ErrorIs(t, err, authErrors.ErrAuthRejected)
		assert.Equal(t, msg, err.Error())
	}
}

func TestListWallets(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Wallets = []types.LinkedWallet{
		{ID: "w1", Address: testutil.TestAddress, WalletType: "metamask", IsPrimary: true},
		{ID: "w2", Address: "0x1111111111111111111111111111111111111111", WalletType: "tp"},
	}
	l := newLinker(t, fb, staticToken{token: "t1"}, staticState{})

	wallets, err := l.ListWallets(context.Background())
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.True(t, wallets[0].IsPrimary)
	assert.Equal(t, "w2", wallets[1].ID)

	_, err = newLinker(t, fb, staticToken{}, staticState{}).ListWallets(context.Background())
	assert.ErrorIs(t, err, authErrors.ErrNotAuthenticated)
}
