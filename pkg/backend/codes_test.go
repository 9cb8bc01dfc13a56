package backend

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

func TestMessageForCode(t *testing.T) {
	tests := []struct {
		code string
		want string
		ok   bool
	}{
		{code: types.ErrCodeWalletBound, want: authErrors.MsgWalletAlreadyLinked, ok: true},
		{code: types.ErrCodeWalletNotBound, want: authErrors.MsgWalletNotLinked, ok: true},
		{code: types.ErrCodeCannotUnbind, want: authErrors.MsgWalletCannotUnlink, ok: true},
		{code: types.ErrCodeRateLimited, want: authErrors.MsgTooManyRequests, ok: true},
		{code: types.ErrCodeNonceExpired, want: authErrors.MsgSignatureExpired, ok: true},
		{code: types.ErrCodeInvalidSignature, want: authErrors.MsgAuthFailed, ok: true},
		{code: "WEB3_999", ok: false},
		{code: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := MessageForCode(tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(authErrors.NetworkFailure(&StatusError{StatusCode: http.StatusTooManyRequests})))
	assert.True(t, IsRateLimited(authErrors.NetworkFailure(&StatusError{StatusCode: http.StatusBadRequest, Code: types.ErrCodeRateLimited})))
	assert.False(t, IsRateLimited(authErrors.NetworkFailure(&StatusError{StatusCode: http.StatusBadRequest})))
	assert.False(t, IsRateLimited(errors.New("boom")))
}

func TestUserError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    error
		message string
	}{
		{
			name:    "known code",
			err:     authErrors.NetworkFailure(&StatusError{StatusCode: http.StatusConflict, Code: types.ErrCodeWalletBound}),
			kind:    authErrors.ErrAuthRejected,
			message: authErrors.MsgWalletAlreadyLinked,
		},
		{
			name:    "rate limited",
			err:     authErrors.NetworkFailure(&StatusError{StatusCode: http.StatusTooManyRequests}),
			kind:    authErrors.ErrNetworkFailure,
			message: authErrors.MsgTooManyRequests,
		},
		{
			name:    "unknown code",
			err:     authErrors.NetworkFailure(&StatusError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL"}),
			kind:    authErrors.ErrNetworkFailure,
			message: authErrors.MsgOperationFailed,
		},
		{
			name:    "timeout passes through",
			err:     authErrors.Timeout(errors.New("deadline")),
			kind:    authErrors.ErrTimeout,
			message: authErrors.MsgRequestTimedOut,
		},
		{
			name:    "unclassified",
			err:     errors.New("connection reset by peer"),
			kind:    authErrors.ErrNetworkFailure,
			message: authErrors.MsgOperationFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserError(tt.err)
			assert.ErrorIs(t, got, tt.kind)
			assert.Equal(t, tt.message, got.Error())
		})
	}
	assert.NoError(t, UserError(nil))
}
