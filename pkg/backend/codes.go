package backend

import (
	"errors"
	"net/http"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// codeMessages maps backend error codes to the user-safe message shown for them
var codeMessages = map[string]string{
	types.ErrCodeInvalidSignature: authErrors.MsgAuthFailed,
	types.ErrCodeAddressMismatch:  authErrors.MsgAuthFailed,
	types.ErrCodeNonceExpired:     authErrors.MsgSignatureExpired,
	types.ErrCodeNonceNotFound:    authErrors.MsgSignatureExpired,
	types.ErrCodeNonceAlreadyUsed: authErrors.MsgSignatureExpired,
	types.ErrCodeWalletBound:      authErrors.MsgWalletAlreadyLinked,
	types.ErrCodeWalletNotBound:   authErrors.MsgWalletNotLinked,
	types.ErrCodeCannotUnbind:     authErrors.MsgWalletCannotUnlink,
	types.ErrCodeRateLimited:      authErrors.MsgTooManyRequests,
}

// MessageForCode returns the user-safe message for a backend error code
func MessageForCode(code string) (string, bool) {
	msg, ok := codeMessages[code]
	return msg, ok
}

// IsRateLimited reports whether err is the backend asking the client to slow down
func IsRateLimited(err error) bool {
	statusErr, ok := StatusOf(err)
	if !ok {
		return false
	}
	return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.Code == types.ErrCodeRateLimited
}

// UserError turns a client error into the error shown to the user: known
// backend codes become AuthRejected with their message, rate limiting keeps
// the retryable NetworkFailure kind with its own message, and anything already
// classified passes through.
func UserError(err error) error {
	if err == nil {
		return nil
	}
	if statusErr, ok := StatusOf(err); ok {
		if IsRateLimited(err) {
			return authErrors.New(authErrors.KindNetworkFailure, authErrors.MsgTooManyRequests, statusErr)
		}
		if msg, known := MessageForCode(statusErr.Code); known {
			return authErrors.AuthRejected(msg, statusErr)
		}
	}
	var classified *authErrors.Error
	if errors.As(err, &classified) {
		return classified
	}
	return authErrors.NetworkFailure(err)
}
