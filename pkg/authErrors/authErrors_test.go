package authErrors

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError_DoesNotLeakCause(t *testing.T) {
	cause := errors.New("MetaMask RPC Error: internal json-rpc at 0xdeadbeef <script>")
	err := FormatInvalid(cause)

	assert.Equal(t, MsgOperationFailed, err.Error())
	assert.Equal(t, MsgOperationFailed, fmt.Sprintf("%v", err))
	assert.Equal(t, MsgOperationFailed, fmt.Sprintf("%+v", err))
	assert.NotContains(t, fmt.Sprintf("%s", err), "deadbeef")

	// the cause is still reachable for logging
	assert.Equal(t, cause, pkgerrors.Cause(err))
}

func TestError_IsMatchesKind(t *testing.T) {
	err := UserRejected(errors.New("User denied message signature"))
	assert.True(t, errors.Is(err, ErrUserRejected))
	assert.False(t, errors.Is(err, ErrNetworkFailure))

	wrapped := fmt.Errorf("connect: %w", err)
	assert.True(t, errors.Is(wrapped, ErrUserRejected))
	assert.Equal(t, KindUserRejected, KindOf(wrapped))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, MsgOperationFailed, UserMessage(errors.New("raw backend text")))
	assert.Equal(t, MsgUserCancelled, UserMessage(UserRejected(nil)))
	assert.Equal(t, MsgRequestTimedOut, UserMessage(Timeout(nil)))
	assert.Equal(t, MsgAuthFailed, UserMessage(AuthRejected("", nil)))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Timeout(nil).Retryable())
	assert.True(t, NetworkFailure(nil).Retryable())
	assert.False(t, UserRejected(nil).Retryable())
	assert.False(t, FormatInvalid(nil).Retryable())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "ProviderAbsent", KindProviderAbsent.String())
	assert.Equal(t, "Superseded", KindSuperseded.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}
