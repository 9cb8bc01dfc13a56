// Package authErrors defines the failure taxonomy of the wallet authentication
// flow and the fixed vocabulary of messages that may be shown to a user.
//
// Error() on these values only ever returns a vocabulary message. The
// underlying provider or network error is kept as the cause so it can be
// logged, but it is never rendered by Error().
package authErrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindProviderAbsent
	KindProviderMismatch
	KindUserRejected
	KindFormatInvalid
	KindNetworkFailure
	KindAuthRejected
	KindNotConnected
	KindNotAuthenticated
	KindTimeout
	KindSuperseded
)

func (k Kind) String() string {
	switch k {
	case KindProviderAbsent:
		return "ProviderAbsent"
	case KindProviderMismatch:
		return "ProviderMismatch"
	case KindUserRejected:
		return "UserRejected"
	case KindFormatInvalid:
		return "FormatInvalid"
	case KindNetworkFailure:
		return "NetworkFailure"
	case KindAuthRejected:
		return "AuthRejected"
	case KindNotConnected:
		return "NotConnected"
	case KindNotAuthenticated:
		return "NotAuthenticated"
	case KindTimeout:
		return "Timeout"
	case KindSuperseded:
		return "Superseded"
	default:
		return "Unknown"
	}
}

// User-safe messages. Nothing else is ever returned from Error().
const (
	MsgUserCancelled       = "user cancelled the operation"
	MsgInstallWallet       = "please install the wallet extension"
	MsgOperationFailed     = "operation failed, please retry"
	MsgNotConnected        = "please connect a wallet first"
	MsgNotLoggedIn         = "please log in first"
	MsgRequestTimedOut     = "request timed out"
	MsgNetworkChanged      = "network changed, please re-authenticate"
	MsgAuthFailed          = "authentication failed"
	MsgWalletAlreadyLinked = "wallet already linked to another account"
	MsgWalletNotLinked     = "wallet is not linked"
	MsgWalletCannotUnlink  = "this wallet cannot be unlinked"
	MsgTooManyRequests     = "too many requests, please retry later"
	MsgSignatureExpired    = "signature request expired, please retry"
)

// Error is a classified failure carrying a user-safe message
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Cause returns the internal error that triggered this failure. It satisfies
// the causer interface used by github.com/pkg/errors.
func (e *Error) Cause() error {
	return e.cause
}

// Is matches another *Error by kind, which lets the package sentinels be used with errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether re-invoking the operation may succeed without user action
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindNetworkFailure
}

// Format keeps %+v and %v on the user-safe message so a cause cannot leak through fmt
func (e *Error) Format(s fmt.State, verb rune) {
	_, _ = fmt.Fprint(s, e.Message)
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Sentinels for errors.Is comparisons
var (
	ErrProviderAbsent   = &Error{Kind: KindProviderAbsent, Message: MsgInstallWallet}
	ErrProviderMismatch = &Error{Kind: KindProviderMismatch, Message: MsgOperationFailed}
	ErrUserRejected     = &Error{Kind: KindUserRejected, Message: MsgUserCancelled}
	ErrFormatInvalid    = &Error{Kind: KindFormatInvalid, Message: MsgOperationFailed}
	ErrNetworkFailure   = &Error{Kind: KindNetworkFailure, Message: MsgOperationFailed}
	ErrAuthRejected     = &Error{Kind: KindAuthRejected, Message: MsgAuthFailed}
	ErrNotConnected     = &Error{Kind: KindNotConnected, Message: MsgNotConnected}
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated, Message: MsgNotLoggedIn}
	ErrTimeout          = &Error{Kind: KindTimeout, Message: MsgRequestTimedOut}
	ErrSuperseded       = &Error{Kind: KindSuperseded, Message: MsgOperationFailed}
)

func ProviderAbsent(cause error) *Error {
	return New(KindProviderAbsent, MsgInstallWallet, cause)
}

func ProviderMismatch(cause error) *Error {
	return New(KindProviderMismatch, MsgOperationFailed, cause)
}

func UserRejected(cause error) *Error {
	return New(KindUserRejected, MsgUserCancelled, cause)
}

func FormatInvalid(cause error) *Error {
	return New(KindFormatInvalid, MsgOperationFailed, cause)
}

func NetworkFailure(cause error) *Error {
	return New(KindNetworkFailure, MsgOperationFailed, cause)
}

// AuthRejected carries one of the vocabulary messages chosen from the backend error code
func AuthRejected(message string, cause error) *Error {
	if message == "" {
		message = MsgAuthFailed
	}
	return New(KindAuthRejected, message, cause)
}

func NotConnected() *Error {
	return New(KindNotConnected, MsgNotConnected, nil)
}

func NotAuthenticated(cause error) *Error {
	return New(KindNotAuthenticated, MsgNotLoggedIn, cause)
}

func Timeout(cause error) *Error {
	return New(KindTimeout, MsgRequestTimedOut, cause)
}

func Superseded() *Error {
	return New(KindSuperseded, MsgOperationFailed, nil)
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage returns the text that may be shown to a user for any error.
// Errors that were not classified collapse to the generic failure message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return MsgOperationFailed
}
