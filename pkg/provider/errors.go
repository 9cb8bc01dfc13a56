package provider

import (
	"errors"
	"fmt"
	"strings"
)

// EIP-1193 provider error codes
const (
	CodeUserRejectedRequest = 4001
	CodeUnauthorized        = 4100
	CodeUnsupportedMethod   = 4200
	CodeDisconnected        = 4900
	CodeChainDisconnected   = 4901

	CodeInvalidParams = -32602
)

// RPCError is an error returned by a provider request
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrUserRejected is the canonical user rejection
var ErrUserRejected = &RPCError{Code: CodeUserRejectedRequest, Message: "User rejected the request."}

// rejection phrases wallets use when they do not set the 4001 code
var rejectionPhrases = []string{
	"user denied",
	"user rejected",
	"user cancelled",
	"user canceled",
}

// IsUserRejection reports whether err means a human declined a wallet prompt
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == CodeUserRejectedRequest {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range rejectionPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
