package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	flags    map[string]bool
	response json.RawMessage
	err      error
	method   string
	params   []any
}

func (s *stubProvider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	s.method = method
	s.params = params
	return s.response, s.err
}

func (s *stubProvider) Flag(name string) (bool, bool) {
	v, ok := s.flags[name]
	return v, ok
}

type bareProvider struct{}

func (bareProvider) Request(context.Context, string, ...any) (json.RawMessage, error) {
	return nil, nil
}

func TestFlagTrue(t *testing.T) {
	p := &stubProvider{flags: map[string]bool{FlagIsMetaMask: true, FlagIsTp: false}}
	assert.True(t, FlagTrue(p, FlagIsMetaMask))
	assert.False(t, FlagTrue(p, FlagIsTp))
	assert.False(t, FlagTrue(p, FlagIsTokenPocket))
	assert.False(t, FlagTrue(bareProvider{}, FlagIsMetaMask))
}

func TestRequestAccounts(t *testing.T) {
	p := &stubProvider{response: json.RawMessage(`["0xabc","0xdef"]`)}
	accounts, err := RequestAccounts(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc", "0xdef"}, accounts)
	assert.Equal(t, MethodRequestAccounts, p.method)

	p = &stubProvider{response: json.RawMessage(`{"not":"a list"}`)}
	_, err = RequestAccounts(context.Background(), p)
	require.Error(t, err)

	p = &stubProvider{err: ErrUserRejected}
	_, err = RequestAccounts(context.Background(), p)
	require.ErrorIs(t, err, ErrUserRejected)
}

func TestPersonalSign_PassesParamsInOrder(t *testing.T) {
	p := &stubProvider{response: json.RawMessage(`"0x1234"`)}
	sig, err := PersonalSign(context.Background(), p, "message", "0xaddress")
	require.NoError(t, err)
	assert.Equal(t, "0x1234", sig)
	assert.Equal(t, MethodPersonalSign, p.method)
	assert.Equal(t, []any{"message", "0xaddress"}, p.params)
}

func TestIsUserRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"4001", &RPCError{Code: CodeUserRejectedRequest, Message: "nope"}, true},
		{"wrapped 4001", fmt.Errorf("sign: %w", ErrUserRejected), true},
		{"metamask text", errors.New("MetaMask Message Signature: User denied message signature."), true},
		{"tp text", errors.New("user canceled"), true},
		{"other rpc error", &RPCError{Code: CodeUnauthorized, Message: "unauthorized"}, false},
		{"generic", errors.New("internal error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUserRejection(tt.err))
		})
	}
}
