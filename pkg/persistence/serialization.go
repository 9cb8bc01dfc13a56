package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// MarshalSession serializes a Session to JSON bytes.
func MarshalSession(s *types.Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot marshal nil Session")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Session to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalSession deserializes a Session from JSON bytes.
func UnmarshalSession(data []byte) (*types.Session, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var s types.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to Session: %w", err)
	}

	return &s, nil
}

// CopySession returns a deep copy of s
func CopySession(s *types.Session) *types.Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.BoundWallets != nil {
		out.BoundWallets = append([]string(nil), s.BoundWallets...)
	}
	return &out
}
