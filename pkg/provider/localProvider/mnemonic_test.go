package localProvider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLocalProviderFromMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		index    uint32
		want     string
	}{
		{
			name:     "hardhat account 0",
			mnemonic: "test test test test test test test test test test test junk",
			want:     "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		},
		{
			name:     "hardhat account 1",
			mnemonic: "test test test test test test test test test test test junk",
			index:    1,
			want:     "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		},
		{
			name:     "extra whitespace",
			mnemonic: "  abandon abandon abandon abandon abandon abandon\nabandon abandon abandon abandon abandon about ",
			want:     "0x9858EfFD232B4033E47d90003D41EC34EcaEda94",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lp, err := NewLocalProviderFromMnemonic(tt.mnemonic, tt.index, nil, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, lp.Address().Hex())
		})
	}
}

func TestNewLocalProviderFromMnemonic_Invalid(t *testing.T) {
	_, err := NewLocalProviderFromMnemonic("test test test", 0, nil, zap.NewNop())
	assert.EqualError(t, err, "invalid mnemonic")

	_, err = NewLocalProviderFromMnemonic("zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo", 0, nil, zap.NewNop())
	assert.Error(t, err, "bad checksum")
}
