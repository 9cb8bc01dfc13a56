package localProvider

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"go.uber.org/zap"
)

// ethCoinType is the SLIP-44 coin type for Ethereum
const ethCoinType = 60

// NewLocalProviderFromMnemonic derives the key at m/44'/60'/0'/0/{index} from
// a BIP-39 mnemonic, the path MetaMask and TokenPocket use for their accounts
func NewLocalProviderFromMnemonic(mnemonic string, index uint32, cfg *LocalProviderConfig, logger *zap.Logger) (*LocalProvider, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	keyBytes, err := deriveKey(bip39.NewSeed(mnemonic, ""), index)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	key, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("derived key is not a valid secp256k1 key: %w", err)
	}
	return NewLocalProvider(key, cfg, logger)
}

func deriveKey(seed []byte, index uint32) ([]byte, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	path := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + ethCoinType,
		bip32.FirstHardenedChild,
		0,
		index,
	}
	for _, child := range path {
		key, err = key.NewChildKey(child)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", child, err)
		}
	}
	return key.Key, nil
}
