package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the byte length of a Solana public key.
const PublicKeyLength = 32

// ValidateWalletAddress checks that addr is a base58 32-byte key on the ed25519 curve.
// Program-derived addresses are off-curve and cannot sign, so they are not wallets.
func ValidateWalletAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}

	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode base58: %w", err)
	}
	if len(raw) != PublicKeyLength {
		return fmt.Errorf("decoded length %d, want %d", len(raw), PublicKeyLength)
	}

	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("not an ed25519 point: %w", err)
	}
	return nil
}
