package application

import (
	"encoding/hex"
	"fmt"

	"thirdcoast.systems/reframe/pkg/encryption"
)

// NewEncryptionManager builds the manager that seals fetcher cookies at
// rest. keyHex must be 64 hex characters (32 bytes).
func NewEncryptionManager(keyHex string) (*encryption.Manager, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY format (must be 64-char hex string): %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes (64 hex chars), got %d bytes", len(key))
	}

	manager, err := encryption.NewManagerWithChaCha20Poly1305(key)
	if err != nil {
		return nil, fmt.Errorf("create encryption manager: %w", err)
	}
	return manager, nil
}
