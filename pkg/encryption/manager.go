package encryption

import (
	"encoding/base64"
	"fmt"
)

// Manager handles encryption and decryption operations.
type Manager struct {
	cipher *Cipher
}

// NewManager creates a new encryption manager with the specified cipher.
func NewManager(cipher *Cipher) *Manager {
	return &Manager{
		cipher: cipher,
	}
}

// NewManagerWithChaCha20Poly1305 creates a manager using
// ChaCha20-Poly1305, the default for stored secrets.
func NewManagerWithChaCha20Poly1305(key []byte) (*Manager, error) {
	cipher, err := NewCipher(CipherChaCha20Poly1305, key)
	if err != nil {
		return nil, err
	}
	return NewManager(cipher), nil
}

// CipherType returns the cipher type used by this manager.
func (m *Manager) CipherType() CipherType {
	return m.cipher.Type()
}

// SealString encrypts a plain string for storage as a settings value:
// base64 of nonce+ciphertext.
func (m *Manager) SealString(plaintext string) (string, error) {
	ciphertext, err := m.cipher.Encrypt([]byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// OpenString reverses SealString.
func (m *Manager) OpenString(encoded string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	plaintext, err := m.cipher.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
