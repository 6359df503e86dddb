package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType names an AEAD algorithm.
type CipherType string

const (
	// CipherChaCha20Poly1305 is the default used for stored secrets.
	CipherChaCha20Poly1305 CipherType = "chacha20-poly1305"
	// CipherXChaCha20Poly1305 is the extended-nonce variant.
	CipherXChaCha20Poly1305 CipherType = "xchacha20-poly1305"
	// CipherAES256GCM is offered for hosts with AES-NI.
	CipherAES256GCM CipherType = "aes-256-gcm"
)

// Cipher is an AEAD that prepends a fresh random nonce to every
// ciphertext, so no nonce bookkeeping leaks into callers.
type Cipher struct {
	aead       cipher.AEAD
	cipherType CipherType
}

// NewCipher builds a cipher of the named type. Every supported
// algorithm takes a 32-byte key.
func NewCipher(t CipherType, key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid key size: got %d, want 32", len(key))
	}

	var aead cipher.AEAD
	var err error
	switch t {
	case CipherChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	case CipherXChaCha20Poly1305:
		aead, err = chacha20poly1305.NewX(key)
	case CipherAES256GCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	default:
		return nil, fmt.Errorf("unknown cipher type: %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s cipher: %w", t, err)
	}

	return &Cipher{aead: aead, cipherType: t}, nil
}

// Encrypt seals plaintext as [nonce][ciphertext+tag].
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt, authenticating the payload.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(ciphertext) < ns {
		return nil, fmt.Errorf("ciphertext too short: got %d, need at least %d", len(ciphertext), ns)
	}
	plaintext, err := c.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// Type returns the algorithm name.
func (c *Cipher) Type() CipherType {
	return c.cipherType
}

// NonceSize returns the length of the nonce prepended to ciphertexts.
func (c *Cipher) NonceSize() int {
	return c.aead.NonceSize()
}
