package encryption

import (
	"strings"
	"testing"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManagerWithChaCha20Poly1305(testKey(t))
	if err != nil {
		t.Fatalf("NewManagerWithChaCha20Poly1305() error = %v", err)
	}
	return manager
}

func TestNewManager(t *testing.T) {
	cipher, err := NewCipher(CipherAES256GCM, testKey(t))
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}

	manager := NewManager(cipher)
	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}
	if manager.CipherType() != CipherAES256GCM {
		t.Errorf("CipherType() = %v, want %v", manager.CipherType(), CipherAES256GCM)
	}
}

func TestNewManagerWithChaCha20Poly1305(t *testing.T) {
	manager := testManager(t)
	if manager.CipherType() != CipherChaCha20Poly1305 {
		t.Errorf("CipherType() = %v, want %v", manager.CipherType(), CipherChaCha20Poly1305)
	}

	if _, err := NewManagerWithChaCha20Poly1305([]byte("short")); err == nil {
		t.Error("NewManagerWithChaCha20Poly1305() expected error for short key")
	}
}

func TestSealOpenRoundtrip(t *testing.T) {
	manager := testManager(t)

	cases := []string{
		"",
		"session=abc123; path=/",
		"multi\nline\ncookie\njar",
		strings.Repeat("x", 64*1024),
	}

	for _, plaintext := range cases {
		sealed, err := manager.SealString(plaintext)
		if err != nil {
			t.Fatalf("SealString() error = %v", err)
		}
		if sealed == plaintext && plaintext != "" {
			t.Error("SealString() returned plaintext unchanged")
		}

		opened, err := manager.OpenString(sealed)
		if err != nil {
			t.Fatalf("OpenString() error = %v", err)
		}
		if opened != plaintext {
			t.Errorf("OpenString() = %q, want %q", opened, plaintext)
		}
	}
}

func TestSealProducesDistinctCiphertexts(t *testing.T) {
	manager := testManager(t)

	a, err := manager.SealString("same input")
	if err != nil {
		t.Fatalf("SealString() error = %v", err)
	}
	b, err := manager.SealString("same input")
	if err != nil {
		t.Fatalf("SealString() error = %v", err)
	}
	if a == b {
		t.Error("SealString() produced identical ciphertexts; nonce reuse?")
	}
}

func TestOpenWithWrongKey(t *testing.T) {
	manager1 := testManager(t)
	manager2 := testManager(t)

	sealed, err := manager1.SealString("secret")
	if err != nil {
		t.Fatalf("SealString() error = %v", err)
	}
	if _, err := manager2.OpenString(sealed); err == nil {
		t.Error("OpenString() expected error when using wrong key")
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	manager := testManager(t)

	sealed, err := manager.SealString("secret")
	if err != nil {
		t.Fatalf("SealString() error = %v", err)
	}

	flipped := []byte(sealed)
	if flipped[0] == 'A' {
		flipped[0] = 'B'
	} else {
		flipped[0] = 'A'
	}
	if _, err := manager.OpenString(string(flipped)); err == nil {
		t.Error("OpenString() expected error for tampered ciphertext")
	}
}

func TestOpenRejectsInvalidBase64(t *testing.T) {
	manager := testManager(t)
	if _, err := manager.OpenString("not base64 at all!!!"); err == nil {
		t.Error("OpenString() expected error for invalid base64")
	}
}
