package tokenstore

import (
	"strings"
	"testing"
)

var testKey = []byte(strings.Repeat("0123456789abcdef", 2))

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	sealed, err := c.Encrypt("IGQVJ-long-lived-token")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if strings.Contains(sealed, "IGQVJ") {
		t.Fatal("ciphertext leaks plaintext")
	}
	plain, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plain != "IGQVJ-long-lived-token" {
		t.Fatalf("unexpected plaintext %q", plain)
	}

	again, _ := c.Encrypt("IGQVJ-long-lived-token")
	if again == sealed {
		t.Fatal("expected a fresh nonce per encryption")
	}
}

func TestCipherEmptyPassthrough(t *testing.T) {
	c, _ := NewCipher(testKey)
	if s, err := c.Encrypt(""); err != nil || s != "" {
		t.Fatalf("Encrypt(\"\") = %q, %v", s, err)
	}
	if s, err := c.Decrypt(""); err != nil || s != "" {
		t.Fatalf("Decrypt(\"\") = %q, %v", s, err)
	}
}

func TestCipherRejects(t *testing.T) {
	if _, err := NewCipher([]byte("short")); err == nil {
		t.Fatal("expected key length error")
	}

	c, _ := NewCipher(testKey)
	other, _ := NewCipher([]byte(strings.Repeat("x", 32)))
	sealed, _ := c.Encrypt("token")
	if _, err := other.Decrypt(sealed); err == nil {
		t.Fatal("expected decryption with the wrong key to fail")
	}
	if _, err := c.Decrypt("AAAA"); err == nil {
		t.Fatal("expected short ciphertext to fail")
	}
}
