package vault

import (
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := New("deployment-secret-123")

	plaintexts := []string{
		"wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY",
		"",
		"short",
		strings.Repeat("x", 1000),
	}

	for _, plaintext := range plaintexts {
		encrypted, err := v.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("encrypt %q: %v", plaintext, err)
		}
		if encrypted == plaintext {
			t.Errorf("ciphertext should differ from plaintext %q", plaintext)
		}

		decrypted, err := v.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip = %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptProducesUniqueIVs(t *testing.T) {
	v := New("deployment-secret-123")

	first, err := v.Encrypt("same-value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	second, err := v.Encrypt("same-value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if first == second {
		t.Error("two encryptions of the same value should differ")
	}
}

func TestCiphertextFormat(t *testing.T) {
	v := New("deployment-secret-123")

	encrypted, err := v.Encrypt("payload")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	parts := strings.Split(encrypted, ":")
	if len(parts) != 2 {
		t.Fatalf("ciphertext %q should have iv:payload form", encrypted)
	}
	// 16-byte IV hex-encoded
	if len(parts[0]) != 32 {
		t.Errorf("iv hex length = %d, want 32", len(parts[0]))
	}
}

func TestDecryptWrongSecretFails(t *testing.T) {
	encrypted, err := New("correct-secret").Encrypt("sensitive-value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	decrypted, err := New("wrong-secret").Decrypt(encrypted)
	if err == nil && decrypted == "sensitive-value" {
		t.Error("wrong secret should not recover the plaintext")
	}
}

func TestMissingSecret(t *testing.T) {
	v := New("")

	if v.Enabled() {
		t.Error("vault without secret should report disabled")
	}

	if _, err := v.Encrypt("value"); !errors.Is(err, ErrSecretMissing) {
		t.Errorf("Encrypt error = %v, want ErrSecretMissing", err)
	}
	if _, err := v.Decrypt("00:00"); !errors.Is(err, ErrSecretMissing) {
		t.Errorf("Decrypt error = %v, want ErrSecretMissing", err)
	}
}

func TestDecryptMalformedInput(t *testing.T) {
	v := New("deployment-secret-123")

	inputs := []string{
		"no-separator",
		"zz:zz",
		"00112233445566778899aabbccddeeff:",
		"00112233445566778899aabbccddeeff:abcd", // not a full block
		"short:00112233445566778899aabbccddeeff",
	}

	for _, input := range inputs {
		if _, err := v.Decrypt(input); !errors.Is(err, ErrMalformedCiphertext) {
			t.Errorf("Decrypt(%q) error = %v, want ErrMalformedCiphertext", input, err)
		}
	}
}
