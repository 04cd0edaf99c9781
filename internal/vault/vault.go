package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	keySize   = 32
	scryptN   = 16384
	scryptR   = 8
	scryptP   = 1
)

// keySalt is fixed so the same secret always derives the same key.
// Key uniqueness comes from the per-deployment secret, not the salt.
var keySalt = []byte("pgvault.credential.v1")

var (
	// ErrSecretMissing is returned when encryption is requested but no
	// secret is configured. Operations never fall back to plaintext
	// silently.
	ErrSecretMissing = errors.New("encryption secret is not configured")

	// ErrMalformedCiphertext is returned when stored ciphertext does not
	// match the iv:payload hex format.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// Vault encrypts and decrypts credential secrets with AES-256-CBC using
// a key derived from the deployment secret. Values are stored as
// hex(iv):hex(ciphertext).
type Vault struct {
	secret string
}

func New(secret string) *Vault {
	return &Vault{secret: secret}
}

// Enabled reports whether a secret is configured. Callers that find the
// vault disabled must store secrets with an explicit plaintext scheme
// tag, never by guessing from the value shape.
func (v *Vault) Enabled() bool {
	return v.secret != ""
}

func (v *Vault) deriveKey() ([]byte, error) {
	if v.secret == "" {
		return nil, ErrSecretMissing
	}
	key, err := scrypt.Key([]byte(v.secret), keySalt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	key, err := v.deriveKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

func (v *Vault) Decrypt(value string) (string, error) {
	key, err := v.deriveKey()
	if err != nil {
		return "", err
	}

	ivHex, payloadHex, found := strings.Cut(value, ":")
	if !found {
		return "", ErrMalformedCiphertext
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformedCiphertext
	}

	ciphertext, err := hex.DecodeString(payloadHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrMalformedCiphertext
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext, aes.BlockSize)
	if err != nil {
		// A wrong secret produces garbage padding, not an authentication
		// failure, so surface it as a decrypt error.
		return "", fmt.Errorf("decrypt: %w", err)
	}

	return string(unpadded), nil
}

// pad applies PKCS#7 padding.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
