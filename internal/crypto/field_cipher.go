// Package crypto encrypts the profile fields (phone, address) that must not
// be stored in clear text in either store.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrCiphertextInvalid is returned for input that is not a value produced by
// the same key.
var ErrCiphertextInvalid = errors.New("invalid field ciphertext")

const hkdfInfo = "reelsync field cipher v1"

// FieldCipher transforms a single string field. Empty input maps to empty
// output in both directions.
type FieldCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(encoded string) (string, error)
}

// AEADCipher seals fields with XChaCha20-Poly1305. The stored form is
// base64(nonce || ciphertext).
type AEADCipher struct {
	aead cipher.AEAD
}

// NewAEADCipher derives the key from secret with HKDF-SHA256.
func NewAEADCipher(secret []byte) (*AEADCipher, error) {
	if len(secret) == 0 {
		return nil, errors.New("field cipher secret is empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive field key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}

	return &AEADCipher{aead: aead}, nil
}

func (c *AEADCipher) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AEADCipher) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrCiphertextInvalid
	}
	if len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrCiphertextInvalid
	}

	nonce, ct := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrCiphertextInvalid
	}
	return string(plain), nil
}

// NopCipher stores fields unchanged.
type NopCipher struct{}

func (NopCipher) Encrypt(plain string) (string, error)   { return plain, nil }
func (NopCipher) Decrypt(encoded string) (string, error) { return encoded, nil }

var (
	_ FieldCipher = (*AEADCipher)(nil)
	_ FieldCipher = NopCipher{}
)
