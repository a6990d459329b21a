// Package secrets encrypts connector credentials at rest with AES-256-GCM.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/rotisserie/eris"
)

// Box seals and opens short secrets such as provider API keys and
// access/refresh tokens. Ciphertexts are base64url(nonce || sealed).
type Box struct {
	aead cipher.AEAD
}

// NewBox creates a Box from a 32-byte key.
func NewBox(key []byte) (*Box, error) {
	if len(key) != 32 {
		return nil, eris.Errorf("secrets: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, eris.Wrap(err, "secrets: create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, eris.Wrap(err, "secrets: create GCM")
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext and returns a base64url token.
func (b *Box) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", eris.New("secrets: empty plaintext")
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", eris.Wrap(err, "secrets: generate nonce")
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a token produced by Seal and returns the original plaintext.
func (b *Box) Open(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", eris.Wrap(err, "secrets: decode token")
	}
	ns := b.aead.NonceSize()
	if len(raw) < ns {
		return "", eris.New("secrets: token too short")
	}
	plaintext, err := b.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", eris.Wrap(err, "secrets: open token")
	}
	return string(plaintext), nil
}
