// Package vault seals sensitive document fields at rest.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"lifedash/internal/core"
)

const (
	prefix     = "enc:v1:"
	saltKey    = "vault_salt"
	iterations = 100_000
	keyLen     = 32
	saltLen    = 16
)

// SettingsStore persists the key derivation salt.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Vault encrypts strings with AES-256-GCM under a passphrase derived key.
type Vault struct {
	aead cipher.AEAD
}

// New derives the key from passphrase and salt.
func New(passphrase string, salt []byte) (*Vault, error) {
	if passphrase == "" {
		return nil, errors.New("vault passphrase is empty")
	}
	if len(salt) < saltLen {
		return nil, fmt.Errorf("vault salt must be at least %d bytes", saltLen)
	}
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Load builds a vault with the salt kept in settings, creating one on first use.
func Load(ctx context.Context, settings SettingsStore, passphrase string) (*Vault, error) {
	encoded, err := settings.GetSetting(ctx, saltKey)
	switch {
	case errors.Is(err, core.ErrNotFound):
		salt := make([]byte, saltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		encoded = base64.StdEncoding.EncodeToString(salt)
		if err := settings.PutSetting(ctx, saltKey, encoded); err != nil {
			return nil, fmt.Errorf("store salt: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load salt: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	return New(passphrase, salt)
}

// IsSealed reports whether s carries the sealed value prefix.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, prefix)
}

// Seal encrypts plain. Empty strings pass through; anything else is sealed,
// including text that happens to start with the sealed prefix.
func (v *Vault) Seal(plain string) (string, error) {
	if plain == "" {
		return plain, nil
	}
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := v.aead.Seal(nonce, nonce, []byte(plain), nil)
	return prefix + base64.StdEncoding.EncodeToString(out), nil
}

// Unseal decrypts a sealed value. Plain values are returned unchanged so
// documents written before the vault was enabled stay readable.
func (v *Vault) Unseal(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return sealed, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, prefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	n := v.aead.NonceSize()
	if len(raw) < n {
		return "", errors.New("sealed value too short")
	}
	plain, err := v.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plain), nil
}
