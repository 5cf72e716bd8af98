// Package crypto implements the authenticated encryption primitive the
// vault stores credentials under: a single AES-256-GCM key derived from an
// operator-supplied secret via PBKDF2-HMAC-SHA256.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key size in bytes (AES-256).
	KeySize = 32

	// NonceSize is the GCM nonce size in bytes (96 bits).
	NonceSize = 12

	// TagSize is the GCM authentication tag size in bytes (128 bits).
	TagSize = 16

	// DefaultIterations is the PBKDF2 iteration count.
	DefaultIterations = 100_000

	// saltLabel is appended to the secret when deriving the fallback salt.
	saltLabel = "credvault-kdf-v1"
)

var (
	// ErrAuthenticationFailed is returned when ciphertext fails tag
	// verification: tampering, corruption, or a wrong key. Never retried.
	ErrAuthenticationFailed = errors.New("ciphertext authentication failed")

	// ErrEncryptionFailed is returned when the underlying primitive fails.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrInvalidKeyMaterial is returned when the engine cannot be built
	// from the supplied secret or salt.
	ErrInvalidKeyMaterial = errors.New("invalid key material")
)

// DeriveKey derives a 256-bit key from the secret and salt using
// PBKDF2-HMAC-SHA256. Iterations below DefaultIterations are raised to it.
func DeriveKey(secret string, salt []byte, iterations int) []byte {
	if iterations < DefaultIterations {
		iterations = DefaultIterations
	}
	return pbkdf2.Key([]byte(secret), salt, iterations, KeySize, sha256.New)
}

// DeriveSalt computes the deterministic fallback salt used when no explicit
// salt is configured: SHA256(secret || label). Two deployments sharing the
// same master secret therefore derive the same key; operators wanting
// per-deployment key isolation must configure an explicit random salt.
func DeriveSalt(secret string) []byte {
	sum := sha256.Sum256([]byte(secret + saltLabel))
	return sum[:]
}

// Engine performs authenticated encryption of credential payloads under a
// single master key fixed at construction. The key is derived once at
// startup and never rotated in-process; rotation requires a restart with a
// new secret plus a re-encryption pass over stored records.
type Engine struct {
	aead cipher.AEAD
}

// NewEngine builds an Engine from the master secret. When salt is nil the
// deterministic fallback salt is used so key derivation is reproducible
// across restarts without persisted state.
func NewEngine(secret string, salt []byte, iterations int) (*Engine, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty master secret", ErrInvalidKeyMaterial)
	}
	if salt == nil {
		salt = DeriveSalt(secret)
	}

	key := DeriveKey(secret, salt, iterations)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return &Engine{aead: aead}, nil
}

// Encrypt seals the plaintext under a fresh random 96-bit nonce and returns
// the ciphertext, nonce, and 128-bit authentication tag separately. The
// nonce is never reused with the same key; reuse would break GCM
// confidentiality.
func (e *Engine) Encrypt(plaintext []byte) (ciphertext, nonce, tag []byte, err error) {
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: nonce generation: %v", ErrEncryptionFailed, err)
	}

	sealed := e.aead.Seal(nil, nonce, plaintext, nil)
	if len(sealed) < TagSize {
		return nil, nil, nil, fmt.Errorf("%w: sealed payload too short", ErrEncryptionFailed)
	}

	split := len(sealed) - TagSize
	return sealed[:split], nonce, sealed[split:], nil
}

// Decrypt opens the ciphertext, verifying the authentication tag. A tag
// mismatch returns ErrAuthenticationFailed and never partial plaintext;
// callers must treat it as a data-integrity incident distinct from "not
// found" and must not retry.
func (e *Engine) Decrypt(ciphertext, nonce, tag []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: bad nonce length %d", ErrAuthenticationFailed, len(nonce))
	}
	if len(tag) != TagSize {
		return nil, fmt.Errorf("%w: bad tag length %d", ErrAuthenticationFailed, len(tag))
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
