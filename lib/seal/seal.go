// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package seal implements the authenticated-encryption layer for the
// helper socket. Each message is sealed independently with
// ChaCha20-Poly1305 under a 256-bit pre-shared key: a fresh random
// 96-bit nonce is generated per message and prepended to the
// ciphertext, so the wire form is nonce‖ciphertext‖tag.
//
// There is no on-wire negotiation. Client and helper must agree by
// configuration on whether sealing is in effect and on the key; a
// mismatch surfaces as ErrDecryptionFailed on the receiving side and
// closes that connection.
package seal

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/switchboot/switchboot/lib/secret"
)

// KeySize is the channel key size in bytes.
const KeySize = chacha20poly1305.KeySize

// NonceSize is the per-message nonce size in bytes.
const NonceSize = chacha20poly1305.NonceSize

// Overhead is the total size added to a plaintext by Seal: the
// prepended nonce plus the Poly1305 authentication tag.
const Overhead = NonceSize + chacha20poly1305.Overhead

// ErrDecryptionFailed is returned by Open for any payload that does
// not authenticate: wrong key, flipped bits, truncation, or a payload
// too short to contain a nonce and tag. The caller must treat the
// connection as compromised and close it — there is no retry
// semantics for a message that failed authentication.
var ErrDecryptionFailed = errors.New("seal: message authentication failed")

// Cipher seals and opens messages under one pre-shared key. Safe for
// concurrent use; the key is read-only after construction.
type Cipher struct {
	aead        cipher.AEAD
	fingerprint string
}

// New creates a Cipher from a KeySize-byte key held in a secret
// buffer. The key bytes are read once during construction; the caller
// retains ownership of the buffer.
func New(key *secret.Buffer) (*Cipher, error) {
	if key.Len() != KeySize {
		return nil, fmt.Errorf("seal: key must be %d bytes, got %d", KeySize, key.Len())
	}

	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("seal: initializing cipher: %w", err)
	}

	return &Cipher{
		aead:        aead,
		fingerprint: Fingerprint(key),
	}, nil
}

// Seal encrypts and authenticates plaintext, returning
// nonce‖ciphertext‖tag. The nonce is freshly random per call; reuse
// under the same key would break the cipher, so the only failure mode
// is the system random source being unavailable.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	sealed := make([]byte, NonceSize, NonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(sealed[:NonceSize]); err != nil {
		return nil, fmt.Errorf("seal: generating nonce: %w", err)
	}
	return c.aead.Seal(sealed, sealed[:NonceSize], plaintext, nil), nil
}

// Open authenticates and decrypts a payload produced by Seal with the
// same key. Any authentication failure is reported as
// ErrDecryptionFailed without detail — distinguishing tamper from
// truncation from key mismatch would only help an attacker.
func (c *Cipher) Open(payload []byte) ([]byte, error) {
	if len(payload) < Overhead {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := c.aead.Open(nil, payload[:NonceSize], payload[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// KeyFingerprint returns a short log-safe identifier for the cipher's
// key. Client and helper log it at connection setup so a key mismatch
// is diagnosable from the two logs without exposing key material.
func (c *Cipher) KeyFingerprint() string {
	return c.fingerprint
}

// Fingerprint computes the log-safe identifier for a key: the first
// eight bytes of its BLAKE3 hash, hex encoded. One-way, so the
// fingerprint reveals nothing useful about the key itself.
func Fingerprint(key *secret.Buffer) string {
	digest := blake3.Sum256(key.Bytes())
	return hex.EncodeToString(digest[:8])
}

// GenerateKey creates a fresh random channel key in a secret buffer.
// The caller must Close the buffer when done.
func GenerateKey() (*secret.Buffer, error) {
	buffer, err := secret.New(KeySize)
	if err != nil {
		return nil, err
	}
	if _, err := rand.Read(buffer.Bytes()); err != nil {
		buffer.Close()
		return nil, fmt.Errorf("seal: generating key: %w", err)
	}
	return buffer, nil
}
