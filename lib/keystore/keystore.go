// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystore manages the 32-byte channel key at rest.
//
// The key is stored age-encrypted to an X25519 identity held by root,
// so a key file readable by accident still yields nothing. Binaries
// without a provisioned key file fall back to the key compiled in at
// build time, which protects against casual snooping only; run
// `switchboot key generate` to provision a machine-specific key.
package keystore

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/switchboot/switchboot/lib/seal"
	"github.com/switchboot/switchboot/lib/secret"
)

// builtinKeyHex is the channel key compiled into the binaries,
// overridable at build time:
//
//	go build -ldflags "-X github.com/switchboot/switchboot/lib/keystore.builtinKeyHex=<64 hex digits>"
var builtinKeyHex = "3b7f1c9a52e84d06b1f7a3c58e92d40f6a1b8c27d5e93f048c6a2b7d19e5f380"

// BuiltinKey returns the compile-time default channel key.
func BuiltinKey() (*secret.Buffer, error) {
	raw, err := hex.DecodeString(builtinKeyHex)
	if err != nil {
		return nil, fmt.Errorf("keystore: built-in key is not valid hex: %w", err)
	}
	if len(raw) != seal.KeySize {
		return nil, fmt.Errorf("keystore: built-in key is %d bytes, want %d", len(raw), seal.KeySize)
	}
	return secret.NewFromBytes(raw)
}

// GenerateIdentity creates a fresh age X25519 identity at path, owner
// read-only. The parent directory is created if needed.
func GenerateIdentity(path string) (*age.X25519Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("keystore: generating identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("keystore: creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(identity.String()+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("keystore: writing identity: %w", err)
	}
	return identity, nil
}

// LoadIdentity reads the age identities stored at path.
func LoadIdentity(path string) ([]age.Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: opening identity: %w", err)
	}
	defer file.Close()

	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, fmt.Errorf("keystore: parsing %s: %w", path, err)
	}
	return identities, nil
}

// Seal writes the channel key to path, encrypted to recipient. The
// key buffer is not consumed.
func Seal(path string, recipient age.Recipient, key *secret.Buffer) error {
	if key.Len() != seal.KeySize {
		return fmt.Errorf("keystore: key is %d bytes, want %d", key.Len(), seal.KeySize)
	}

	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, recipient)
	if err != nil {
		return fmt.Errorf("keystore: sealing key: %w", err)
	}
	if _, err := w.Write(key.Bytes()); err != nil {
		return fmt.Errorf("keystore: sealing key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("keystore: sealing key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("keystore: creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, sealed.Bytes(), 0o600); err != nil {
		return fmt.Errorf("keystore: writing key file: %w", err)
	}
	return nil
}

// Unseal reads the channel key from keyPath using the identities at
// identityPath.
func Unseal(keyPath, identityPath string) (*secret.Buffer, error) {
	identities, err := LoadIdentity(identityPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("keystore: opening key file: %w", err)
	}
	defer file.Close()

	r, err := age.Decrypt(file, identities...)
	if err != nil {
		return nil, fmt.Errorf("keystore: unsealing %s: %w", keyPath, err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("keystore: unsealing %s: %w", keyPath, err)
	}
	if len(raw) != seal.KeySize {
		secret.Zero(raw)
		return nil, fmt.Errorf("keystore: key file holds %d bytes, want %d", len(raw), seal.KeySize)
	}
	return secret.NewFromBytes(raw)
}

// ResolveKey returns the channel key both sides must share: the
// provisioned key file when present, otherwise the built-in key.
func ResolveKey(keyPath, identityPath string) (*secret.Buffer, error) {
	if _, err := os.Stat(keyPath); err != nil {
		if os.IsNotExist(err) {
			return BuiltinKey()
		}
		return nil, fmt.Errorf("keystore: checking key file: %w", err)
	}
	return Unseal(keyPath, identityPath)
}
