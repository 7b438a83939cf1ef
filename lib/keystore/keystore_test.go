// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/switchboot/switchboot/lib/seal"
)

func TestBuiltinKey(t *testing.T) {
	key, err := BuiltinKey()
	if err != nil {
		t.Fatalf("BuiltinKey: %v", err)
	}
	defer key.Close()
	if key.Len() != seal.KeySize {
		t.Fatalf("key length = %d, want %d", key.Len(), seal.KeySize)
	}
}

func TestSealUnsealRoundTrip(t *testing.T) {
	dir := t.TempDir()
	identityPath := filepath.Join(dir, "identity.txt")
	keyPath := filepath.Join(dir, "channel.key.age")

	identity, err := GenerateIdentity(identityPath)
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}

	key, err := seal.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	defer key.Close()
	want := append([]byte(nil), key.Bytes()...)

	if err := Seal(keyPath, identity.Recipient(), key); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	// The file on disk must not contain the key in the clear.
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(raw, want) {
		t.Fatal("sealed key file contains the plaintext key")
	}

	got, err := Unseal(keyPath, identityPath)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	defer got.Close()
	if !bytes.Equal(got.Bytes(), want) {
		t.Fatal("unsealed key differs from sealed key")
	}
}

func TestUnsealWithWrongIdentity(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "channel.key.age")

	identity, err := GenerateIdentity(filepath.Join(dir, "identity.txt"))
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	if _, err := GenerateIdentity(filepath.Join(dir, "other.txt")); err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}

	key, err := seal.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	defer key.Close()
	if err := Seal(keyPath, identity.Recipient(), key); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := Unseal(keyPath, filepath.Join(dir, "other.txt")); err == nil {
		t.Fatal("Unseal succeeded with the wrong identity")
	}
}

func TestIdentityFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.txt")
	if _, err := GenerateIdentity(path); err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("identity mode = %#o, want 0600", info.Mode().Perm())
	}
}

func TestResolveKeyFallsBackToBuiltin(t *testing.T) {
	dir := t.TempDir()
	key, err := ResolveKey(filepath.Join(dir, "absent.age"), filepath.Join(dir, "absent.txt"))
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	defer key.Close()

	builtin, err := BuiltinKey()
	if err != nil {
		t.Fatalf("BuiltinKey: %v", err)
	}
	defer builtin.Close()
	if !bytes.Equal(key.Bytes(), builtin.Bytes()) {
		t.Fatal("ResolveKey without a key file did not return the built-in key")
	}
}

func TestResolveKeyPrefersKeyFile(t *testing.T) {
	dir := t.TempDir()
	identityPath := filepath.Join(dir, "identity.txt")
	keyPath := filepath.Join(dir, "channel.key.age")

	identity, err := GenerateIdentity(identityPath)
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	key, err := seal.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	defer key.Close()
	want := append([]byte(nil), key.Bytes()...)
	if err := Seal(keyPath, identity.Recipient(), key); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	got, err := ResolveKey(keyPath, identityPath)
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	defer got.Close()
	if !bytes.Equal(got.Bytes(), want) {
		t.Fatal("ResolveKey did not return the provisioned key")
	}
}
