// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/switchboot/switchboot/lib/seal"
	"github.com/switchboot/switchboot/lib/wire"
)

func newTestCipher(t *testing.T) *seal.Cipher {
	t.Helper()
	key, err := seal.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	t.Cleanup(func() { key.Close() })

	cipher, err := seal.New(key)
	if err != nil {
		t.Fatalf("seal.New: %v", err)
	}
	return cipher
}

// connPair returns two Conns wired back to back over an in-memory
// pipe, with the given ciphers on each end.
func connPair(t *testing.T, left, right *seal.Cipher) (*Conn, *Conn) {
	t.Helper()
	leftStream, rightStream := net.Pipe()
	a := newConn(leftStream, 1, left)
	b := newConn(rightStream, 2, right)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestConnPlaintextRoundTrip(t *testing.T) {
	a, b := connPair(t, nil, nil)

	sent := []byte("get-boot-entries")
	go func() { a.Send(sent) }()

	got, err := b.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(got, sent) {
		t.Errorf("Receive = %q, want %q", got, sent)
	}
}

func TestConnSealedRoundTrip(t *testing.T) {
	cipher := newTestCipher(t)
	a, b := connPair(t, cipher, cipher)

	sent := []byte("set-boot-next")
	go func() { a.Send(sent) }()

	got, err := b.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(got, sent) {
		t.Errorf("Receive = %q, want %q", got, sent)
	}
}

func TestConnSealedPayloadIsNotPlaintext(t *testing.T) {
	cipher := newTestCipher(t)
	leftStream, rightStream := net.Pipe()
	defer leftStream.Close()
	defer rightStream.Close()
	sender := newConn(leftStream, 1, cipher)

	secretPayload := []byte("very recognizable command text")
	go func() { sender.Send(secretPayload) }()

	// Read the raw frame without a cipher: the payload on the wire
	// must not contain the plaintext.
	raw, err := wire.ReadFrame(rightStream)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if bytes.Contains(raw, secretPayload) {
		t.Error("sealed frame contains plaintext")
	}
	if len(raw) != len(secretPayload)+seal.Overhead {
		t.Errorf("sealed frame length = %d, want %d", len(raw), len(secretPayload)+seal.Overhead)
	}
}

func TestConnKeyMismatchFailsDecryption(t *testing.T) {
	a, b := connPair(t, newTestCipher(t), newTestCipher(t))

	go func() { a.Send([]byte("reboot")) }()

	_, err := b.Receive()
	if !errors.Is(err, seal.ErrDecryptionFailed) {
		t.Fatalf("Receive with mismatched keys = %v, want ErrDecryptionFailed", err)
	}
}

func TestConnReceiveAfterPeerCloseIsEOF(t *testing.T) {
	a, b := connPair(t, nil, nil)
	a.Close()

	_, err := b.Receive()
	if err != io.EOF && !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Receive after peer close = %v, want EOF or closed pipe", err)
	}
}

func TestConnCloseIsIdempotent(t *testing.T) {
	a, _ := connPair(t, nil, nil)
	first := a.Close()
	second := a.Close()
	if first != second {
		t.Errorf("Close results differ: %v then %v", first, second)
	}
}
