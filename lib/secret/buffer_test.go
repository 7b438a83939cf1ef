// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"testing"
)

func TestNewFromBytesCopiesAndZerosSource(t *testing.T) {
	source := []byte("thirty-two-byte-channel-key-....")
	want := append([]byte(nil), source...)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if !bytes.Equal(buffer.Bytes(), want) {
		t.Errorf("buffer contents differ from source")
	}
	if !bytes.Equal(source, make([]byte, len(source))) {
		t.Errorf("source was not zeroed")
	}
	if buffer.Len() != len(want) {
		t.Errorf("Len = %d, want %d", buffer.Len(), len(want))
	}
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) succeeded, want error")
	}
	if _, err := New(-1); err == nil {
		t.Error("New(-1) succeeded, want error")
	}
}

func TestNewFromBytesRejectsEmpty(t *testing.T) {
	if _, err := NewFromBytes(nil); err == nil {
		t.Error("NewFromBytes(nil) succeeded, want error")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestBytesPanicsAfterClose(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buffer.Close()

	defer func() {
		if recover() == nil {
			t.Error("Bytes after Close did not panic")
		}
	}()
	buffer.Bytes()
}
