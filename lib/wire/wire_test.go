// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		[]byte("set-boot-next"),
		bytes.Repeat([]byte{0xab}, 4096),
		bytes.Repeat([]byte{0x00}, MaxFrameSize),
	}

	for _, payload := range payloads {
		var buffer bytes.Buffer
		if err := WriteFrame(&buffer, payload); err != nil {
			t.Fatalf("WriteFrame(%d bytes): %v", len(payload), err)
		}
		got, err := ReadFrame(&buffer)
		if err != nil {
			t.Fatalf("ReadFrame(%d bytes): %v", len(payload), err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("round trip of %d bytes: payload corrupted", len(payload))
		}
		if buffer.Len() != 0 {
			t.Errorf("round trip of %d bytes: %d trailing bytes", len(payload), buffer.Len())
		}
	}
}

func TestMultipleFramesInSequence(t *testing.T) {
	var buffer bytes.Buffer
	sent := [][]byte{[]byte("first"), {}, []byte("third")}
	for _, payload := range sent {
		if err := WriteFrame(&buffer, payload); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for i, want := range sent {
		got, err := ReadFrame(&buffer)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %q, want %q", i, got, want)
		}
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	err := WriteFrame(io.Discard, make([]byte, MaxFrameSize+1))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("WriteFrame oversized = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameRejectsOversizedHeader(t *testing.T) {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], MaxFrameSize+1)

	_, err := ReadFrame(bytes.NewReader(header[:]))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("ReadFrame oversized header = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameCleanEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if err != io.EOF {
		t.Fatalf("ReadFrame on empty stream = %v, want io.EOF", err)
	}
}

func TestReadFrameTruncatedHeader(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x05, 0x00}))
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("ReadFrame truncated header = %v, want ErrTruncatedFrame", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, []byte("complete payload")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	truncated := buffer.Bytes()[:buffer.Len()-3]

	_, err := ReadFrame(bytes.NewReader(truncated))
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("ReadFrame truncated payload = %v, want ErrTruncatedFrame", err)
	}
}

func TestHeaderIsLittleEndian(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, []byte("abc")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	header := buffer.Bytes()[:4]
	want := []byte{0x03, 0x00, 0x00, 0x00}
	if !bytes.Equal(header, want) {
		t.Errorf("header = %x, want %x", header, want)
	}
}
