// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the length-prefixed frame codec used on the
// helper socket. A frame is a 4-byte little-endian payload length
// followed by the payload bytes. Framing carries no type information —
// the payload is an opaque byte sequence (in practice the CBOR or
// sealed encoding produced by the layers above).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the largest payload a peer may send. Bounds the
// allocation performed on behalf of an untrusted peer; the largest
// legitimate message (a full boot entry listing) is a few KiB.
const MaxFrameSize = 1 << 20

// headerSize is the length prefix size in bytes.
const headerSize = 4

// ErrFrameTooLarge is returned by ReadFrame when the declared payload
// length exceeds MaxFrameSize. The connection must be closed — the
// stream position is inside an unread payload and cannot be recovered.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// ErrTruncatedFrame is returned when the stream ends partway through a
// header or payload. A clean end of stream before any header byte is
// reported as io.EOF instead.
var ErrTruncatedFrame = errors.New("wire: stream ended mid-frame")

// WriteFrame writes the length prefix and payload to w. The header and
// payload are written in a single Write call so that a successful
// return never leaves a partial frame observable on a socket.
// Zero-length payloads are valid and produce a header-only frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	frame := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[headerSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("wire: writing frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length prefix and payload from r.
//
// End of stream before the first header byte is a clean disconnect and
// returns io.EOF unwrapped. End of stream anywhere after that returns
// ErrTruncatedFrame. A declared length above MaxFrameSize returns
// ErrFrameTooLarge without reading the payload; the caller must close
// the connection since the stream is no longer frame-aligned.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedFrame
		}
		return nil, fmt.Errorf("wire: reading frame header: %w", err)
	}

	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: peer declared %d bytes", ErrFrameTooLarge, length)
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedFrame
		}
		return nil, fmt.Errorf("wire: reading frame payload: %w", err)
	}
	return payload, nil
}
