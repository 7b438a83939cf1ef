// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/switchboot/switchboot/lib/seal"
	"github.com/switchboot/switchboot/lib/wire"
)

// Conn is one framed, optionally sealed duplex endpoint. The same
// type serves both sides: the server wraps accepted connections, the
// client wraps its dialed connection.
//
// A Conn owns its stream exclusively. Send and Receive are not safe
// for concurrent use with themselves; the strict request→response
// pairing of the protocol means neither side ever needs that. Close
// is safe to call from any goroutine and is idempotent.
type Conn struct {
	id     uint64
	stream net.Conn
	cipher *seal.Cipher

	closeOnce sync.Once
	closeErr  error
}

func newConn(stream net.Conn, id uint64, cipher *seal.Cipher) *Conn {
	return &Conn{
		id:     id,
		stream: stream,
		cipher: cipher,
	}
}

// ID returns the connection's process-unique identifier. Server-side
// IDs are assigned monotonically per process; the client's own
// connection always has ID 0.
func (c *Conn) ID() uint64 { return c.id }

// Send seals payload (when a cipher is configured) and writes it as
// one frame. Any error leaves the stream in an undefined position;
// the caller must close the connection.
func (c *Conn) Send(payload []byte) error {
	if c.cipher != nil {
		sealed, err := c.cipher.Seal(payload)
		if err != nil {
			return fmt.Errorf("transport: sealing message: %w", err)
		}
		payload = sealed
	}
	return wire.WriteFrame(c.stream, payload)
}

// Receive reads one frame and opens it (when a cipher is configured).
// io.EOF is returned unwrapped for a clean peer close before any
// frame byte; every other error is fatal to the connection.
func (c *Conn) Receive() ([]byte, error) {
	payload, err := wire.ReadFrame(c.stream)
	if err != nil {
		return nil, err
	}
	if c.cipher != nil {
		opened, err := c.cipher.Open(payload)
		if err != nil {
			return nil, err
		}
		return opened, nil
	}
	return payload, nil
}

// Close releases the underlying stream. Idempotent; concurrent calls
// see the first call's result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.stream.Close()
	})
	return c.closeErr
}
