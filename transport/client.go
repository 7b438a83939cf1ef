// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/switchboot/switchboot/lib/clock"
	"github.com/switchboot/switchboot/lib/codec"
	"github.com/switchboot/switchboot/lib/ipc"
	"github.com/switchboot/switchboot/lib/seal"
)

// ErrServerUnavailable is returned by Connect when the helper socket
// could not be reached within the configured timeout, including any
// bootstrap attempt.
var ErrServerUnavailable = errors.New("transport: helper unavailable")

// ErrNotConnected is returned by Call on a client that has never
// connected or whose connection has been closed.
var ErrNotConnected = errors.New("transport: not connected")

// DefaultConnectTimeout bounds Connect, covering bootstrap and all
// dial retries.
const DefaultConnectTimeout = 5 * time.Second

// defaultRetryInterval is the pause between dial attempts while
// waiting for a bootstrapped helper to bind its socket.
const defaultRetryInterval = 200 * time.Millisecond

// ClientOptions configures optional client behavior. The zero value
// is usable: plaintext transport, no bootstrap, default timeout.
type ClientOptions struct {
	// Cipher seals all traffic when non-nil. Must match the helper's
	// configuration; a mismatch surfaces as a decryption failure and
	// a closed connection on whichever side receives first.
	Cipher *seal.Cipher

	// Bootstrap, when non-nil, is invoked once if the first dial
	// finds no listener. Connect then keeps retrying until the
	// timeout expires.
	Bootstrap Bootstrap

	// Logger receives connect/bootstrap progress logs.
	Logger *slog.Logger

	// Clock drives retry pacing and the connect timeout.
	Clock clock.Clock

	// ConnectTimeout overrides DefaultConnectTimeout when positive.
	ConnectTimeout time.Duration

	// RetryInterval overrides the default 200ms dial retry pacing
	// when positive.
	RetryInterval time.Duration
}

// Client dials the helper socket and exchanges one command for one
// response per Call. A Client holds at most one connection; Call is
// serialized, so concurrent commands from one process require
// separate Clients (and therefore separate connections).
type Client struct {
	socketPath string
	options    ClientOptions

	mu   sync.Mutex
	conn *Conn
}

// NewClient creates a client for the given socket path. No connection
// is made until Connect.
func NewClient(socketPath string, options ClientOptions) *Client {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.ConnectTimeout <= 0 {
		options.ConnectTimeout = DefaultConnectTimeout
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = defaultRetryInterval
	}
	return &Client{
		socketPath: socketPath,
		options:    options,
	}
}

// Connect dials the helper socket. When the endpoint is absent or not
// accepting (helper not running) and a Bootstrap is configured, it is
// invoked once and dialing retries until the connect timeout, after
// which ErrServerUnavailable is returned wrapping the last dial
// error. Connect on an already-connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	stream, err := c.dial(ctx)
	if err == nil {
		c.conn = newConn(stream, 0, c.options.Cipher)
		return nil
	}
	if !isNoListener(err) {
		return fmt.Errorf("transport: connecting to %s: %w", c.socketPath, err)
	}

	if c.options.Bootstrap != nil {
		c.options.Logger.Info("helper not running, bootstrapping", "socket", c.socketPath)
		if bootstrapErr := c.options.Bootstrap.Start(ctx); bootstrapErr != nil {
			return fmt.Errorf("%w: bootstrap failed: %v", ErrServerUnavailable, bootstrapErr)
		}
	}

	deadline := c.options.Clock.After(c.options.ConnectTimeout)
	ticker := c.options.Clock.NewTicker(c.options.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrServerUnavailable, ctx.Err())
		case <-deadline:
			return fmt.Errorf("%w: timed out after %v: %v",
				ErrServerUnavailable, c.options.ConnectTimeout, err)
		case <-ticker.C:
			stream, err = c.dial(ctx)
			if err == nil {
				c.conn = newConn(stream, 0, c.options.Cipher)
				return nil
			}
			if !isNoListener(err) {
				return fmt.Errorf("transport: connecting to %s: %w", c.socketPath, err)
			}
		}
	}
}

// Call sends one command and waits for its response. Exactly one
// exchange is in flight at a time; concurrent Call invocations on the
// same client are serialized. Any transport or decode error closes
// the connection and is returned — command-level failures arrive as
// a Response with OK=false, not as an error.
func (c *Client) Call(ctx context.Context, request ipc.Request) (*ipc.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	payload, err := codec.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("transport: encoding command: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.stream.SetDeadline(deadline)
		defer c.conn.stream.SetDeadline(time.Time{})
	}

	if err := c.conn.Send(payload); err != nil {
		c.closeLocked()
		return nil, err
	}
	reply, err := c.conn.Receive()
	if err != nil {
		c.closeLocked()
		return nil, err
	}

	var response ipc.Response
	if err := codec.Unmarshal(reply, &response); err != nil {
		c.closeLocked()
		return nil, fmt.Errorf("transport: decoding response: %w", err)
	}
	return &response, nil
}

// Close releases the connection. Safe to call multiple times and on
// a never-connected client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "unix", c.socketPath)
}

// isNoListener reports whether a dial error means "helper not
// running": the socket file is missing, or it exists but nothing is
// accepting on it.
func isNoListener(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
