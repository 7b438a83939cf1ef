// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/switchboot/switchboot/lib/clock"
	"github.com/switchboot/switchboot/lib/seal"
)

// State is the server lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Handler runs one connection to completion. It should loop over
// conn.Receive and conn.Send until the peer disconnects or ctx is
// cancelled; returning io.EOF (or nil) marks a clean exit. The server
// closes the connection after the handler returns. Handler errors are
// logged, never propagated — one misbehaving client must not affect
// the others or the accept loop.
type Handler func(ctx context.Context, conn *Conn) error

// DefaultShutdownTimeout bounds how long Stop waits for connection
// handlers to drain before force-closing their streams.
const DefaultShutdownTimeout = 5 * time.Second

// ServerOptions configures optional server behavior. The zero value
// is usable: plaintext transport, default slog logger, real clock.
type ServerOptions struct {
	// Cipher seals all traffic when non-nil. Clients must be
	// configured with the same key; there is no on-wire negotiation.
	Cipher *seal.Cipher

	// Logger receives connection lifecycle and handler error logs.
	Logger *slog.Logger

	// Clock drives the shutdown drain timeout. Tests inject a fake.
	Clock clock.Clock

	// ShutdownTimeout overrides DefaultShutdownTimeout when positive.
	ShutdownTimeout time.Duration

	// SocketMode is applied to the socket file after listen so that
	// unprivileged clients can connect to a root-owned helper.
	// Defaults to 0666; the sealed channel is the trust boundary, not
	// filesystem permissions.
	SocketMode os.FileMode
}

// ConnInfo is the registry's per-connection metadata, exposed for
// diagnostics (the status command reports counts derived from it).
type ConnInfo struct {
	ID          uint64
	ConnectedAt time.Time
}

// Server owns the named endpoint: it accepts connections, registers
// them, and dispatches each to the handler on its own goroutine.
//
// Lifecycle: Stopped → Starting → Running (Start) and Running →
// Stopping → Stopped (Stop). Start after Stop is permitted; the
// server rebinds the socket.
type Server struct {
	socketPath string
	handler    Handler
	options    ServerOptions

	state    atomic.Int32
	listener net.Listener
	cancel   context.CancelFunc
	handlers sync.WaitGroup

	// accepting is closed when the accept loop exits, which is the
	// signal Stop needs beyond the handler WaitGroup.
	accepting chan struct{}

	nextID atomic.Uint64
	served atomic.Uint64

	mu          sync.Mutex
	connections map[uint64]*registered
}

type registered struct {
	info ConnInfo
	conn *Conn
}

// NewServer creates a server for the given socket path and handler.
// Call Start to bind and begin accepting.
func NewServer(socketPath string, handler Handler, options ServerOptions) *Server {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = DefaultShutdownTimeout
	}
	if options.SocketMode == 0 {
		options.SocketMode = 0o666
	}
	return &Server{
		socketPath:  socketPath,
		handler:     handler,
		options:     options,
		connections: make(map[uint64]*registered),
	}
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// ConnectionsServed returns the total number of connections accepted
// since the server was created.
func (s *Server) ConnectionsServed() uint64 {
	return s.served.Load()
}

// Connections returns a snapshot of the active connection registry.
func (s *Server) Connections() []ConnInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]ConnInfo, 0, len(s.connections))
	for _, entry := range s.connections {
		snapshot = append(snapshot, entry.info)
	}
	return snapshot
}

// Start binds the socket and launches the accept loop. Returns an
// error if the server is not in the Stopped state or the socket
// cannot be bound. A stale socket file from a previous run is
// removed before binding.
func (s *Server) Start() error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("transport: server is %s, cannot start", s.State())
	}

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("transport: removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("transport: listening on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, s.options.SocketMode); err != nil {
		listener.Close()
		os.Remove(s.socketPath)
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("transport: setting socket mode: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.listener = listener
	s.cancel = cancel
	s.accepting = make(chan struct{})

	s.state.Store(int32(StateRunning))
	s.options.Logger.Info("server listening",
		"path", s.socketPath,
		"encrypted", s.options.Cipher != nil,
	)

	go s.acceptLoop(ctx)
	return nil
}

// acceptLoop accepts until the listener is closed or ctx is
// cancelled. Individual accept errors are logged and skipped.
func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.accepting)

	for {
		stream, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.options.Logger.Error("accept failed", "error", err)
			continue
		}

		id := s.nextID.Add(1)
		s.served.Add(1)
		conn := newConn(stream, id, s.options.Cipher)
		s.register(conn)

		s.options.Logger.Debug("connection accepted", "connection", id)

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			defer s.unregister(conn.ID())
			defer conn.Close()

			if err := s.handler(ctx, conn); err != nil && err != io.EOF {
				s.options.Logger.Error("connection handler failed",
					"connection", conn.ID(),
					"error", err,
				)
			} else {
				s.options.Logger.Debug("connection closed", "connection", conn.ID())
			}
		}()
	}
}

// Stop transitions Running → Stopping → Stopped: it cancels the
// shared context, closes the listener, and waits up to the shutdown
// timeout for handlers to drain. Handlers still blocked after the
// timeout have their streams force-closed, which fails their pending
// read and lets them exit. Stop on a non-running server is a no-op.
func (s *Server) Stop() error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return nil
	}
	s.options.Logger.Info("server stopping", "active_connections", len(s.Connections()))

	s.cancel()
	s.listener.Close()

	drained := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-s.options.Clock.After(s.options.ShutdownTimeout):
		s.options.Logger.Warn("shutdown timeout reached, force-closing connections",
			"remaining", len(s.Connections()),
		)
		s.closeAll()
		<-drained
	}

	// The accept loop has observed the closed listener by now, but
	// make the ordering explicit before declaring Stopped.
	<-s.accepting

	os.Remove(s.socketPath)
	s.state.Store(int32(StateStopped))
	s.options.Logger.Info("server stopped")
	return nil
}

func (s *Server) register(conn *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[conn.ID()] = &registered{
		info: ConnInfo{ID: conn.ID(), ConnectedAt: s.options.Clock.Now()},
		conn: conn,
	}
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, id)
}

// closeAll force-closes every registered connection's stream.
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.connections {
		entry.conn.Close()
	}
}
