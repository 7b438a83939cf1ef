// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport implements the local channel between the
// unprivileged CLI/UI and the privileged helper: a Unix-socket
// endpoint carrying length-framed, optionally sealed messages.
//
// The layering is strict. lib/wire frames opaque payloads, lib/seal
// optionally encrypts them, and this package composes the two into
// Conn, accepts and dispatches connections on the server side
// (Server), and dials with privileged-process bootstrap on the client
// side (Client). Command semantics live above, in lib/ipc and the two
// binaries — the transport never inspects payloads.
//
// This is deliberately not a general RPC framework: one request, one
// response, no pipelining, no streaming, local machine only.
package transport
