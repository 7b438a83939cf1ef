// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc defines the CBOR-encoded command and response types
// exchanged between the unprivileged CLI/UI and the privileged helper.
// Both cmd/switchboot and cmd/switchboot-helper import this package so
// the wire vocabulary is defined once rather than mirrored.
//
// The deterministic CBOR encoding of a Request is exactly the payload
// handed to the transport — there is no additional envelope. Strict
// request→response pairing applies: one Request per exchange, one
// Response back, no pipelining.
package ipc
