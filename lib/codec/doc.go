// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Switchboot's standard CBOR encoding
// configuration.
//
// Every message that crosses the helper socket — commands from the CLI
// or UI, responses from the privileged helper — is encoded with the
// modes defined here. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, so the framed wire payload is reproducible on both ends
// without any version negotiation.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// The decoder ignores unknown fields, so a newer CLI talking to an
// older helper degrades to an "unknown action" error rather than a
// decode failure.
package codec
