// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build's identity, stamped at build time:
//
//	go build -ldflags "-X github.com/switchboot/switchboot/lib/version.Version=1.2.0 \
//	                   -X github.com/switchboot/switchboot/lib/version.Commit=abc1234"
package version

import "fmt"

var (
	// Version is the semantic version of this build.
	Version = "0.0.0-dev"

	// Commit is the short VCS revision of this build.
	Commit = "unknown"
)

// String formats the version for --version output and status replies.
func String() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
