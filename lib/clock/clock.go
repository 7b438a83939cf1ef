// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability. Production
// code injects Real(); tests inject Fake() and advance time
// deterministically. The client's bootstrap retry loop and the
// server's shutdown drain are the two time-sensitive paths, and both
// take a Clock so their timeout behavior is testable without real
// waiting.
package clock

import "time"

// Clock abstracts the subset of the time package Switchboot uses.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. If d <= 0, the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker that delivers ticks on its C channel
	// at the specified interval. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker

	// Sleep pauses the current goroutine for at least duration d.
	Sleep(d time.Duration)
}

// Ticker delivers ticks on C at a fixed interval. Stop releases the
// ticker's resources; it does not close C.
type Ticker struct {
	C        <-chan time.Time
	stopFunc func()
}

// Stop turns off the ticker.
func (t *Ticker) Stop() {
	t.stopFunc()
}
