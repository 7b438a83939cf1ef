// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	fake := Fake(time.Unix(1000, 0))
	ch := fake.After(5 * time.Second)

	select {
	case <-ch:
		t.Fatal("timer fired before Advance")
	default:
	}

	fake.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired before its deadline")
	default:
	}

	fake.Advance(time.Second)
	select {
	case fired := <-ch:
		want := time.Unix(1005, 0)
		if !fired.Equal(want) {
			t.Errorf("fire time = %v, want %v", fired, want)
		}
	default:
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	fake := Fake(time.Unix(1000, 0))
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeTickerFiresRepeatedly(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		fake.Advance(time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d missing", i)
		}
	}

	ticker.Stop()
	fake.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeTickerCoalescesMissedTicks(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	// Advance far past several intervals without draining.
	fake.Advance(5 * time.Second)

	drained := 0
	for {
		select {
		case <-ticker.C:
			drained++
			continue
		default:
		}
		break
	}
	if drained != 1 {
		t.Errorf("drained %d coalesced ticks, want 1", drained)
	}
}

func TestFakeNowTracksAdvance(t *testing.T) {
	fake := Fake(time.Unix(100, 0))
	fake.Advance(30 * time.Second)
	if got, want := fake.Now(), time.Unix(130, 0); !got.Equal(want) {
		t.Errorf("Now = %v, want %v", got, want)
	}
}

func TestFakeWaiterCount(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	if fake.WaiterCount() != 0 {
		t.Fatalf("WaiterCount = %d before any timers", fake.WaiterCount())
	}
	fake.After(time.Second)
	fake.After(2 * time.Second)
	if fake.WaiterCount() != 2 {
		t.Fatalf("WaiterCount = %d, want 2", fake.WaiterCount())
	}
	fake.Advance(time.Second)
	if fake.WaiterCount() != 1 {
		t.Fatalf("WaiterCount after firing one = %d, want 1", fake.WaiterCount())
	}
}
