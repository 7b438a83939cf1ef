// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{
		"action": "set-boot-next",
		"entry":  uint16(2),
		"flags":  []string{"a", "b"},
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal (iteration %d): %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("non-deterministic encoding:\n  first: %x\n  again: %x", first, again)
		}
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	encoded, err := Marshal(map[string]any{
		"action":       "status",
		"new_field":    "from-a-newer-build",
		"other_future": 42,
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		Action string `cbor:"action"`
	}
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Action != "status" {
		t.Errorf("Action = %q, want %q", decoded.Action, "status")
	}
}

func TestDefaultMapTypeIsStringKeyed(t *testing.T) {
	encoded, err := Marshal(map[string]any{"outer": map[string]any{"inner": 1}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Fatalf("nested type = %T, want map[string]any", outer["outer"])
	}
}

func TestStreamRoundTrip(t *testing.T) {
	type message struct {
		Action string `cbor:"action"`
		Order  []uint16 `cbor:"order,omitempty"`
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	sent := []message{
		{Action: "get-boot-order"},
		{Action: "set-boot-order", Order: []uint16{3, 1, 2}},
	}
	for _, m := range sent {
		if err := encoder.Encode(m); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range sent {
		var got message
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode message %d: %v", i, err)
		}
		if got.Action != want.Action || len(got.Order) != len(want.Order) {
			t.Errorf("message %d = %+v, want %+v", i, got, want)
		}
	}
}
