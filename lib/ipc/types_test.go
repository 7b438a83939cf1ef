// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/switchboot/switchboot/lib/codec"
)

func uint16Ptr(v uint16) *uint16 { return &v }

func boolPtr(v bool) *bool { return &v }

func TestRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		request Request
		wantErr bool
	}{
		{"empty action", Request{}, true},
		{"status", Request{Action: ActionStatus}, false},
		{"set-boot-next with entry", Request{Action: ActionSetBootNext, Entry: uint16Ptr(2)}, false},
		{"set-boot-next without entry", Request{Action: ActionSetBootNext}, true},
		{"set-boot-order with order", Request{Action: ActionSetBootOrder, Order: []uint16{1, 0}}, false},
		{"set-boot-order empty", Request{Action: ActionSetBootOrder}, true},
		{"set-firmware-setup with flag", Request{Action: ActionSetFirmwareSetup, Enabled: boolPtr(true)}, false},
		{"set-firmware-setup without flag", Request{Action: ActionSetFirmwareSetup}, true},
		{"create-shortcut complete", Request{
			Action:   ActionCreateShortcut,
			Shortcut: &ShortcutSpec{Entry: 3, Directory: "/home/u/Desktop", Name: "Boot Windows"},
		}, false},
		{"create-shortcut missing directory", Request{
			Action:   ActionCreateShortcut,
			Shortcut: &ShortcutSpec{Entry: 3, Name: "Boot Windows"},
		}, true},
		{"unknown action passes validation", Request{Action: "future-action"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.request.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRequestEncodingIsDeterministic(t *testing.T) {
	request := Request{Action: ActionSetBootOrder, Order: []uint16{2, 0, 1}}

	first, err := codec.Marshal(request)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := codec.Marshal(request)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical requests encode to different bytes")
	}
}

func TestSuccessCarriesTypedPayload(t *testing.T) {
	response, err := Success(EntryList{Entries: []BootEntry{
		{ID: 0, Description: "Linux", Active: true, IsDefault: true},
		{ID: 2, Description: "Windows Boot Manager", Active: true, IsBootNext: true},
	}})
	if err != nil {
		t.Fatalf("Success: %v", err)
	}
	if !response.OK {
		t.Fatal("Success produced OK=false")
	}

	var list EntryList
	if err := response.DecodeData(&list); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if len(list.Entries) != 2 || !list.Entries[1].IsBootNext {
		t.Errorf("decoded payload = %+v", list)
	}
}

func TestSuccessWithoutDataHasEmptyPayload(t *testing.T) {
	response, err := Success(nil)
	if err != nil {
		t.Fatalf("Success: %v", err)
	}
	if len(response.Data) != 0 {
		t.Errorf("Data = %x, want empty", response.Data)
	}
	var ignored EntryList
	if err := response.DecodeData(&ignored); err == nil {
		t.Error("DecodeData on empty payload succeeded, want error")
	}
}

func TestFailureCarriesMessage(t *testing.T) {
	response := Failure(errors.New("entry Boot0007 does not exist"))
	if response.OK {
		t.Error("Failure produced OK=true")
	}
	if response.Error != "entry Boot0007 does not exist" {
		t.Errorf("Error = %q", response.Error)
	}
}

func TestRequestRoundTripPreservesOptionalFields(t *testing.T) {
	sent := Request{Action: ActionSetBootNext, Entry: uint16Ptr(7)}
	encoded, err := codec.Marshal(sent)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var received Request
	if err := codec.Unmarshal(encoded, &received); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if received.Action != ActionSetBootNext || received.Entry == nil || *received.Entry != 7 {
		t.Errorf("round trip = %+v", received)
	}
	if received.Enabled != nil || received.Order != nil || received.Shortcut != nil {
		t.Errorf("unset fields decoded non-nil: %+v", received)
	}
}
