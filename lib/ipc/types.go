// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"fmt"

	"github.com/switchboot/switchboot/lib/codec"
)

// Actions understood by the helper. The set is closed and versionless:
// an unknown action is answered with a failure response, which is how
// a newer client degrades against an older helper.
const (
	ActionGetBootEntries   = "get-boot-entries"
	ActionGetBootOrder     = "get-boot-order"
	ActionSetBootOrder     = "set-boot-order"
	ActionGetBootNext      = "get-boot-next"
	ActionSetBootNext      = "set-boot-next"
	ActionUnsetBootNext    = "unset-boot-next"
	ActionGetBootCurrent   = "get-boot-current"
	ActionGetFirmwareSetup = "get-firmware-setup"
	ActionSetFirmwareSetup = "set-firmware-setup"
	ActionReboot           = "reboot"
	ActionCreateShortcut   = "create-shortcut"
	ActionInstallHelper    = "install-helper"
	ActionUninstallHelper  = "uninstall-helper"
	ActionStatus           = "status"
)

// Request is one command from the CLI or UI to the helper. Exactly the
// fields needed by the action are set; the rest stay at their zero
// value and are omitted from the encoding.
type Request struct {
	// Action selects the operation. Always required.
	Action string `cbor:"action"`

	// Entry is the boot entry identifier (the #### in Boot####) for
	// set-boot-next.
	Entry *uint16 `cbor:"entry,omitempty"`

	// Order is the full replacement boot order for set-boot-order.
	Order []uint16 `cbor:"order,omitempty"`

	// Enabled is the desired boot-to-firmware-setup state for
	// set-firmware-setup.
	Enabled *bool `cbor:"enabled,omitempty"`

	// Shortcut describes the launcher to create for create-shortcut.
	Shortcut *ShortcutSpec `cbor:"shortcut,omitempty"`
}

// ShortcutSpec describes a desktop launcher bound to a boot action.
// The helper writes the .desktop file; path and naming come from the
// caller because the helper has no notion of the user's desktop
// layout.
type ShortcutSpec struct {
	// Entry is the boot entry the shortcut targets.
	Entry uint16 `cbor:"entry"`

	// Directory is the absolute directory to write the launcher into.
	Directory string `cbor:"directory"`

	// Name is the launcher's display name. Also used (sanitized) for
	// the file name.
	Name string `cbor:"name"`

	// Reboot makes the shortcut restart the machine immediately after
	// arming the one-shot entry.
	Reboot bool `cbor:"reboot"`
}

// Validate checks that the request carries the fields its action
// requires. The helper validates before dispatching so that handlers
// can assume well-formed input.
func (r *Request) Validate() error {
	switch r.Action {
	case "":
		return fmt.Errorf("missing required field: action")
	case ActionSetBootNext:
		if r.Entry == nil {
			return fmt.Errorf("%s requires an entry", r.Action)
		}
	case ActionSetBootOrder:
		if len(r.Order) == 0 {
			return fmt.Errorf("%s requires a non-empty order", r.Action)
		}
	case ActionSetFirmwareSetup:
		if r.Enabled == nil {
			return fmt.Errorf("%s requires enabled", r.Action)
		}
	case ActionCreateShortcut:
		if r.Shortcut == nil {
			return fmt.Errorf("%s requires a shortcut spec", r.Action)
		}
		if r.Shortcut.Directory == "" || r.Shortcut.Name == "" {
			return fmt.Errorf("%s requires shortcut directory and name", r.Action)
		}
	}
	return nil
}

// Response is the helper's reply to one Request. A failed response
// carries only the error message; a successful one optionally carries
// action-specific data.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// Success builds a success response, marshaling data into the Data
// field when non-nil.
func Success(data any) (Response, error) {
	response := Response{OK: true}
	if data != nil {
		encoded, err := codec.Marshal(data)
		if err != nil {
			return Response{}, fmt.Errorf("ipc: marshaling response data: %w", err)
		}
		response.Data = encoded
	}
	return response, nil
}

// Failure builds a failure response carrying the error's message.
func Failure(err error) Response {
	return Response{OK: false, Error: err.Error()}
}

// DecodeData unmarshals the response's data payload into v. Returns
// an error if the response has no data.
func (r *Response) DecodeData(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("ipc: response has no data payload")
	}
	return codec.Unmarshal(r.Data, v)
}

// BootEntry is one firmware boot option as reported to clients.
type BootEntry struct {
	// ID is the #### in the Boot#### variable name.
	ID uint16 `cbor:"id"`

	// Description is the human-readable label from the load option.
	Description string `cbor:"description"`

	// Active is the LOAD_OPTION_ACTIVE attribute bit — inactive
	// entries exist but are skipped by the boot manager.
	Active bool `cbor:"active"`

	// IsDefault marks the first entry of the persisted boot order.
	IsDefault bool `cbor:"is_default"`

	// IsBootNext marks the armed one-shot target, if any.
	IsBootNext bool `cbor:"is_bootnext"`

	// IsCurrent marks the entry the firmware booted this session.
	IsCurrent bool `cbor:"is_current"`
}

// EntryList is the payload of a get-boot-entries response.
type EntryList struct {
	Entries []BootEntry `cbor:"entries"`
}

// BootOrder is the payload of a get-boot-order response.
type BootOrder struct {
	Order []uint16 `cbor:"order"`
}

// OptionalEntry is the payload of get-boot-next and get-boot-current
// responses. Entry is nil when the variable is unset.
type OptionalEntry struct {
	Entry *uint16 `cbor:"entry,omitempty"`
}

// FirmwareSetup is the payload of a get-firmware-setup response.
type FirmwareSetup struct {
	// Supported reports whether the firmware advertises the
	// boot-to-firmware-UI capability at all.
	Supported bool `cbor:"supported"`

	// Enabled reports whether the flag is currently armed.
	Enabled bool `cbor:"enabled"`
}

// Status is the payload of a status response.
type Status struct {
	Version           string `cbor:"version"`
	UptimeSeconds     int64  `cbor:"uptime_seconds"`
	ConnectionsServed uint64 `cbor:"connections_served"`
	Encrypted         bool   `cbor:"encrypted"`
}
