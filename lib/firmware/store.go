// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package firmware provides typed access to the UEFI boot manager
// variables: BootOrder, BootNext, BootCurrent, the Boot#### load
// options, and the OsIndications boot-to-firmware-UI flag.
//
// The Store interface is the seam between the helper's command
// handlers and the machine: Efivars is the real implementation on
// efivarfs, Memory is a deterministic in-process fake for tests and
// the helper's mock mode.
package firmware

import "fmt"

// Store is the firmware boot configuration as seen by the helper's
// command handlers. This is the only abstraction through which boot
// variables are mutated.
type Store interface {
	// Supported reports whether firmware variables are accessible on
	// this system.
	Supported() bool

	// BootOrder returns the persisted boot order. A firmware without
	// a BootOrder variable reports an empty order.
	BootOrder() ([]uint16, error)

	// SetBootOrder replaces the persisted boot order.
	SetBootOrder(order []uint16) error

	// BootNext returns the armed one-shot boot target, or nil when
	// none is armed.
	BootNext() (*uint16, error)

	// SetBootNext arms entry id as the one-shot target for the next
	// boot only.
	SetBootNext(id uint16) error

	// UnsetBootNext disarms the one-shot target. Disarming when
	// nothing is armed is not an error.
	UnsetBootNext() error

	// BootCurrent returns the entry the firmware selected for the
	// running session, or nil when the firmware does not report it.
	BootCurrent() (*uint16, error)

	// EntryIDs returns the identifiers of all discoverable Boot####
	// variables, sorted ascending. Not limited to entries listed in
	// BootOrder.
	EntryIDs() ([]uint16, error)

	// Entry returns the decoded load option for one entry.
	Entry(id uint16) (*LoadOption, error)

	// FirmwareSetupSupported reports whether the firmware advertises
	// the boot-to-firmware-UI capability in OsIndicationsSupported.
	FirmwareSetupSupported() (bool, error)

	// FirmwareSetup reports whether the boot-to-firmware-UI flag is
	// currently armed in OsIndications.
	FirmwareSetup() (bool, error)

	// SetFirmwareSetup arms or disarms the boot-to-firmware-UI flag.
	SetFirmwareSetup(enabled bool) error
}

// EntryName formats an entry identifier as its variable name, e.g.
// 2 → "Boot0002".
func EntryName(id uint16) string {
	return fmt.Sprintf("Boot%04X", id)
}

// bootToFirmwareUI is the OsIndications bit requesting the firmware
// setup UI on next boot (EFI_OS_INDICATIONS_BOOT_TO_FW_UI).
const bootToFirmwareUI uint64 = 0x0000000000000001
