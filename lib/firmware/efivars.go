// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package firmware

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/switchboot/switchboot/lib/efivar"
)

// Efivars is the Store backed by the real efivarfs filesystem. All
// methods require the privileges of the helper process; unprivileged
// access fails at the filesystem layer.
type Efivars struct {
	fs *efivar.FS
}

var _ Store = (*Efivars)(nil)

// NewEfivars creates a Store over the given efivar filesystem.
func NewEfivars(fs *efivar.FS) *Efivars {
	return &Efivars{fs: fs}
}

func (e *Efivars) Supported() bool {
	return e.fs.Supported()
}

func (e *Efivars) BootOrder() ([]uint16, error) {
	data, _, err := e.fs.Get("BootOrder")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("firmware: reading BootOrder: %w", err)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("firmware: BootOrder has odd length %d", len(data))
	}

	order := make([]uint16, len(data)/2)
	for i := range order {
		order[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return order, nil
}

func (e *Efivars) SetBootOrder(order []uint16) error {
	data := make([]byte, len(order)*2)
	for i, id := range order {
		binary.LittleEndian.PutUint16(data[i*2:], id)
	}
	if err := e.fs.Set("BootOrder", efivar.DefaultAttributes, data); err != nil {
		return fmt.Errorf("firmware: writing BootOrder: %w", err)
	}
	return nil
}

func (e *Efivars) BootNext() (*uint16, error) {
	return e.readOptionalEntry("BootNext")
}

func (e *Efivars) SetBootNext(id uint16) error {
	var data [2]byte
	binary.LittleEndian.PutUint16(data[:], id)
	if err := e.fs.Set("BootNext", efivar.DefaultAttributes, data[:]); err != nil {
		return fmt.Errorf("firmware: writing BootNext: %w", err)
	}
	return nil
}

func (e *Efivars) UnsetBootNext() error {
	if err := e.fs.Delete("BootNext"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("firmware: deleting BootNext: %w", err)
	}
	return nil
}

func (e *Efivars) BootCurrent() (*uint16, error) {
	return e.readOptionalEntry("BootCurrent")
}

func (e *Efivars) readOptionalEntry(name string) (*uint16, error) {
	data, _, err := e.fs.Get(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("firmware: reading %s: %w", name, err)
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("firmware: %s is %d bytes, want 2", name, len(data))
	}
	id := binary.LittleEndian.Uint16(data)
	return &id, nil
}

func (e *Efivars) EntryIDs() ([]uint16, error) {
	names, err := e.fs.List()
	if err != nil {
		return nil, err
	}

	var ids []uint16
	for _, name := range names {
		if !strings.HasPrefix(name, "Boot") || len(name) != 8 {
			continue
		}
		parsed, err := strconv.ParseUint(name[4:], 16, 16)
		if err != nil {
			// BootOrder, BootNext and friends also start with
			// "Boot"; anything that is not four hex digits is not a
			// load option.
			continue
		}
		ids = append(ids, uint16(parsed))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (e *Efivars) Entry(id uint16) (*LoadOption, error) {
	data, _, err := e.fs.Get(EntryName(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("firmware: entry %s does not exist", EntryName(id))
		}
		return nil, fmt.Errorf("firmware: reading %s: %w", EntryName(id), err)
	}
	option, err := ParseLoadOption(data)
	if err != nil {
		return nil, fmt.Errorf("firmware: %s: %w", EntryName(id), err)
	}
	return option, nil
}

func (e *Efivars) FirmwareSetupSupported() (bool, error) {
	supported, err := e.readIndications("OsIndicationsSupported")
	if err != nil {
		return false, err
	}
	return supported&bootToFirmwareUI != 0, nil
}

func (e *Efivars) FirmwareSetup() (bool, error) {
	indications, err := e.readIndications("OsIndications")
	if err != nil {
		return false, err
	}
	return indications&bootToFirmwareUI != 0, nil
}

func (e *Efivars) SetFirmwareSetup(enabled bool) error {
	if enabled {
		supported, err := e.FirmwareSetupSupported()
		if err != nil {
			return err
		}
		if !supported {
			return fmt.Errorf("firmware: boot-to-firmware-setup is not supported by this firmware")
		}
	}

	indications, err := e.readIndications("OsIndications")
	if err != nil {
		return err
	}
	if enabled {
		indications |= bootToFirmwareUI
	} else {
		indications &^= bootToFirmwareUI
	}

	var data [8]byte
	binary.LittleEndian.PutUint64(data[:], indications)
	if err := e.fs.Set("OsIndications", efivar.DefaultAttributes, data[:]); err != nil {
		return fmt.Errorf("firmware: writing OsIndications: %w", err)
	}
	return nil
}

// readIndications reads a u64 indications variable, treating a
// missing variable as zero.
func (e *Efivars) readIndications(name string) (uint64, error) {
	data, _, err := e.fs.Get(name)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("firmware: reading %s: %w", name, err)
	}
	if len(data) < 8 {
		return 0, fmt.Errorf("firmware: %s is %d bytes, want 8", name, len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}
