// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package firmware

import (
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Store holding boot configuration in plain
// maps. It backs the helper's mock mode and the test suites; it never
// touches the machine.
type Memory struct {
	mu sync.Mutex

	entries        map[uint16]*LoadOption
	order          []uint16
	next           *uint16
	current        *uint16
	setupSupported bool
	setupArmed     bool
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store with boot-to-firmware-UI
// support advertised.
func NewMemory() *Memory {
	return &Memory{
		entries:        make(map[uint16]*LoadOption),
		setupSupported: true,
	}
}

// AddEntry registers a load option under the given identifier and
// appends it to the boot order.
func (m *Memory) AddEntry(id uint16, option *LoadOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = option
	m.order = append(m.order, id)
}

// SetBootCurrent fixes the entry reported as the running session's
// boot source.
func (m *Memory) SetBootCurrent(id uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &id
}

// SetSetupSupported controls whether the store advertises the
// boot-to-firmware-UI capability.
func (m *Memory) SetSetupSupported(supported bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setupSupported = supported
}

func (m *Memory) Supported() bool { return true }

func (m *Memory) BootOrder() ([]uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint16(nil), m.order...), nil
}

func (m *Memory) SetBootOrder(order []uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append([]uint16(nil), order...)
	return nil
}

func (m *Memory) BootNext() (*uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyID(m.next), nil
}

func (m *Memory) SetBootNext(id uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("firmware: entry %s does not exist", EntryName(id))
	}
	m.next = &id
	return nil
}

func (m *Memory) UnsetBootNext() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = nil
	return nil
}

func (m *Memory) BootCurrent() (*uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyID(m.current), nil
}

func (m *Memory) EntryIDs() ([]uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint16, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) Entry(id uint16) (*LoadOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	option, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("firmware: entry %s does not exist", EntryName(id))
	}
	clone := *option
	return &clone, nil
}

func (m *Memory) FirmwareSetupSupported() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setupSupported, nil
}

func (m *Memory) FirmwareSetup() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setupArmed, nil
}

func (m *Memory) SetFirmwareSetup(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled && !m.setupSupported {
		return fmt.Errorf("firmware: boot-to-firmware-setup is not supported by this firmware")
	}
	m.setupArmed = enabled
	return nil
}

func copyID(id *uint16) *uint16 {
	if id == nil {
		return nil
	}
	clone := *id
	return &clone
}
