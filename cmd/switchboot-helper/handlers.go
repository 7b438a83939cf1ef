// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/switchboot/switchboot/lib/clock"
	"github.com/switchboot/switchboot/lib/codec"
	"github.com/switchboot/switchboot/lib/firmware"
	"github.com/switchboot/switchboot/lib/ipc"
	"github.com/switchboot/switchboot/lib/shortcut"
	"github.com/switchboot/switchboot/lib/svcunit"
	"github.com/switchboot/switchboot/lib/version"
	"github.com/switchboot/switchboot/transport"
)

// helper owns the command dispatch for one running helper process.
type helper struct {
	store     firmware.Store
	units     *svcunit.Manager
	unit      *svcunit.Unit
	systemctl svcunit.Runner
	logger    *slog.Logger
	clock     clock.Clock
	started   time.Time
	encrypted bool

	// server is set once the transport server exists; only the status
	// action reads it.
	server *transport.Server
}

// handle is the per-connection loop: one request in, one response out,
// until the client hangs up or the server shuts the connection down.
func (h *helper) handle(ctx context.Context, conn *transport.Conn) error {
	for {
		payload, err := conn.Receive()
		if err != nil {
			return err
		}

		var request ipc.Request
		if err := codec.Unmarshal(payload, &request); err != nil {
			h.logger.Warn("undecodable request", "conn", conn.ID(), "error", err)
			if err := h.send(conn, ipc.Failure(fmt.Errorf("undecodable request: %w", err))); err != nil {
				return err
			}
			continue
		}

		response := h.dispatch(ctx, &request)
		if !response.OK {
			h.logger.Warn("request failed", "conn", conn.ID(), "action", request.Action, "error", response.Error)
		} else {
			h.logger.Debug("request served", "conn", conn.ID(), "action", request.Action)
		}
		if err := h.send(conn, response); err != nil {
			return err
		}

		// The reboot reply must reach the client before the machine
		// goes down, so the trigger runs after the send.
		if request.Action == ipc.ActionReboot && response.OK {
			if err := h.systemctl(ctx, "reboot"); err != nil {
				h.logger.Error("reboot failed", "error", err)
			}
		}
	}
}

func (h *helper) send(conn *transport.Conn, response ipc.Response) error {
	payload, err := codec.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}
	return conn.Send(payload)
}

func (h *helper) dispatch(ctx context.Context, request *ipc.Request) ipc.Response {
	if err := request.Validate(); err != nil {
		return ipc.Failure(err)
	}

	var (
		data any
		err  error
	)
	switch request.Action {
	case ipc.ActionGetBootEntries:
		data, err = h.bootEntries()
	case ipc.ActionGetBootOrder:
		data, err = h.bootOrder()
	case ipc.ActionSetBootOrder:
		err = h.setBootOrder(request.Order)
	case ipc.ActionGetBootNext:
		data, err = h.optionalEntry(h.store.BootNext)
	case ipc.ActionSetBootNext:
		err = h.setBootNext(*request.Entry)
	case ipc.ActionUnsetBootNext:
		err = h.store.UnsetBootNext()
	case ipc.ActionGetBootCurrent:
		data, err = h.optionalEntry(h.store.BootCurrent)
	case ipc.ActionGetFirmwareSetup:
		data, err = h.firmwareSetup()
	case ipc.ActionSetFirmwareSetup:
		err = h.store.SetFirmwareSetup(*request.Enabled)
	case ipc.ActionReboot:
		// The trigger runs in handle, after the response is sent.
	case ipc.ActionCreateShortcut:
		data, err = h.createShortcut(request.Shortcut)
	case ipc.ActionInstallHelper:
		err = h.units.Install(ctx, h.unit)
	case ipc.ActionUninstallHelper:
		err = h.units.Uninstall(ctx, h.unit.Name)
	case ipc.ActionStatus:
		data = h.status()
	default:
		err = fmt.Errorf("unknown action %q", request.Action)
	}
	if err != nil {
		return ipc.Failure(err)
	}

	response, err := ipc.Success(data)
	if err != nil {
		return ipc.Failure(err)
	}
	return response
}

func (h *helper) bootEntries() (*ipc.EntryList, error) {
	order, err := h.store.BootOrder()
	if err != nil {
		return nil, err
	}
	next, err := h.store.BootNext()
	if err != nil {
		return nil, err
	}
	current, err := h.store.BootCurrent()
	if err != nil {
		return nil, err
	}
	ids, err := h.store.EntryIDs()
	if err != nil {
		return nil, err
	}

	list := &ipc.EntryList{Entries: make([]ipc.BootEntry, 0, len(ids))}
	for _, id := range ids {
		option, err := h.store.Entry(id)
		if err != nil {
			return nil, err
		}
		list.Entries = append(list.Entries, ipc.BootEntry{
			ID:          id,
			Description: option.Description,
			Active:      option.IsActive(),
			IsDefault:   len(order) > 0 && id == order[0],
			IsBootNext:  next != nil && id == *next,
			IsCurrent:   current != nil && id == *current,
		})
	}
	return list, nil
}

func (h *helper) bootOrder() (*ipc.BootOrder, error) {
	order, err := h.store.BootOrder()
	if err != nil {
		return nil, err
	}
	return &ipc.BootOrder{Order: order}, nil
}

func (h *helper) setBootOrder(order []uint16) error {
	seen := make(map[uint16]bool, len(order))
	for _, id := range order {
		if seen[id] {
			return fmt.Errorf("entry %s appears twice in the requested order", firmware.EntryName(id))
		}
		seen[id] = true
		if err := h.requireEntry(id); err != nil {
			return err
		}
	}
	return h.store.SetBootOrder(order)
}

func (h *helper) setBootNext(id uint16) error {
	if err := h.requireEntry(id); err != nil {
		return err
	}
	return h.store.SetBootNext(id)
}

// requireEntry rejects references to boot entries that do not exist,
// so a typo never lands in firmware variables.
func (h *helper) requireEntry(id uint16) error {
	if _, err := h.store.Entry(id); err != nil {
		return err
	}
	return nil
}

func (h *helper) optionalEntry(read func() (*uint16, error)) (*ipc.OptionalEntry, error) {
	entry, err := read()
	if err != nil {
		return nil, err
	}
	return &ipc.OptionalEntry{Entry: entry}, nil
}

func (h *helper) firmwareSetup() (*ipc.FirmwareSetup, error) {
	supported, err := h.store.FirmwareSetupSupported()
	if err != nil {
		return nil, err
	}
	setup := &ipc.FirmwareSetup{Supported: supported}
	if supported {
		if setup.Enabled, err = h.store.FirmwareSetup(); err != nil {
			return nil, err
		}
	}
	return setup, nil
}

func (h *helper) createShortcut(spec *ipc.ShortcutSpec) (map[string]string, error) {
	if err := h.requireEntry(spec.Entry); err != nil {
		return nil, err
	}
	path, err := (&shortcut.Spec{
		Entry:      spec.Entry,
		Name:       spec.Name,
		Directory:  spec.Directory,
		Reboot:     spec.Reboot,
		Executable: "switchboot",
	}).Write()
	if err != nil {
		return nil, err
	}
	return map[string]string{"path": path}, nil
}

func (h *helper) status() *ipc.Status {
	status := &ipc.Status{
		Version:       version.String(),
		UptimeSeconds: int64(h.clock.Now().Sub(h.started).Seconds()),
		Encrypted:     h.encrypted,
	}
	if h.server != nil {
		status.ConnectionsServed = h.server.ConnectionsServed()
	}
	return status
}
