// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package svcunit installs and removes the helper's systemd service
// unit. The unit is the privilege boundary: the CLI runs as the
// desktop user and asks systemd to start the root helper on demand.
package svcunit

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

// DefaultUnitDir is where system units are installed.
const DefaultUnitDir = "/etc/systemd/system"

// Unit describes the helper's service unit.
type Unit struct {
	// Name is the unit file name, e.g. switchboot-helper.service.
	Name string

	// Description is the unit's human-readable description.
	Description string

	// ExecStart is the full helper command line.
	ExecStart string
}

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description={{.Description}}

[Service]
Type=simple
ExecStart={{.ExecStart}}
RuntimeDirectory=switchboot
RuntimeDirectoryMode=0755

[Install]
WantedBy=multi-user.target
`))

// Render produces the unit file contents.
func (u *Unit) Render() ([]byte, error) {
	var out strings.Builder
	if err := unitTemplate.Execute(&out, u); err != nil {
		return nil, fmt.Errorf("svcunit: rendering %s: %w", u.Name, err)
	}
	return []byte(out.String()), nil
}

// Runner executes systemctl. Tests substitute a recorder.
type Runner func(ctx context.Context, args ...string) error

// Systemctl is the Runner used outside tests.
func Systemctl(ctx context.Context, args ...string) error {
	command := exec.CommandContext(ctx, "systemctl", args...)
	if out, err := command.CombinedOutput(); err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Manager installs, removes, and drives the helper unit.
type Manager struct {
	// Dir is the unit directory, DefaultUnitDir when empty.
	Dir string

	// Run executes systemctl, Systemctl when nil.
	Run Runner
}

func (m *Manager) dir() string {
	if m.Dir == "" {
		return DefaultUnitDir
	}
	return m.Dir
}

func (m *Manager) run(ctx context.Context, args ...string) error {
	runner := m.Run
	if runner == nil {
		runner = Systemctl
	}
	return runner(ctx, args...)
}

// UnitPath returns where the unit file for name lives.
func (m *Manager) UnitPath(name string) string {
	return filepath.Join(m.dir(), name)
}

// Install writes the unit file and reloads systemd. The unit is not
// enabled: the helper is started on demand, not at boot.
func (m *Manager) Install(ctx context.Context, unit *Unit) error {
	content, err := unit.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.UnitPath(unit.Name), content, 0o644); err != nil {
		return fmt.Errorf("svcunit: writing unit: %w", err)
	}
	return m.run(ctx, "daemon-reload")
}

// Uninstall stops the unit, removes its file, and reloads systemd.
// Removing an absent unit is not an error.
func (m *Manager) Uninstall(ctx context.Context, name string) error {
	// Best effort: the unit may not be running, or not exist at all.
	_ = m.run(ctx, "stop", name)

	if err := os.Remove(m.UnitPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("svcunit: removing unit: %w", err)
	}
	return m.run(ctx, "daemon-reload")
}

// Installed reports whether the unit file is present.
func (m *Manager) Installed(name string) bool {
	_, err := os.Stat(m.UnitPath(name))
	return err == nil
}

// Start asks systemd to start the unit.
func (m *Manager) Start(ctx context.Context, name string) error {
	return m.run(ctx, "start", name)
}

// Stop asks systemd to stop the unit.
func (m *Manager) Stop(ctx context.Context, name string) error {
	return m.run(ctx, "stop", name)
}
