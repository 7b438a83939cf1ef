// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package svcunit

import (
	"context"
	"os"
	"strings"
	"testing"
)

type recorder struct {
	calls [][]string
}

func (r *recorder) run(ctx context.Context, args ...string) error {
	r.calls = append(r.calls, args)
	return nil
}

func testUnit() *Unit {
	return &Unit{
		Name:        "switchboot-helper.service",
		Description: "Switchboot boot configuration helper",
		ExecStart:   "/usr/local/bin/switchboot-helper",
	}
}

func TestRender(t *testing.T) {
	content, err := testUnit().Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	text := string(content)
	for _, want := range []string{
		"Description=Switchboot boot configuration helper",
		"ExecStart=/usr/local/bin/switchboot-helper",
		"RuntimeDirectory=switchboot",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("unit file missing %q:\n%s", want, text)
		}
	}
}

func TestInstallWritesUnitAndReloads(t *testing.T) {
	rec := &recorder{}
	m := &Manager{Dir: t.TempDir(), Run: rec.run}

	unit := testUnit()
	if err := m.Install(context.Background(), unit); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if !m.Installed(unit.Name) {
		t.Fatal("Installed = false after Install")
	}
	info, err := os.Stat(m.UnitPath(unit.Name))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("unit mode = %#o, want 0644", info.Mode().Perm())
	}
	if len(rec.calls) != 1 || rec.calls[0][0] != "daemon-reload" {
		t.Errorf("systemctl calls = %v, want [daemon-reload]", rec.calls)
	}
}

func TestUninstall(t *testing.T) {
	rec := &recorder{}
	m := &Manager{Dir: t.TempDir(), Run: rec.run}
	unit := testUnit()
	if err := m.Install(context.Background(), unit); err != nil {
		t.Fatalf("Install: %v", err)
	}

	rec.calls = nil
	if err := m.Uninstall(context.Background(), unit.Name); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if m.Installed(unit.Name) {
		t.Fatal("Installed = true after Uninstall")
	}
	if len(rec.calls) != 2 || rec.calls[0][0] != "stop" || rec.calls[1][0] != "daemon-reload" {
		t.Errorf("systemctl calls = %v, want stop then daemon-reload", rec.calls)
	}
}

func TestUninstallAbsentUnit(t *testing.T) {
	rec := &recorder{}
	m := &Manager{Dir: t.TempDir(), Run: rec.run}
	if err := m.Uninstall(context.Background(), "absent.service"); err != nil {
		t.Fatalf("Uninstall of absent unit: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	rec := &recorder{}
	m := &Manager{Dir: t.TempDir(), Run: rec.run}
	if err := m.Start(context.Background(), "switchboot-helper.service"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Stop(context.Background(), "switchboot-helper.service"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(rec.calls) != 2 {
		t.Fatalf("calls = %v", rec.calls)
	}
	if got := strings.Join(rec.calls[0], " "); got != "start switchboot-helper.service" {
		t.Errorf("first call = %q", got)
	}
	if got := strings.Join(rec.calls[1], " "); got != "stop switchboot-helper.service" {
		t.Errorf("second call = %q", got)
	}
}
