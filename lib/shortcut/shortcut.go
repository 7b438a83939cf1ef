// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package shortcut writes freedesktop .desktop launchers that arm a
// one-shot boot target and reboot in a single click.
package shortcut

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Spec describes one launcher.
type Spec struct {
	// Entry is the Boot#### identifier the launcher arms.
	Entry uint16

	// Name is the launcher's display name, typically the entry's
	// description.
	Name string

	// Directory is where the .desktop file is written. Empty means
	// the user's desktop directory.
	Directory string

	// Reboot makes the launcher reboot immediately after arming.
	Reboot bool

	// Executable is the switchboot binary the launcher invokes. Empty
	// means the running executable.
	Executable string
}

// DefaultDirectory returns the user's desktop directory.
func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("shortcut: resolving home directory: %w", err)
	}
	return filepath.Join(home, "Desktop"), nil
}

// FileName returns the .desktop file name for the spec.
func (s *Spec) FileName() string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\x00':
			return '-'
		}
		return r
	}, s.Name)
	if name == "" {
		name = fmt.Sprintf("boot-entry-%04X", s.Entry)
	}
	return "Boot " + name + ".desktop"
}

// Render produces the .desktop file contents.
func (s *Spec) Render() ([]byte, error) {
	executable := s.Executable
	if executable == "" {
		path, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("shortcut: resolving executable: %w", err)
		}
		executable = path
	}

	command := fmt.Sprintf("%s set-boot-next %d", executable, s.Entry)
	if s.Reboot {
		command += " --reboot"
	}

	var out strings.Builder
	out.WriteString("[Desktop Entry]\n")
	out.WriteString("Type=Application\n")
	fmt.Fprintf(&out, "Name=Boot %s\n", s.Name)
	fmt.Fprintf(&out, "Comment=Arm %s for the next boot\n", s.Name)
	fmt.Fprintf(&out, "Exec=%s\n", command)
	out.WriteString("Icon=system-reboot\n")
	out.WriteString("Terminal=false\n")
	out.WriteString("Categories=System;\n")
	return []byte(out.String()), nil
}

// Write renders the launcher into its directory and returns the path.
// The file is marked executable, which desktops require before they
// honor a launcher.
func (s *Spec) Write() (string, error) {
	directory := s.Directory
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return "", err
		}
	}

	content, err := s.Render()
	if err != nil {
		return "", err
	}

	path := filepath.Join(directory, s.FileName())
	if err := os.WriteFile(path, content, 0o755); err != nil {
		return "", fmt.Errorf("shortcut: writing %s: %w", path, err)
	}
	return path, nil
}
