// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Bootstrap starts the privileged helper when a client finds no
// listener on the socket. Implementations only need to get the
// process starting — the client's retry loop handles waiting for the
// socket to appear.
type Bootstrap interface {
	Start(ctx context.Context) error
}

// SystemdBootstrap starts the helper through its systemd unit. This
// is the normal desktop path: the unit runs the helper as root while
// the requesting user stays unprivileged.
type SystemdBootstrap struct {
	// Unit is the systemd unit name, e.g. "switchboot-helper.service".
	Unit string
}

// Start invokes systemctl start. systemctl handles the polkit
// interaction if the calling user needs authorization.
func (b *SystemdBootstrap) Start(ctx context.Context) error {
	output, err := exec.CommandContext(ctx, "systemctl", "start", b.Unit).CombinedOutput()
	if err != nil {
		return fmt.Errorf("starting unit %s: %w: %s", b.Unit, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// CommandBootstrap launches an arbitrary command, typically an
// elevated one-shot helper invocation such as
// pkexec switchboot-helper --single-run. Used on systems without the
// systemd unit installed.
type CommandBootstrap struct {
	// Argv is the command and its arguments. Must be non-empty.
	Argv []string
}

// Start launches the command without waiting for it to exit — the
// helper is expected to keep running past the bootstrap.
func (b *CommandBootstrap) Start(ctx context.Context) error {
	if len(b.Argv) == 0 {
		return fmt.Errorf("bootstrap command is empty")
	}
	command := exec.CommandContext(ctx, b.Argv[0], b.Argv[1:]...)
	if err := command.Start(); err != nil {
		return fmt.Errorf("launching %s: %w", b.Argv[0], err)
	}
	// Reap the child when it exits so one-shot bootstrap commands do
	// not accumulate as zombies.
	go command.Wait()
	return nil
}
