// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/spf13/pflag"

	"github.com/switchboot/switchboot/lib/svcunit"
)

func helperCommand() *Command {
	return &Command{
		Name:    "helper",
		Summary: "Install or remove the privileged helper service",
		Subcommands: []*Command{
			helperInstallCommand(),
			helperUninstallCommand(),
		},
	}
}

func helperInstallCommand() *Command {
	s := &session{}
	var execStart string
	return &Command{
		Name:    "install",
		Summary: "Install the helper's systemd unit (requires root)",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("install", pflag.ContinueOnError)
			s.flags(flagSet)
			flagSet.StringVar(&execStart, "exec", "", "helper binary path (default: switchboot-helper on PATH)")
			return flagSet
		},
		Run: func(args []string) error {
			cfg, err := s.config()
			if err != nil {
				return err
			}

			if execStart == "" {
				if execStart, err = exec.LookPath("switchboot-helper"); err != nil {
					return fmt.Errorf("switchboot-helper not found on PATH; install it or pass --exec")
				}
			}

			manager := &svcunit.Manager{}
			unit := &svcunit.Unit{
				Name:        cfg.Helper.Unit,
				Description: "Switchboot boot configuration helper",
				ExecStart:   execStart,
			}
			if err := manager.Install(context.Background(), unit); err != nil {
				return err
			}
			fmt.Printf("installed %s\n", manager.UnitPath(unit.Name))
			return nil
		},
	}
}

func helperUninstallCommand() *Command {
	s := &session{}
	return &Command{
		Name:    "uninstall",
		Summary: "Stop and remove the helper's systemd unit (requires root)",
		Flags:   s.flagSet("uninstall"),
		Run: func(args []string) error {
			cfg, err := s.config()
			if err != nil {
				return err
			}
			manager := &svcunit.Manager{}
			if err := manager.Uninstall(context.Background(), cfg.Helper.Unit); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", cfg.Helper.Unit)
			return nil
		},
	}
}
