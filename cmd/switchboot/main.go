// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Switchboot is the unprivileged command-line client. Every boot
// configuration change goes through the privileged helper over its
// Unix socket; the CLI itself never touches UEFI variables.
package main

import (
	"fmt"
	"os"

	"github.com/switchboot/switchboot/lib/version"
)

func main() {
	root := &Command{
		Name:    "switchboot",
		Summary: "Choose what your machine boots next",
		Subcommands: []*Command{
			listCommand(),
			setBootNextCommand(),
			unsetBootNextCommand(),
			bootOrderCommand(),
			firmwareSetupCommand(),
			rebootCommand(),
			shortcutCommand(),
			statusCommand(),
			keyCommand(),
			helperCommand(),
			versionCommand(),
		},
	}

	if err := root.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func versionCommand() *Command {
	return &Command{
		Name:    "version",
		Summary: "Print the client version",
		Run: func(args []string) error {
			fmt.Println(version.String())
			return nil
		},
	}
}
