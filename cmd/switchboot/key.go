// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/switchboot/switchboot/lib/keystore"
	"github.com/switchboot/switchboot/lib/seal"
)

func keyCommand() *Command {
	return &Command{
		Name:    "key",
		Summary: "Manage the channel encryption key",
		Subcommands: []*Command{
			keyGenerateCommand(),
			keyFingerprintCommand(),
		},
	}
}

func keyGenerateCommand() *Command {
	s := &session{}
	var force bool
	return &Command{
		Name:    "generate",
		Summary: "Provision a machine-specific channel key (replaces the built-in key; requires root)",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("generate", pflag.ContinueOnError)
			s.flags(flagSet)
			flagSet.BoolVar(&force, "force", false, "overwrite an existing key")
			return flagSet
		},
		Run: func(args []string) error {
			cfg, err := s.config()
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(cfg.Channel.KeyFile); err == nil {
					return fmt.Errorf("%s already exists; use --force to replace it", cfg.Channel.KeyFile)
				}
			}

			identity, err := keystore.GenerateIdentity(cfg.Channel.IdentityFile)
			if err != nil {
				return err
			}
			key, err := seal.GenerateKey()
			if err != nil {
				return err
			}
			defer key.Close()
			fingerprint := seal.Fingerprint(key)
			if err := keystore.Seal(cfg.Channel.KeyFile, identity.Recipient(), key); err != nil {
				return err
			}

			fmt.Printf("channel key %s written to %s\n", fingerprint, cfg.Channel.KeyFile)
			fmt.Println("restart the helper so both sides pick up the new key")
			return nil
		},
	}
}

func keyFingerprintCommand() *Command {
	s := &session{}
	return &Command{
		Name:    "fingerprint",
		Summary: "Show which channel key this machine resolves",
		Flags:   s.flagSet("fingerprint"),
		Run: func(args []string) error {
			cfg, err := s.config()
			if err != nil {
				return err
			}
			key, err := keystore.ResolveKey(cfg.Channel.KeyFile, cfg.Channel.IdentityFile)
			if err != nil {
				return err
			}
			defer key.Close()

			source := "built-in"
			if _, err := os.Stat(cfg.Channel.KeyFile); err == nil {
				source = cfg.Channel.KeyFile
			}
			fmt.Printf("%s (%s)\n", seal.Fingerprint(key), source)
			return nil
		},
	}
}
