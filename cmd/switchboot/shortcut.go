// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/switchboot/switchboot/lib/firmware"
	"github.com/switchboot/switchboot/lib/ipc"
	"github.com/switchboot/switchboot/lib/shortcut"
)

func shortcutCommand() *Command {
	s := &session{}
	var (
		name      string
		directory string
		reboot    bool
	)
	return &Command{
		Name:    "shortcut",
		Summary: "Create a desktop launcher that boots an entry",
		Usage:   "switchboot shortcut <entry> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("shortcut", pflag.ContinueOnError)
			s.flags(flagSet)
			flagSet.StringVar(&name, "name", "", "launcher name (default: the entry's description)")
			flagSet.StringVar(&directory, "dir", "", "directory to write the launcher into (default: your desktop)")
			flagSet.BoolVar(&reboot, "reboot", true, "make the launcher reboot immediately after arming")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one boot entry")
			}
			entry, err := parseEntry(args[0])
			if err != nil {
				return err
			}

			// The helper has no notion of this user's desktop, so
			// defaults resolve here.
			if directory == "" {
				if directory, err = shortcut.DefaultDirectory(); err != nil {
					return err
				}
			}
			if name == "" {
				if name, err = s.entryDescription(entry); err != nil {
					return err
				}
			}

			response, err := s.call(ipc.Request{
				Action: ipc.ActionCreateShortcut,
				Shortcut: &ipc.ShortcutSpec{
					Entry:     entry,
					Directory: directory,
					Name:      name,
					Reboot:    reboot,
				},
			})
			if err != nil {
				return err
			}
			var created map[string]string
			if err := response.DecodeData(&created); err != nil {
				return err
			}
			fmt.Printf("created %s\n", created["path"])
			return nil
		},
	}
}

func (s *session) entryDescription(id uint16) (string, error) {
	response, err := s.call(ipc.Request{Action: ipc.ActionGetBootEntries})
	if err != nil {
		return "", err
	}
	var list ipc.EntryList
	if err := response.DecodeData(&list); err != nil {
		return "", err
	}
	for _, entry := range list.Entries {
		if entry.ID == id {
			return entry.Description, nil
		}
	}
	return "", fmt.Errorf("no such boot entry %s", firmware.EntryName(id))
}
