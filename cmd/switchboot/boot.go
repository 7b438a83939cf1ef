// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/switchboot/switchboot/lib/firmware"
	"github.com/switchboot/switchboot/lib/ipc"
)

// parseEntry accepts a boot entry as "Boot0002" (hex, as the firmware
// names it), "0x2", or plain decimal.
func parseEntry(arg string) (uint16, error) {
	if rest, ok := strings.CutPrefix(arg, "Boot"); ok {
		id, err := strconv.ParseUint(rest, 16, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid boot entry %q", arg)
		}
		return uint16(id), nil
	}
	id, err := strconv.ParseUint(arg, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid boot entry %q", arg)
	}
	return uint16(id), nil
}

func listCommand() *Command {
	s := &session{}
	var asJSON bool
	return &Command{
		Name:    "list",
		Summary: "Show all firmware boot entries",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			s.flags(flagSet)
			flagSet.BoolVar(&asJSON, "json", false, "emit JSON")
			return flagSet
		},
		Run: func(args []string) error {
			response, err := s.call(ipc.Request{Action: ipc.ActionGetBootEntries})
			if err != nil {
				return err
			}
			var list ipc.EntryList
			if err := response.DecodeData(&list); err != nil {
				return err
			}

			if asJSON {
				return printJSON(list.Entries)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENTRY\tDESCRIPTION\tFLAGS")
			for _, entry := range list.Entries {
				var flags []string
				if entry.IsDefault {
					flags = append(flags, "default")
				}
				if entry.IsBootNext {
					flags = append(flags, "next")
				}
				if entry.IsCurrent {
					flags = append(flags, "current")
				}
				if !entry.Active {
					flags = append(flags, "inactive")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", firmware.EntryName(entry.ID), entry.Description, strings.Join(flags, ","))
			}
			return tw.Flush()
		},
	}
}

func setBootNextCommand() *Command {
	s := &session{}
	var reboot bool
	return &Command{
		Name:    "set-boot-next",
		Summary: "Arm an entry as the one-shot target for the next boot",
		Usage:   "switchboot set-boot-next <entry> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("set-boot-next", pflag.ContinueOnError)
			s.flags(flagSet)
			flagSet.BoolVar(&reboot, "reboot", false, "reboot immediately after arming")
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
			if _, err := s.call(ipc.Request{Action: ipc.ActionSetBootNext, Entry: &entry}); err != nil {
				return err
			}
			fmt.Printf("next boot: %s\n", firmware.EntryName(entry))

			if reboot {
				_, err := s.call(ipc.Request{Action: ipc.ActionReboot})
				return err
			}
			return nil
		},
	}
}

func unsetBootNextCommand() *Command {
	s := &session{}
	return &Command{
		Name:    "unset-boot-next",
		Summary: "Disarm the one-shot boot target",
		Flags:   s.flagSet("unset-boot-next"),
		Run: func(args []string) error {
			if _, err := s.call(ipc.Request{Action: ipc.ActionUnsetBootNext}); err != nil {
				return err
			}
			fmt.Println("next boot: firmware default")
			return nil
		},
	}
}

func bootOrderCommand() *Command {
	s := &session{}
	return &Command{
		Name:    "boot-order",
		Summary: "Show the boot order, or replace it when entries are given",
		Usage:   "switchboot boot-order [entry...]",
		Flags:   s.flagSet("boot-order"),
		Run: func(args []string) error {
			if len(args) == 0 {
				response, err := s.call(ipc.Request{Action: ipc.ActionGetBootOrder})
				if err != nil {
					return err
				}
				var order ipc.BootOrder
				if err := response.DecodeData(&order); err != nil {
					return err
				}
				for _, id := range order.Order {
					fmt.Println(firmware.EntryName(id))
				}
				return nil
			}

			order := make([]uint16, len(args))
			for i, arg := range args {
				entry, err := parseEntry(arg)
				if err != nil {
					return err
				}
				order[i] = entry
			}
			if _, err := s.call(ipc.Request{Action: ipc.ActionSetBootOrder, Order: order}); err != nil {
				return err
			}
			fmt.Printf("boot order: %s\n", joinEntries(order))
			return nil
		},
	}
}

func firmwareSetupCommand() *Command {
	s := &session{}
	var on, off bool
	return &Command{
		Name:    "firmware-setup",
		Summary: "Show or arm boot-to-firmware-setup for the next boot",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("firmware-setup", pflag.ContinueOnError)
			s.flags(flagSet)
			flagSet.BoolVar(&on, "on", false, "arm the firmware setup UI for the next boot")
			flagSet.BoolVar(&off, "off", false, "disarm the firmware setup UI")
			return flagSet
		},
		Run: func(args []string) error {
			if on && off {
				return fmt.Errorf("--on and --off are mutually exclusive")
			}
			if on || off {
				if _, err := s.call(ipc.Request{Action: ipc.ActionSetFirmwareSetup, Enabled: &on}); err != nil {
					return err
				}
				if on {
					fmt.Println("next boot: firmware setup UI")
				} else {
					fmt.Println("next boot: normal")
				}
				return nil
			}

			response, err := s.call(ipc.Request{Action: ipc.ActionGetFirmwareSetup})
			if err != nil {
				return err
			}
			var setup ipc.FirmwareSetup
			if err := response.DecodeData(&setup); err != nil {
				return err
			}
			switch {
			case !setup.Supported:
				fmt.Println("boot-to-firmware-setup: unsupported")
			case setup.Enabled:
				fmt.Println("boot-to-firmware-setup: armed")
			default:
				fmt.Println("boot-to-firmware-setup: disarmed")
			}
			return nil
		},
	}
}

func rebootCommand() *Command {
	s := &session{}
	return &Command{
		Name:    "reboot",
		Summary: "Reboot the machine",
		Flags:   s.flagSet("reboot"),
		Run: func(args []string) error {
			_, err := s.call(ipc.Request{Action: ipc.ActionReboot})
			return err
		},
	}
}

func statusCommand() *Command {
	s := &session{}
	var asJSON bool
	return &Command{
		Name:    "status",
		Summary: "Show the helper's status",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			s.flags(flagSet)
			flagSet.BoolVar(&asJSON, "json", false, "emit JSON")
			return flagSet
		},
		Run: func(args []string) error {
			response, err := s.call(ipc.Request{Action: ipc.ActionStatus})
			if err != nil {
				return err
			}
			var status ipc.Status
			if err := response.DecodeData(&status); err != nil {
				return err
			}
			if asJSON {
				return printJSON(status)
			}
			fmt.Printf("helper version: %s\n", status.Version)
			fmt.Printf("uptime: %s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
			fmt.Printf("connections served: %d\n", status.ConnectionsServed)
			fmt.Printf("channel encrypted: %t\n", status.Encrypted)
			return nil
		},
	}
}

// flagSet builds a Flags function carrying only the session flags.
func (s *session) flagSet(name string) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
		s.flags(flagSet)
		return flagSet
	}
}

func joinEntries(order []uint16) string {
	names := make([]string, len(order))
	for i, id := range order {
		names[i] = firmware.EntryName(id)
	}
	return strings.Join(names, " ")
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
