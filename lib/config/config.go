// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Switchboot
// components.
//
// Configuration is loaded from a single file specified by:
//   - SWITCHBOOT_CONFIG environment variable, or
//   - --config flag passed to the command, or
//   - /etc/switchboot/config.yaml when present
//
// When none of these exist, the built-in defaults apply: Switchboot is
// expected to work out of the box on a stock installation, with the
// config file reserved for deployments that relocate the socket or key
// material.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration shared by the CLI and the helper.
type Config struct {
	// Socket configures the IPC rendezvous point.
	Socket SocketConfig `yaml:"socket"`

	// Channel configures framing-level encryption and client timing.
	Channel ChannelConfig `yaml:"channel"`

	// Helper configures the privileged helper process.
	Helper HelperConfig `yaml:"helper"`
}

// SocketConfig configures the Unix socket both sides meet on.
type SocketConfig struct {
	// Path is the helper's listening socket.
	// Default: /run/switchboot/helper.sock
	Path string `yaml:"path"`

	// Mode is the octal permission string applied to the socket so
	// unprivileged sessions can connect.
	// Default: "0666"
	Mode string `yaml:"mode"`
}

// ChannelConfig configures the encrypted channel and client behavior.
type ChannelConfig struct {
	// Encrypted enables ChaCha20-Poly1305 sealing of every frame.
	// Default: true. Disabling leaves the channel protected only by
	// socket permissions.
	Encrypted *bool `yaml:"encrypted,omitempty"`

	// KeyFile is the age-sealed channel key. When absent, the key
	// compiled into the binaries is used.
	// Default: /etc/switchboot/channel.key.age
	KeyFile string `yaml:"key_file"`

	// IdentityFile is the age identity that unseals KeyFile.
	// Default: /etc/switchboot/identity.txt
	IdentityFile string `yaml:"identity_file"`

	// ConnectTimeout bounds how long the CLI waits for the helper to
	// appear, including the time spent starting it.
	// Default: 5s
	ConnectTimeout string `yaml:"connect_timeout"`

	// ShutdownTimeout bounds the helper's connection drain on stop.
	// Default: 5s
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// HelperConfig configures the privileged helper process.
type HelperConfig struct {
	// Unit is the systemd unit the CLI starts on demand.
	// Default: switchboot-helper.service
	Unit string `yaml:"unit"`

	// EfivarsRoot overrides the efivarfs mount point. Empty means the
	// standard /sys/firmware/efi/efivars.
	EfivarsRoot string `yaml:"efivars_root"`

	// MockFirmware serves a synthetic boot configuration instead of
	// touching the machine. For development only.
	MockFirmware bool `yaml:"mock_firmware"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	encrypted := true
	return &Config{
		Socket: SocketConfig{
			Path: "/run/switchboot/helper.sock",
			Mode: "0666",
		},
		Channel: ChannelConfig{
			Encrypted:       &encrypted,
			KeyFile:         "/etc/switchboot/channel.key.age",
			IdentityFile:    "/etc/switchboot/identity.txt",
			ConnectTimeout:  "5s",
			ShutdownTimeout: "5s",
		},
		Helper: HelperConfig{
			Unit: "switchboot-helper.service",
		},
	}
}

// DefaultPath is the system-wide configuration file, consulted when
// SWITCHBOOT_CONFIG is not set.
const DefaultPath = "/etc/switchboot/config.yaml"

// Load loads configuration from the SWITCHBOOT_CONFIG environment
// variable, falling back to DefaultPath when that file exists, and to
// Default otherwise.
func Load() (*Config, error) {
	if path := os.Getenv("SWITCHBOOT_CONFIG"); path != "" {
		return LoadFile(path)
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return LoadFile(DefaultPath)
	}
	return Default(), nil
}

// LoadFile loads configuration from a specific file path. The file is
// merged over Default: fields it omits keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Socket.Path == "" {
		errs = append(errs, fmt.Errorf("socket.path is required"))
	}
	if _, err := c.SocketMode(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ConnectTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Helper.Unit == "" {
		errs = append(errs, fmt.Errorf("helper.unit is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Encrypted reports whether frames are sealed. Unset means encrypted.
func (c *Config) Encrypted() bool {
	return c.Channel.Encrypted == nil || *c.Channel.Encrypted
}

// SocketMode parses the socket permission string.
func (c *Config) SocketMode() (os.FileMode, error) {
	var mode os.FileMode
	if _, err := fmt.Sscanf(c.Socket.Mode, "%o", &mode); err != nil {
		return 0, fmt.Errorf("socket.mode %q is not an octal permission string", c.Socket.Mode)
	}
	return mode, nil
}

// ConnectTimeout parses the client connect timeout.
func (c *Config) ConnectTimeout() (time.Duration, error) {
	return c.duration("channel.connect_timeout", c.Channel.ConnectTimeout)
}

// ShutdownTimeout parses the helper's drain timeout.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return c.duration("channel.shutdown_timeout", c.Channel.ShutdownTimeout)
}

func (c *Config) duration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a duration", field, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return d, nil
}
