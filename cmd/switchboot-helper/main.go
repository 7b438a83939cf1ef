// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Switchboot-helper is the privileged half of Switchboot. It listens
// on a Unix socket, speaks the length-framed (and by default
// encrypted) command protocol, and is the only process that touches
// UEFI variables. The unprivileged CLI and UI reach it through
// systemd socket-on-demand start.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/switchboot/switchboot/lib/clock"
	"github.com/switchboot/switchboot/lib/config"
	"github.com/switchboot/switchboot/lib/efivar"
	"github.com/switchboot/switchboot/lib/firmware"
	"github.com/switchboot/switchboot/lib/keystore"
	"github.com/switchboot/switchboot/lib/seal"
	"github.com/switchboot/switchboot/lib/svcunit"
	"github.com/switchboot/switchboot/lib/version"
	"github.com/switchboot/switchboot/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		mockFirmware bool
		debug        bool
		showVersion  bool
	)
	flag.StringVar(&configPath, "config", "", "path to switchboot.yaml (default: SWITCHBOOT_CONFIG or built-in defaults)")
	flag.BoolVar(&mockFirmware, "mock-firmware", false, "serve a synthetic boot configuration instead of real UEFI variables")
	flag.BoolVar(&debug, "debug", false, "log at debug level")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.String())
		return nil
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := buildStore(cfg, mockFirmware, logger)
	if err != nil {
		return err
	}

	var cipher *seal.Cipher
	if cfg.Encrypted() {
		key, err := keystore.ResolveKey(cfg.Channel.KeyFile, cfg.Channel.IdentityFile)
		if err != nil {
			return err
		}
		defer key.Close()
		if cipher, err = seal.New(key); err != nil {
			return err
		}
		logger.Info("channel encryption enabled", "key", cipher.KeyFingerprint())
	} else {
		logger.Warn("channel encryption disabled by configuration")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}

	socketMode, err := cfg.SocketMode()
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.ShutdownTimeout()
	if err != nil {
		return err
	}

	clk := clock.Real()
	h := &helper{
		store:     store,
		units:     &svcunit.Manager{},
		unit:      helperUnit(cfg, executable),
		systemctl: svcunit.Systemctl,
		logger:    logger,
		clock:     clk,
		started:   clk.Now(),
		encrypted: cipher != nil,
	}

	server := transport.NewServer(cfg.Socket.Path, h.handle, transport.ServerOptions{
		Cipher:          cipher,
		Logger:          logger,
		Clock:           clk,
		ShutdownTimeout: shutdownTimeout,
		SocketMode:      socketMode,
	})
	h.server = server

	if err := server.Start(); err != nil {
		return err
	}
	logger.Info("helper listening", "socket", cfg.Socket.Path, "version", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	return server.Stop()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func buildStore(cfg *config.Config, mockFlag bool, logger *slog.Logger) (firmware.Store, error) {
	if mockFlag || cfg.Helper.MockFirmware {
		logger.Warn("serving mock firmware; no UEFI variables will be touched")
		return mockStore(), nil
	}

	fs := efivar.New(cfg.Helper.EfivarsRoot)
	store := firmware.NewEfivars(fs)
	if !store.Supported() {
		return nil, fmt.Errorf("this system does not expose UEFI variables (no efivarfs); boot with UEFI or use --mock-firmware")
	}
	return store, nil
}

// mockStore builds a plausible dual-boot machine for UI development.
func mockStore() *firmware.Memory {
	store := firmware.NewMemory()
	store.AddEntry(0, &firmware.LoadOption{Attributes: firmware.LoadOptionActive, Description: "Fedora Linux"})
	store.AddEntry(1, &firmware.LoadOption{Attributes: firmware.LoadOptionActive, Description: "Windows Boot Manager"})
	store.AddEntry(2, &firmware.LoadOption{Attributes: firmware.LoadOptionActive, Description: "UEFI: USB Drive"})
	store.SetBootCurrent(0)
	return store
}

func helperUnit(cfg *config.Config, executable string) *svcunit.Unit {
	return &svcunit.Unit{
		Name:        cfg.Helper.Unit,
		Description: "Switchboot boot configuration helper",
		ExecStart:   executable,
	}
}
