// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/switchboot/switchboot/lib/config"
	"github.com/switchboot/switchboot/lib/ipc"
	"github.com/switchboot/switchboot/lib/keystore"
	"github.com/switchboot/switchboot/lib/seal"
	"github.com/switchboot/switchboot/transport"
)

// session carries the flags shared by every command that talks to the
// helper, and performs the connect-call-close cycle.
type session struct {
	configPath string
	verbose    bool
}

func (s *session) flags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&s.configPath, "config", "", "path to switchboot.yaml")
	flagSet.BoolVarP(&s.verbose, "verbose", "v", false, "log the IPC exchange to stderr")
}

func (s *session) config() (*config.Config, error) {
	if s.configPath != "" {
		return config.LoadFile(s.configPath)
	}
	return config.Load()
}

func (s *session) logger() *slog.Logger {
	if s.verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// call sends one request to the helper, starting it through systemd
// if it is not yet running, and returns the decoded response. A
// response carrying a failure becomes an error.
func (s *session) call(request ipc.Request) (*ipc.Response, error) {
	cfg, err := s.config()
	if err != nil {
		return nil, err
	}

	var cipher *seal.Cipher
	if cfg.Encrypted() {
		key, err := keystore.ResolveKey(cfg.Channel.KeyFile, cfg.Channel.IdentityFile)
		if err != nil {
			return nil, err
		}
		defer key.Close()
		if cipher, err = seal.New(key); err != nil {
			return nil, err
		}
	}

	connectTimeout, err := cfg.ConnectTimeout()
	if err != nil {
		return nil, err
	}

	client := transport.NewClient(cfg.Socket.Path, transport.ClientOptions{
		Cipher:         cipher,
		Bootstrap:      &transport.SystemdBootstrap{Unit: cfg.Helper.Unit},
		Logger:         s.logger(),
		ConnectTimeout: connectTimeout,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*connectTimeout)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	response, err := client.Call(ctx, request)
	if err != nil {
		return nil, err
	}
	if !response.OK {
		return nil, fmt.Errorf("helper: %s", response.Error)
	}
	return response, nil
}
