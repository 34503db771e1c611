// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/tetherhq/tether/connect"
	"github.com/tetherhq/tether/lib/logging"
	"github.com/tetherhq/tether/lib/profile"
)

// connectTimeout bounds the initial handshake wait. Long enough for a
// slow link, short enough that a wrong host fails while the user is
// still watching.
const connectTimeout = 15 * time.Second

func runConnect(args []string) error {
	var (
		profilePath string
		host        string
		port        int
		token       string
	)
	flagSet := newFlagSet("connect", &profilePath)
	flagSet.StringVar(&host, "host", "", "host to connect to (required)")
	flagSet.IntVar(&port, "port", 8080, "host control port")
	flagSet.StringVar(&token, "token", "", "authentication token (required)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	saved := profile.Profile{Host: host, Port: port, Token: token}
	if err := saved.Validate(); err != nil {
		return err
	}

	logger := logging.NewLogger()
	manager := connect.NewManager(connect.ManagerConfig{Logger: logger})
	params := connect.Params{Host: host, Port: port, Token: token}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := manager.Connect(ctx, params); err != nil {
		return err
	}
	if err := manager.WaitForConnection(connectTimeout); err != nil {
		manager.Disconnect()
		return err
	}
	manager.Disconnect()

	path, err := resolveProfilePath(profilePath)
	if err != nil {
		return err
	}
	if err := profile.Save(path, saved); err != nil {
		return err
	}
	fmt.Printf("connected to %s:%d, profile saved to %s\n", host, port, path)
	return nil
}
