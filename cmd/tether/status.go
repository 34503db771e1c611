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
)

func runStatus(args []string) error {
	var profilePath string
	flagSet := newFlagSet("status", &profilePath)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	params, err := loadParams(profilePath)
	if err != nil {
		return err
	}

	logger := logging.NewLogger()
	manager := connect.NewManager(connect.ManagerConfig{Logger: logger})
	client := connect.NewClient(manager)
	defer manager.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := manager.Connect(ctx, params); err != nil {
		return err
	}
	if err := manager.WaitForConnection(connectTimeout); err != nil {
		return err
	}

	workspaces, err := client.ListWorkspaces(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("host: %s:%d\nstate: %s\nquality: %s\nworkspaces: %d\n",
		params.Host, params.Port, manager.State(), manager.Quality(), len(workspaces))
	for _, workspace := range workspaces {
		lastActive := "never"
		if workspace.LastActive > 0 {
			lastActive = time.UnixMilli(workspace.LastActive).Local().Format(time.DateTime)
		}
		fmt.Printf("  %-24s %d sessions, last active %s\n", workspace.Name, workspace.Sessions, lastActive)
	}
	return nil
}
