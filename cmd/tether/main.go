// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// tether is the command-line client for a tetherd host.
//
// Subcommands:
//
//	tether connect --host HOST --port PORT --token TOKEN
//	    Verify the connection and save the profile for later runs.
//	tether status
//	    Connect with the saved profile and list workspaces.
//	tether attach <sessionId>
//	    Attach the local terminal to a host terminal session.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/tetherhq/tether/connect"
	"github.com/tetherhq/tether/lib/profile"
	"github.com/tetherhq/tether/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("a subcommand is required")
	}
	switch args[0] {
	case "--version", "version":
		fmt.Printf("tether %s\n", version.Info())
		return nil
	case "--help", "-h", "help":
		printUsage()
		return nil
	case "connect":
		return runConnect(args[1:])
	case "status":
		return runStatus(args[1:])
	case "attach":
		return runAttach(args[1:])
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `tether — client for a tetherd host

Usage:
  tether connect --host HOST --port PORT --token TOKEN
  tether status
  tether attach <sessionId>
  tether --version

Flags for each subcommand: tether <subcommand> --help
`)
}

// newFlagSet builds a subcommand flag set with the shared --profile
// override.
func newFlagSet(name string, profilePath *string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("tether "+name, pflag.ContinueOnError)
	flagSet.StringVar(profilePath, "profile", "", "profile file path (default: user config directory)")
	return flagSet
}

func resolveProfilePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return profile.DefaultPath()
}

// loadParams reads the saved profile and converts it to dial
// parameters.
func loadParams(profileOverride string) (connect.Params, error) {
	path, err := resolveProfilePath(profileOverride)
	if err != nil {
		return connect.Params{}, err
	}
	saved, err := profile.Load(path)
	if err != nil {
		return connect.Params{}, fmt.Errorf("no usable profile (run \"tether connect\" first): %w", err)
	}
	return connect.Params{Host: saved.Host, Port: saved.Port, Token: saved.Token}, nil
}
