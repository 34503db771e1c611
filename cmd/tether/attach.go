// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/tetherhq/tether/connect"
	"github.com/tetherhq/tether/lib/logging"
)

func runAttach(args []string) error {
	var profilePath string
	flagSet := newFlagSet("attach", &profilePath)
	terminalType := flagSet.String("type", "", "terminal kind to attach (default shell)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: tether attach <sessionId>")
	}
	sessionID := flagSet.Arg(0)

	params, err := loadParams(profilePath)
	if err != nil {
		return err
	}

	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return fmt.Errorf("attach requires a terminal on stdin")
	}
	columns, rows, err := term.GetSize(stdinFd)
	if err != nil {
		return fmt.Errorf("reading terminal size: %w", err)
	}

	logger := logging.NewLogger()
	session, err := connect.AttachTerminal(context.Background(), connect.TerminalConfig{
		Params:    params,
		SessionID: sessionID,
		Type:      *terminalType,
		Columns:   uint16(columns),
		Rows:      uint16(rows),
		Output:    os.Stdout,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	previousState, err := term.MakeRaw(stdinFd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(stdinFd, previousState)

	// Track local terminal resizes. SIGWINCH arrives on every size
	// change; re-read the size and forward it.
	resizes := make(chan os.Signal, 1)
	signal.Notify(resizes, syscall.SIGWINCH)
	defer signal.Stop(resizes)
	go func() {
		for range resizes {
			columns, rows, err := term.GetSize(stdinFd)
			if err != nil {
				continue
			}
			if err := session.Resize(uint16(columns), uint16(rows)); err != nil {
				return
			}
		}
	}()

	// Keystrokes flow until the session ends or stdin closes. The copy
	// blocks in a read even after the session closes; exiting main
	// unblocks it.
	copyDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(session, os.Stdin)
		copyDone <- err
	}()

	select {
	case <-session.Done():
	case err := <-copyDone:
		if err != nil {
			return err
		}
	}
	if err := session.Err(); err != nil {
		return err
	}
	return nil
}
