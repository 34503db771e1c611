// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package connect

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when an operation needs an authenticated
// connection and there is none.
var ErrNotConnected = errors.New("connect: not connected")

// ErrConnectionClosed fails pending requests and waiters when the
// socket dies or the user disconnects before a reply arrives.
var ErrConnectionClosed = errors.New("connect: connection closed")

// ErrConnectTimeout is returned by WaitForConnection when
// authentication does not complete within the caller's window.
var ErrConnectTimeout = errors.New("connect: timed out waiting for connection")

func errAlreadyActive(state State) error {
	return fmt.Errorf("connect: connection already %s", state)
}
