// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging provides the standard logger bootstrap for tether
// binaries.
package logging

import (
	"log/slog"
	"os"
)

// NewLogger creates the standard tether logger: a JSON handler writing
// to stderr at Info level. It also installs the logger as the slog
// default so third-party code using slog.Info etc. shares the handler.
func NewLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}
