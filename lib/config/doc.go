// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the host daemon configuration.
//
// Configuration comes from a single YAML file named explicitly via the
// TETHER_CONFIG environment variable or the --config flag. There is no
// automatic discovery and no fallback chain; what you point at is what
// runs.
package config
