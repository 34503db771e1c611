// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable naming the config file.
const EnvConfigPath = "TETHER_CONFIG"

// Duration is a time.Duration that unmarshals from YAML in Go
// duration syntax ("10s", "1m30s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the host daemon configuration.
type Config struct {
	// Listen is the control/terminal listen address, host:port.
	Listen string `yaml:"listen"`

	// MetricsListen is the Prometheus endpoint address. Empty disables
	// the metrics server.
	MetricsListen string `yaml:"metricsListen,omitempty"`

	// WorkspaceRoot is the directory whose immediate subdirectories
	// are exposed as workspaces.
	WorkspaceRoot string `yaml:"workspaceRoot"`

	Auth   AuthConfig   `yaml:"auth"`
	Limits LimitsConfig `yaml:"limits,omitempty"`
}

// AuthConfig selects how client tokens are verified. At least one of
// the two mechanisms must be configured; when both are set, a token is
// accepted if either verifies it.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret for bearer tokens. The
	// token's subject claim becomes the client identity.
	JWTSecret string `yaml:"jwtSecret,omitempty"`

	// TokenHash is a bcrypt hash of a shared static token.
	TokenHash string `yaml:"tokenHash,omitempty"`

	// HandshakeTimeout bounds how long a fresh control connection may
	// take to present its auth frame. Default 10s.
	HandshakeTimeout Duration `yaml:"handshakeTimeout,omitempty"`
}

// LimitsConfig bounds the host's per-request work. Zero fields take
// the defaults.
type LimitsConfig struct {
	// PageSize is the default transcript page length; PageSizeMax caps
	// what a client may ask for. Defaults 50 and 500.
	PageSize    int `yaml:"pageSize,omitempty"`
	PageSizeMax int `yaml:"pageSizeMax,omitempty"`

	// FileTreeDepth and FileTreeNodes bound tree responses. Defaults
	// 3 and 2000.
	FileTreeDepth int `yaml:"fileTreeDepth,omitempty"`
	FileTreeNodes int `yaml:"fileTreeNodes,omitempty"`
}

// Defaults applied by Load.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPageSize         = 50
	DefaultPageSizeMax      = 500
	DefaultFileTreeDepth    = 3
	DefaultFileTreeNodes    = 2000
)

// Load reads and validates the config file at path. When path is
// empty, the TETHER_CONFIG environment variable names the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file: set %s or pass --config", EnvConfigPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, defaults, and validates a config document. Unknown
// keys are errors: a typoed field should fail loudly, not silently
// take its default.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.HandshakeTimeout == 0 {
		c.Auth.HandshakeTimeout = Duration(DefaultHandshakeTimeout)
	}
	if c.Limits.PageSize == 0 {
		c.Limits.PageSize = DefaultPageSize
	}
	if c.Limits.PageSizeMax == 0 {
		c.Limits.PageSizeMax = DefaultPageSizeMax
	}
	if c.Limits.FileTreeDepth == 0 {
		c.Limits.FileTreeDepth = DefaultFileTreeDepth
	}
	if c.Limits.FileTreeNodes == 0 {
		c.Limits.FileTreeNodes = DefaultFileTreeNodes
	}
}

// Validate reports the first structural problem with the config.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen address is required")
	}
	if c.WorkspaceRoot == "" {
		return errors.New("config: workspaceRoot is required")
	}
	info, err := os.Stat(c.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("config: workspaceRoot: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("config: workspaceRoot %s is not a directory", c.WorkspaceRoot)
	}
	if c.Auth.JWTSecret == "" && c.Auth.TokenHash == "" {
		return errors.New("config: auth requires jwtSecret or tokenHash")
	}
	if c.Limits.PageSize > c.Limits.PageSizeMax {
		return fmt.Errorf("config: pageSize %d exceeds pageSizeMax %d", c.Limits.PageSize, c.Limits.PageSizeMax)
	}
	return nil
}
