// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile persists the client connection profile between runs.
//
// The profile is a small JSON file holding host, port, and token. It is
// written atomically so a crash mid-write never leaves a truncated file,
// and read through a JSONC filter so a hand-edited profile with comments
// or trailing commas still loads.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Profile is the persisted connection profile.
type Profile struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Token string `json:"token"`
}

// Validate checks that the profile is usable for dialing.
func (p Profile) Validate() error {
	if p.Host == "" {
		return errors.New("profile: host is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("profile: port %d out of range", p.Port)
	}
	if p.Token == "" {
		return errors.New("profile: token is required")
	}
	return nil
}

// DefaultPath returns the profile location under the user config
// directory, typically ~/.config/tether/profile.json.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("profile: resolving config directory: %w", err)
	}
	return filepath.Join(configDir, "tether", "profile.json"), nil
}

// Load reads and parses the profile at path. A missing file is reported
// with an error wrapping os.ErrNotExist.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: reading %s: %w", path, err)
	}
	var loaded Profile
	if err := json.Unmarshal(jsonc.ToJSON(data), &loaded); err != nil {
		return Profile{}, fmt.Errorf("profile: parsing %s: %w", path, err)
	}
	if err := loaded.Validate(); err != nil {
		return Profile{}, err
	}
	return loaded, nil
}

// Save writes the profile to path atomically: the bytes land in a
// temporary file, are synced, and the file is renamed into place. The
// parent directory is created when missing. Mode 0600 because the file
// carries a credential.
func Save(path string, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("profile: creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: encoding: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("profile: creating temporary file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("profile: writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("profile: syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("profile: closing temporary file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("profile: renaming into place: %w", err)
	}

	// Sync the directory so the rename survives power loss.
	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}
