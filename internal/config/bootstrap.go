// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

//go:embed deskbot.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/deskbot/deskbot.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", deskerr.Errorf(deskerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "deskbot", "deskbot.yaml"), nil
}

// BootstrapConfig writes the default commented config if none exists yet.
// It returns the path written, or "" when the file already existed or could
// not be written; failures are logged at debug level and otherwise ignored.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}
