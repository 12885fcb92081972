// Package xdg provides XDG Base Directory paths for Roster.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "rosterd"

// ConfigDir returns the XDG config directory for rosterd.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the path of the default config file,
// ConfigDir()/config.yaml. The file is not required to exist.
func DefaultConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
