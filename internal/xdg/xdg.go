// Package xdg resolves XDG Base Directory paths for emitron.
// Each helper falls back to the conventional location under $HOME when the
// variable is unset and creates the directory with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

const appDir = "emitron"

func resolve(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	dir := filepath.Join(base, appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/emitron (default ~/.config/emitron).
func ConfigDir() (string, error) { return resolve("XDG_CONFIG_HOME", ".config") }

// StateDir returns $XDG_STATE_HOME/emitron (default ~/.local/state/emitron).
func StateDir() (string, error) { return resolve("XDG_STATE_HOME", ".local", "state") }

// DataDir returns $XDG_DATA_HOME/emitron (default ~/.local/share/emitron).
// Downloaded videos and the download catalog live here.
func DataDir() (string, error) { return resolve("XDG_DATA_HOME", ".local", "share") }
