// Package storage persists opening-book recommendations and tablebase
// answers in BadgerDB.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "guppy"

// DataDir returns the platform-specific data directory for the application.
// - macOS: ~/Library/Application Support/guppy/
// - Linux: $XDG_DATA_HOME/guppy/ or ~/.local/share/guppy/
// - Windows: %APPDATA%/guppy/
func DataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	return ensureDir(filepath.Join(baseDir, appName))
}

// DatabaseDir returns the directory for the BadgerDB database.
func DatabaseDir() (string, error) {
	return subDir("db")
}

// DiagramDir returns the default directory for search diagrams.
func DiagramDir() (string, error) {
	return subDir("diagrams")
}

func subDir(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(dataDir, name))
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
