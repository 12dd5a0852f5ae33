package xdg

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

// appName is the directory gus uses under each XDG base directory.
const appName = "gus"

// EnvConfig overrides the config file location.
const EnvConfig = "GUS_CONFIG"

// Paths holds XDG-compliant directory paths
type Paths struct {
	ConfigHome string
	DataHome   string
	RuntimeDir string
}

// NewPaths returns XDG-compliant directory paths
// If XDG environment variables are set, they are used; otherwise, defaults are applied
func NewPaths() (Paths, error) {
	homeDir, err := getHomeDir()
	if err != nil {
		return Paths{}, err
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(homeDir, ".config")
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(homeDir, ".local", "share")
	}

	// XDG_RUNTIME_DIR is per-user and private; the shared temp dir is not,
	// so the fallback gets a per-user subdirectory.
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d", appName, os.Getuid()))
	}

	return Paths{
		ConfigHome: configHome,
		DataHome:   dataHome,
		RuntimeDir: runtimeDir,
	}, nil
}

// getHomeDir returns the user's home directory
func getHomeDir() (string, error) {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home, nil
	}
	currentUser, err := user.Current()
	if err != nil {
		return "", err
	}
	return currentUser.HomeDir, nil
}

// ConfigPath returns the path to the state file. GUS_CONFIG wins when set.
func (p Paths) ConfigPath() string {
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	return filepath.Join(p.ConfigHome, appName, "config.yaml")
}

// KeyDir returns where generated SSH keys are stored by default.
func (p Paths) KeyDir() string {
	return filepath.Join(p.DataHome, appName, "sshkeys")
}

// SessionDir returns where per-terminal shell scripts are written.
func (p Paths) SessionDir() string {
	return filepath.Join(p.RuntimeDir, appName)
}

// EnsureDirs creates necessary directories with proper permissions (0700)
func (p Paths) EnsureDirs() error {
	dirs := []string{
		filepath.Dir(p.ConfigPath()),
		p.KeyDir(),
		p.SessionDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return nil
}
