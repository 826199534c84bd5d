// Package infra implements infrastructure concerns.
package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents the execution mode of the application.
type ExecMode string

const (
	// ExecModeUser runs as a regular user with state under the home directory
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs as root with system-wide state
	ExecModeSystem ExecMode = "system"
)

const appName = "webmon"

// ExecModeConfig holds paths based on execution mode.
type ExecModeConfig struct {
	Mode       ExecMode
	DataDir    string // Settings database, key and blocklist
	ConfigPath string // YAML config file
	LogPath    string // Daemon log file
	IsRoot     bool
}

// DetectExecMode determines the execution mode based on effective UID.
func DetectExecMode() *ExecModeConfig {
	if os.Geteuid() == 0 {
		return &ExecModeConfig{
			Mode:       ExecModeSystem,
			DataDir:    filepath.Join("/var/lib", appName),
			ConfigPath: filepath.Join("/etc", appName, "config.yaml"),
			LogPath:    filepath.Join("/var/log", appName, appName+".log"),
			IsRoot:     true,
		}
	}
	return userModeConfig(GetRealUserHome())
}

func userModeConfig(home string) *ExecModeConfig {
	base := filepath.Join(home, "."+appName)
	return &ExecModeConfig{
		Mode:       ExecModeUser,
		DataDir:    base,
		ConfigPath: filepath.Join(base, "config.yaml"),
		LogPath:    filepath.Join(base, appName+".log"),
		IsRoot:     false,
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root)"
	case ExecModeUser:
		return "user (non-root)"
	default:
		return "unknown"
	}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns root's home, so SUDO_USER is used instead.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
