package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables read by GetDefaults and the snapshot commands.
const (
	ConfigPathEnv = "FEEDSTORE_CONFIG_PATH"
	HomeEnv       = "FEEDSTORE_HOME"
	PassphraseEnv = "FEEDSTORE_PASSPHRASE"
)

// GetDefaults returns application default paths, checking environment variables first.
//   - FEEDSTORE_CONFIG_PATH: config file location (default: ~/.config/feedstore.toml)
//   - FEEDSTORE_HOME: base directory for feedstore data (default: ~/.local/share/feedstore)
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome(ConfigPathEnv, ".config", "feedstore.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome(HomeEnv, ".local", "share", "feedstore")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"data_dir":    filepath.Join(baseDir, "data"),
	}, nil
}

// envOrHome returns the value of env, or the path made of elem under the
// user's home directory when env is unset.
func envOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
