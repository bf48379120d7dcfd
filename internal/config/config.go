package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/otc-labs/otc/internal/branding"
	"github.com/otc-labs/otc/internal/updater"
)

const (
	fileName = "config"
	fileType = "yaml"

	// KeyUpdateURL overrides the manifest endpoint.
	KeyUpdateURL = "update.url"
	// KeyAutoApply applies available updates without prompting.
	KeyAutoApply = "update.auto_apply"
	// KeyCheckTimeout bounds the manifest fetch.
	KeyCheckTimeout = "update.check_timeout"
	// KeyDownloadTimeout bounds the artifact download.
	KeyDownloadTimeout = "update.download_timeout"
	// KeyStorePath overrides the course database location.
	KeyStorePath = "store.path"
)

// Dir returns the path to the otc config directory (~/.otc/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.otc/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// StorePath returns the course database path, defaulting to ~/.otc/courses.db.
func StorePath() string {
	if p := viper.GetString(KeyStorePath); p != "" {
		return p
	}
	return filepath.Join(Dir(), "courses.db")
}

// UpdaterConfig assembles the update engine configuration from the config
// file and environment, pinned to the running binary's version. Called once
// at startup; the result is passed around as a value.
func UpdaterConfig(currentVersion string) updater.Config {
	url := viper.GetString(KeyUpdateURL)
	if env := os.Getenv(branding.EnvVar("UPDATE_URL")); env != "" {
		url = env
	}

	return updater.Config{
		CurrentVersion:  currentVersion,
		ManifestURL:     url,
		AutoApply:       viper.GetBool(KeyAutoApply),
		CheckTimeout:    viper.GetDuration(KeyCheckTimeout),
		DownloadTimeout: viper.GetDuration(KeyDownloadTimeout),
	}
}
