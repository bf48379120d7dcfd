// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package before building; Go's
// //go:embed bakes it into the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName        string `yaml:"cli_name"`
	DisplayName    string `yaml:"display_name"`
	Description    string `yaml:"description"`
	HomeDir        string `yaml:"home_dir"`
	EnvPrefix      string `yaml:"env_prefix"`
	UserAgent      string `yaml:"user_agent"`
	UpdateURL      string `yaml:"update_url"`
	ReleasePageURL string `yaml:"release_page_url"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:        "otc",
			DisplayName:    "OrganiseTesCours",
			Description:    "Course and resource manager with transparent self-update",
			HomeDir:        ".otc",
			EnvPrefix:      "OTC",
			UserAgent:      "OrganiseTesCours-Updater/2.0",
			UpdateURL:      "https://raw.githubusercontent.com/otc-labs/otc/refs/heads/main/version.json",
			ReleasePageURL: "https://github.com/otc-labs/otc/releases",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "otc").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".otc").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "OTC").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// UserAgent returns the HTTP client identifier sent on update requests.
func UserAgent() string { load(); return defaults.UserAgent }

// UpdateURL returns the default manifest endpoint.
func UpdateURL() string { load(); return defaults.UpdateURL }

// ReleasePageURL returns the page offered when no download link is published.
func ReleasePageURL() string { load(); return defaults.ReleasePageURL }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("UPDATE_URL") → "OTC_UPDATE_URL".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
