// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package; Go's //go:embed bakes it into
// the binary.
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
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GoModule    string `yaml:"go_module"`
	HostDir     string `yaml:"host_dir"`
	HostConfig  string `yaml:"host_config"`
	LockFile    string `yaml:"lock_file"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "compkg",
			DisplayName: "compkg",
			Description: "Package manager for agents, skills, plugins, and profiles",
			HomeDir:     ".compkg",
			EnvPrefix:   "COMPKG",
			GoModule:    "github.com/agentx-labs/compkg",
			HostDir:     ".agents",
			HostConfig:  "agents.json",
			LockFile:    "compkg.lock",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "compkg").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".compkg").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "COMPKG").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// HostDir returns the project subdirectory components install into (e.g., ".agents").
func HostDir() string { load(); return defaults.HostDir }

// HostConfig returns the host configuration file name (e.g., "agents.json").
func HostConfig() string { load(); return defaults.HostConfig }

// LockFile returns the default lock file name (e.g., "compkg.lock").
func LockFile() string { load(); return defaults.LockFile }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "COMPKG_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
