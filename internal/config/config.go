package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentx-labs/compkg/internal/branding"
	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/spf13/viper"
)

const (
	fileName        = "config"
	fileType        = "yaml"
	projectFileName = "compkg.yaml"
)

// Registry is one configured registry, keyed by namespace in Config.Registries.
type Registry struct {
	URL     string            `mapstructure:"url" yaml:"url" json:"url"`
	Version string            `mapstructure:"version" yaml:"version,omitempty" json:"version,omitempty"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Config is the resolved configuration for one invocation.
type Config struct {
	Registries  map[string]Registry `mapstructure:"registries"`
	InstallDir  string              `mapstructure:"installDir"`
	LockFile    string              `mapstructure:"lockFile"`
	HostConfig  string              `mapstructure:"hostConfig"`
	ProfilesDir string              `mapstructure:"profilesDir"`
	Log         struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Trace struct {
		Exporter string `mapstructure:"exporter"`
	} `mapstructure:"trace"`
}

// Options controls where Load looks for configuration.
type Options struct {
	// File overrides the user config file path.
	File string
	// ProjectDir, when set, is searched for a compkg.yaml merged over the user file.
	ProjectDir string
}

// Dir returns the path to the config directory (~/.compkg/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.compkg/config.yaml).
func FilePath() string {
	if v := os.Getenv(branding.EnvVar("CONFIG")); v != "" {
		return v
	}
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

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("installDir", branding.HostDir())
	v.SetDefault("lockFile", branding.LockFile())
	v.SetDefault("hostConfig", branding.HostConfig())
	v.SetDefault("profilesDir", filepath.Join(Dir(), "profiles"))
	v.SetDefault("log.level", "warn")
	v.SetDefault("trace.exporter", "none")
	return v
}

// Load reads the user config file (missing is fine), merges the project
// file over it, and applies COMPKG_* environment overrides.
func Load(opts Options) (*Config, error) {
	v := newViper()

	path := opts.File
	if path == "" {
		path = FilePath()
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, errs.Wrap(errs.KindConfiguration, err, "reading config %s", path)
	}

	if opts.ProjectDir != "" {
		projectFile := filepath.Join(opts.ProjectDir, projectFileName)
		if _, err := os.Stat(projectFile); err == nil {
			v.SetConfigFile(projectFile)
			if err := v.MergeInConfig(); err != nil {
				return nil, errs.Wrap(errs.KindConfiguration, err, "reading project config %s", projectFile)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, err, "decoding config")
	}
	if cfg.Registries == nil {
		cfg.Registries = map[string]Registry{}
	}
	return &cfg, nil
}

// Registry returns the registry configured for namespace.
func (c *Config) Registry(namespace string) (Registry, error) {
	reg, ok := c.Registries[namespace]
	if !ok {
		return Registry{}, errs.Configurationf("registry %q is not configured; add registries.%s.url to %s", namespace, namespace, FilePath())
	}
	if reg.URL == "" {
		return Registry{}, errs.Configurationf("registry %q has no url", namespace)
	}
	return reg, nil
}

// Namespaces returns the configured registry namespaces, sorted.
func (c *Config) Namespaces() []string {
	names := make([]string, 0, len(c.Registries))
	for n := range c.Registries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns a single config value by key from the user file. Returns an
// empty string if not set.
func Get(path, key string) (string, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return "", errs.Wrap(errs.KindConfiguration, err, "reading config %s", path)
	}
	return v.GetString(key), nil
}

// Set writes a key-value pair into the config file at path, creating it if needed.
func Set(path, key, value string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType(fileType)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return errs.Wrap(errs.KindConfiguration, err, "reading config %s", path)
	}

	v.Set(key, value)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}
