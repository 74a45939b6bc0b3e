// Package config holds the radio launcher's mutable configuration:
// component/controller repository search paths, default log level and the
// host's fixed plug-in API version string.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RepositoryKind names one of the four plug-in search-path buckets a radio
// description can reference, per spec §6 setRepository.
type RepositoryKind string

const (
	RepositoryStack      RepositoryKind = "stack"
	RepositoryPhy        RepositoryKind = "phy"
	RepositorySDF        RepositoryKind = "sdf"
	RepositoryController RepositoryKind = "controller"
)

// HostAPIVersion is the fixed version string every plug-in's apiVersion()
// must match exactly (spec §6, §7 ApiVersionMismatch).
const HostAPIVersion = "radioflow/1.0"

// Config is the launcher's top-level configuration.
type Config struct {
	LogLevel     string                      `json:"log_level" yaml:"log_level" env:"RADIO_LOG_LEVEL"`
	LogFile      string                      `json:"log_file" yaml:"log_file" env:"RADIO_LOG_FILE"`
	Repositories map[RepositoryKind][]string `json:"repositories" yaml:"repositories"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		Repositories: make(map[RepositoryKind][]string),
	}
}

// LoadFromFile reads a YAML configuration file, falling back to defaults
// for any field left unset.
func LoadFromFile(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv overlays environment variables (optionally sourced from a
// .env file) onto the given config using envdecode's `env:` tags.
func LoadFromEnv(cfg *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load dotenv %s: %w", dotenvPath, err)
		}
	}
	if err := envdecode.Decode(cfg); err != nil {
		// envdecode errors when none of the tagged fields are present in the
		// environment; treat that as "no overrides" so local runs work fine.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return fmt.Errorf("decode env: %w", err)
		}
	}
	return nil
}

// SetRepository records the `;`-separated path list for kind, rejecting any
// path that does not exist on disk (spec §6 setRepository).
func (c *Config) SetRepository(kind RepositoryKind, pathList string) error {
	var paths []string
	for _, p := range strings.Split(pathList, ";") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("repository path %q: %w", p, err)
		}
		paths = append(paths, p)
	}

	if c.Repositories == nil {
		c.Repositories = make(map[RepositoryKind][]string)
	}
	c.Repositories[kind] = paths
	return nil
}

// RepositoryPaths returns the configured search paths for kind.
func (c *Config) RepositoryPaths(kind RepositoryKind) []string {
	if c == nil {
		return nil
	}
	return append([]string{}, c.Repositories[kind]...)
}
