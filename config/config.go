package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for stew.
type Config struct {
	Extract ExtractConfig `yaml:"extract"`
	Cache   CacheConfig   `yaml:"cache"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExtractConfig holds source discovery and extraction configuration.
type ExtractConfig struct {
	Includes      []string `yaml:"includes"`
	Excludes      []string `yaml:"excludes"`
	Keywords      []string `yaml:"keywords"`       // extra keywords: "name" or "name=shape"
	Domains       []string `yaml:"domains"`        // emit only these domains (empty = all)
	DefaultDomain string   `yaml:"default_domain"` // domain of calls without a domain argument
	Workers       int      `yaml:"workers"`        // 0 = number of CPUs
}

// CacheConfig holds extraction cache configuration.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // relative to the project root
}

// OutputConfig holds record listing configuration.
type OutputConfig struct {
	Format string `yaml:"format"` // "json", "yaml", "text"
	Path   string `yaml:"path"`   // empty = stdout
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// OutputFormats lists the accepted output.format values.
var OutputFormats = []string{"json", "yaml", "text"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Extract: ExtractConfig{
			Includes:      []string{"**/*.c", "**/*.h", "**/*.cc", "**/*.cpp", "**/*.cxx", "**/*.hh", "**/*.hpp", "**/*.hxx"},
			Excludes:      []string{"**/.git/**", "**/.stew/**", "**/build/**", "**/_build/**", "**/vendor/**", "**/node_modules/**"},
			DefaultDomain: "messages",
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(".stew", "cache.db"),
		},
		Output: OutputConfig{
			Format: "json",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for stew.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "stew.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".stew", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv loads a .env file from dir when present and applies STEW_*
// overrides from the environment.
func (c *Config) ApplyEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	if v := os.Getenv("STEW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STEW_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("STEW_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STEW_WORKERS %q: %w", v, err)
		}
		c.Extract.Workers = n
	}
	if v := os.Getenv("STEW_CACHE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STEW_CACHE %q: %w", v, err)
		}
		c.Cache.Enabled = enabled
	}
	return nil
}

// Validate checks values that cannot be corrected by defaults.
func (c *Config) Validate() error {
	if c.Extract.Workers < 0 {
		return fmt.Errorf("extract.workers must not be negative, got %d", c.Extract.Workers)
	}
	if !isOutputFormat(c.Output.Format) {
		return fmt.Errorf("unknown output.format %q (want one of %s)", c.Output.Format, strings.Join(OutputFormats, ", "))
	}
	if len(c.Extract.Includes) == 0 {
		return fmt.Errorf("extract.includes must list at least one pattern")
	}
	return nil
}

func isOutputFormat(f string) bool {
	for _, known := range OutputFormats {
		if f == known {
			return true
		}
	}
	return false
}

// CacheDBPath returns the path to the extraction cache for a project root.
func (c *Config) CacheDBPath(dir string) string {
	if filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	return filepath.Join(dir, c.Cache.Path)
}

// EnsureStewDir ensures the directory holding path exists.
func EnsureStewDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
