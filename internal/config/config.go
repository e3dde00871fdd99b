package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete ppscan configuration
type Config struct {
	Scan   ScanConfig   `toml:"scan"`
	Output OutputConfig `toml:"output"`
	Cache  CacheConfig  `toml:"cache"`
	Log    LogConfig    `toml:"log"`
	Watch  WatchConfig  `toml:"watch"`
}

// ScanConfig holds tokenizer and driver settings
type ScanConfig struct {
	// HeaderNames is "include" or "always".
	HeaderNames  string `toml:"header_names"`
	Workers      int    `toml:"workers"`
	ArtifactsDir string `toml:"artifacts_dir"`
	// Grammar is the path of a grammar file replacing the built-in table.
	Grammar string `toml:"grammar"`
}

// OutputConfig holds output settings
type OutputConfig struct {
	Format string `toml:"format"`
	Color  string `toml:"color"`
}

// CacheConfig holds token cache settings
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// WatchConfig holds watch mode settings
type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

var (
	Formats     = []string{"text", "highlight", "yaml", "json"}
	ColorModes  = []string{"auto", "always", "never"}
	HeaderModes = []string{"include", "always"}
	LogLevels   = []string{"debug", "info", "warn", "error"}
	LogFormats  = []string{"text", "json"}
)

// Default returns the configuration used when no file is found.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault loads the file named by PPSCAN_CONFIG, or the first of
// ./ppscan.toml and ~/.config/ppscan/config.toml that exists. Without any of
// them it returns Default().
func LoadDefault() (*Config, error) {
	if path := os.Getenv("PPSCAN_CONFIG"); path != "" {
		return Load(path)
	}
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Default(), nil
}

func searchPaths() []string {
	paths := []string{"./ppscan.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ppscan", "config.toml"))
	}
	return paths
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Scan.HeaderNames == "" {
		c.Scan.HeaderNames = "include"
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = runtime.NumCPU()
	}

	if c.Output.Format == "" {
		c.Output.Format = "text"
	}
	if c.Output.Color == "" {
		c.Output.Color = "auto"
	}

	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(cacheDir(), "ppscan", "tokens.db")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Watch.Debounce.Duration == 0 {
		c.Watch.Debounce.Duration = 100 * time.Millisecond
	}
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}

// expandEnvVars expands environment variables in path values
func (c *Config) expandEnvVars() {
	c.Scan.ArtifactsDir = os.ExpandEnv(c.Scan.ArtifactsDir)
	c.Scan.Grammar = os.ExpandEnv(c.Scan.Grammar)
	c.Cache.Path = os.ExpandEnv(c.Cache.Path)
}

// Validate checks enumerated settings and ranges.
func (c *Config) Validate() error {
	checks := []struct {
		key, value string
		allowed    []string
	}{
		{"scan.header_names", c.Scan.HeaderNames, HeaderModes},
		{"output.format", c.Output.Format, Formats},
		{"output.color", c.Output.Color, ColorModes},
		{"log.level", c.Log.Level, LogLevels},
		{"log.format", c.Log.Format, LogFormats},
	}
	for _, ch := range checks {
		if !slices.Contains(ch.allowed, ch.value) {
			return fmt.Errorf("%s: %q is not one of %v", ch.key, ch.value, ch.allowed)
		}
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers: must be at least 1, got %d", c.Scan.Workers)
	}
	if c.Watch.Debounce.Duration < 0 {
		return fmt.Errorf("watch.debounce: must not be negative")
	}
	return nil
}
