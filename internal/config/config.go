package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-esym/pkg/modname"
	"github.com/l3aro/go-esym/pkg/transform"
)

// Config holds all configuration for esym
type Config struct {
	// Module naming
	SourceDir       string `yaml:"source_dir" env:"ESYM_SOURCE_DIR"`
	SourceExtension string `yaml:"source_extension" env:"ESYM_SOURCE_EXTENSION"`
	ModuleBase      string `yaml:"module_base" env:"ESYM_MODULE_BASE"`

	// SourceMappings maps bare import prefixes to module name prefixes
	SourceMappings map[string]string `yaml:"source_mappings,omitempty"`

	// Runtime binding module and registration global
	YmModuleName string `yaml:"ym_module_name" env:"ESYM_YM_MODULE_NAME"`
	YmGlobal     string `yaml:"ym_global" env:"ESYM_YM_GLOBAL"`

	// ImplicitImports are added as dependencies of every module
	ImplicitImports []string `yaml:"implicit_imports,omitempty" env:"ESYM_IMPLICIT_IMPORTS"`

	// Build output
	OutDir  string   `yaml:"out_dir" env:"ESYM_OUT_DIR"`
	Exclude []string `yaml:"exclude,omitempty" env:"ESYM_EXCLUDE"`

	// Build cache
	CachePath string `yaml:"cache_path" env:"ESYM_CACHE_PATH"`
	CacheSize int    `yaml:"cache_size" env:"ESYM_CACHE_SIZE"`

	// Workers is the number of files transformed concurrently
	Workers int `yaml:"workers" env:"ESYM_WORKERS"`

	// Logging
	Verbose bool `yaml:"verbose" env:"ESYM_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SourceDir:       ".",
		SourceExtension: ".js",
		ModuleBase:      "",
		YmModuleName:    transform.DefaultYmModuleName,
		YmGlobal:        transform.DefaultYmGlobal,
		OutDir:          "dist",
		CachePath:       ".esym/cache.msgpack",
		CacheSize:       4096,
		Workers:         4,
		Verbose:         false,
	}
}

// globalConfigFilePath returns the global config file path (~/.esym/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".esym/config.yaml"
	}
	return filepath.Join(home, ".esym", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.esym/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".esym", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.esym/config.yaml)
// 3. Global config (~/.esym/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{globalConfigFilePath(), ProjectConfigFilePath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ESYM_SOURCE_DIR"); v != "" {
		cfg.SourceDir = v
	}
	if v := os.Getenv("ESYM_SOURCE_EXTENSION"); v != "" {
		cfg.SourceExtension = v
	}
	if v, ok := os.LookupEnv("ESYM_MODULE_BASE"); ok {
		cfg.ModuleBase = v
	}
	if v := os.Getenv("ESYM_YM_MODULE_NAME"); v != "" {
		cfg.YmModuleName = v
	}
	if v := os.Getenv("ESYM_YM_GLOBAL"); v != "" {
		cfg.YmGlobal = v
	}
	if v := os.Getenv("ESYM_IMPLICIT_IMPORTS"); v != "" {
		cfg.ImplicitImports = splitList(v)
	}
	if v := os.Getenv("ESYM_OUT_DIR"); v != "" {
		cfg.OutDir = v
	}
	if v := os.Getenv("ESYM_EXCLUDE"); v != "" {
		cfg.Exclude = splitList(v)
	}
	if v := os.Getenv("ESYM_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("ESYM_CACHE_SIZE"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheSize = i
		}
	}
	if v := os.Getenv("ESYM_WORKERS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("ESYM_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if c.SourceExtension == "" {
		return fmt.Errorf("source_extension is required")
	}
	if !strings.HasPrefix(c.SourceExtension, ".") {
		return fmt.Errorf("source_extension must start with a dot: %s", c.SourceExtension)
	}
	if filepath.IsAbs(c.SourceDir) {
		return fmt.Errorf("source_dir must be relative: %s", c.SourceDir)
	}
	if c.YmModuleName == "" {
		return fmt.Errorf("ym_module_name is required")
	}
	if !isIdentifier(c.YmGlobal) {
		return fmt.Errorf("ym_global must be a JavaScript identifier: %q", c.YmGlobal)
	}
	if c.OutDir == "" {
		return fmt.Errorf("out_dir is required")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	for _, m := range c.ImplicitImports {
		if m == "" {
			return fmt.Errorf("implicit_imports contains an empty module name")
		}
	}
	return nil
}

// NamingOptions returns the module naming part of the configuration.
func (c *Config) NamingOptions() modname.Options {
	return modname.Options{
		SourceExtension: c.SourceExtension,
		SourceDir:       c.SourceDir,
		ModuleBase:      c.ModuleBase,
	}
}

// TransformOptions builds transform options rooted at workingDir.
func (c *Config) TransformOptions(workingDir string) transform.Options {
	opts := transform.Options{
		Naming:         c.NamingOptions(),
		SourceMappings: c.SourceMappings,
		WorkingDir:     workingDir,
		YmModuleName:   c.YmModuleName,
		YmGlobal:       c.YmGlobal,
	}
	if len(c.ImplicitImports) > 0 {
		opts.Plugins = append(opts.Plugins, &transform.ImplicitImports{Modules: c.ImplicitImports})
	}
	return opts
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '$' || r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// splitList splits a comma separated environment value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
