// Package config loads repack configuration from YAML with environment
// variable interpolation. Configuration is entirely optional: every key has
// a default and the tool runs without any config file present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LevelEnvVar overrides compression.level/extreme when set, e.g. "6" or "9e".
const LevelEnvVar = "REPACK_XZ_LEVEL"

// Load reads and parses configuration from path. An empty path triggers
// discovery; when discovery finds nothing, built-in defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		discovered, err := Discover()
		if err != nil {
			return nil, err
		}
		if discovered == "" {
			return finalize(Defaults())
		}
		path = discovered
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %q: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: check the path or run with --config", absPath)
	}

	// Apply environment variable interpolation before parsing.
	interpolated := interpolateEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", absPath, err)
	}

	return finalize(cfg)
}

// Discover finds a config file by checking standard locations.
// Priority order: $REPACK_CONFIG, ~/.config/repack/config.yaml,
// /etc/repack/config.yaml, ./repack.yaml. Returns "" when none exists.
func Discover() (string, error) {
	if p := os.Getenv("REPACK_CONFIG"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("$REPACK_CONFIG points at %s but it is not readable: %w", p, err)
		}
		return p, nil
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "repack", "config.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig, nil
		}
	}

	systemConfig := "/etc/repack/config.yaml"
	if _, err := os.Stat(systemConfig); err == nil {
		return systemConfig, nil
	}

	localConfig := "./repack.yaml"
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	return "", nil
}

// finalize applies environment overrides and validates.
func finalize(cfg *Config) (*Config, error) {
	if raw := os.Getenv(LevelEnvVar); raw != "" {
		level, extreme, err := parseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("$%s: %w", LevelEnvVar, err)
		}
		cfg.Compression.Level = level
		cfg.Compression.Extreme = extreme
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseLevel parses a preset like "6" or "9e".
func parseLevel(raw string) (int, bool, error) {
	extreme := strings.HasSuffix(raw, "e")
	numeric := strings.TrimSuffix(raw, "e")
	level, err := strconv.Atoi(numeric)
	if err != nil {
		return 0, false, fmt.Errorf("expected 0-9 optionally followed by 'e', got %q", raw)
	}
	return level, extreme, nil
}

func validate(cfg *Config) error {
	if cfg.Compression.Level < 0 || cfg.Compression.Level > 9 {
		return fmt.Errorf("compression.level must be 0-9 (got %d)", cfg.Compression.Level)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error (got %q)", cfg.LogLevel)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json (got %q)", cfg.LogFormat)
	}

	if cfg.Backup.Dir == "" {
		return fmt.Errorf("backup.dir must not be empty")
	}
	if strings.ContainsAny(cfg.Backup.Dir, `/\`) {
		return fmt.Errorf("backup.dir must be a bare directory name (got %q)", cfg.Backup.Dir)
	}

	// Unresolved ${VAR} in a tool path would produce a confusing LookPath
	// failure later; reject it here with the variable name.
	for tool, path := range cfg.Tools {
		if m := envVarPattern.FindStringSubmatch(path); m != nil {
			return fmt.Errorf("tools.%s: environment variable ${%s} is not set", tool, m[1])
		}
	}

	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (caught by validation where they matter).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}
