package config

// Config is the resolved repack configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Backup      BackupConfig      `yaml:"backup"`
	Compression CompressionConfig `yaml:"compression"`
	Journal     JournalConfig     `yaml:"journal"`

	// Tools maps a backend tool name (xz, tar, gzip, bzip2, lzop, lzip,
	// unzip, 7z, unrar, ar) to an explicit binary path. Unlisted tools
	// resolve through PATH under their own name.
	Tools map[string]string `yaml:"tools"`
}

// BackupConfig controls where originals are moved when backup is requested.
type BackupConfig struct {
	// Dir is the backup directory name, created lazily in the invocation's
	// working directory. Never nested per-input.
	Dir string `yaml:"dir"`
}

// CompressionConfig controls the xz re-compression settings.
type CompressionConfig struct {
	// Level is the xz preset, 0-9.
	Level int `yaml:"level"`
	// Extreme appends the xz "e" modifier to the preset.
	Extreme bool `yaml:"extreme"`
}

// JournalConfig controls the optional conversion journal.
type JournalConfig struct {
	// Path to the SQLite journal database. Empty disables journaling.
	Path string `yaml:"path"`
}

// Defaults returns the built-in configuration used when no config file is
// present and as the base that a loaded file overrides.
func Defaults() *Config {
	return &Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Backup: BackupConfig{
			Dir: "OldArchives",
		},
		Compression: CompressionConfig{
			Level:   9,
			Extreme: true,
		},
		Tools: map[string]string{},
	}
}

// ToolPath resolves the binary for a backend tool, honoring overrides.
func (c *Config) ToolPath(name string) string {
	if c.Tools != nil {
		if p, ok := c.Tools[name]; ok && p != "" {
			return p
		}
	}
	return name
}

// XZPreset renders the compression settings as a single xz preset flag,
// e.g. "-9e".
func (c *Config) XZPreset() string {
	flag := "-" + string(rune('0'+c.Compression.Level))
	if c.Compression.Extreme {
		flag += "e"
	}
	return flag
}
