package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	// Point discovery at nothing.
	t.Setenv("REPACK_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "OldArchives", cfg.Backup.Dir)
	assert.Equal(t, 9, cfg.Compression.Level)
	assert.True(t, cfg.Compression.Extreme)
	assert.Equal(t, "-9e", cfg.XZPreset())
	assert.Equal(t, "xz", cfg.ToolPath("xz"))
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
compression:
  level: 6
  extreme: false
backup:
  dir: Originals
tools:
  xz: /opt/xz/bin/xz
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "-6", cfg.XZPreset())
	assert.Equal(t, "Originals", cfg.Backup.Dir)
	assert.Equal(t, "/opt/xz/bin/xz", cfg.ToolPath("xz"))
	assert.Equal(t, "tar", cfg.ToolPath("tar"))
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("REPACK_TEST_TOOLDIR", "/custom/bin")
	path := writeConfig(t, `
tools:
  xz: ${REPACK_TEST_TOOLDIR}/xz
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/custom/bin/xz", cfg.ToolPath("xz"))
}

func TestLoadUnresolvedToolEnvVarFails(t *testing.T) {
	path := writeConfig(t, `
tools:
  xz: ${REPACK_TEST_UNSET_VAR_12345}/xz
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPACK_TEST_UNSET_VAR_12345")
}

func TestLevelEnvVarOverride(t *testing.T) {
	path := writeConfig(t, `
compression:
  level: 3
  extreme: false
`)

	t.Setenv(LevelEnvVar, "9e")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "-9e", cfg.XZPreset())

}

func TestLevelEnvVarInvalid(t *testing.T) {
	t.Setenv(LevelEnvVar, "fast")
	t.Setenv("REPACK_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	_, err := Load("")
	require.Error(t, err)
}

func TestValidateRejectsBadLevel(t *testing.T) {
	path := writeConfig(t, `
compression:
  level: 12
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compression.level")
}

func TestValidateRejectsNestedBackupDir(t *testing.T) {
	path := writeConfig(t, `
backup:
  dir: old/archives
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup.dir")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
