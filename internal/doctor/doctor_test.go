package doctor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mattjoyce/repack/internal/config"
	"github.com/mattjoyce/repack/internal/format"
)

func TestRequiredToolsAlwaysIncludesXZ(t *testing.T) {
	tools := RequiredTools(nil)
	assert.Equal(t, []string{"xz"}, tools)
}

func TestRequiredToolsPerSpec(t *testing.T) {
	specs := []format.Spec{
		format.Classify("tar.gz"),
		format.Classify("zip"),
		format.Classify("bz2"),
		format.Classify("tar.xz"),
		format.Classify("lzma"),
		format.DirectorySpec(),
	}

	tools := RequiredTools(specs)
	assert.Equal(t, []string{"bzip2", "gzip", "tar", "unzip", "xz"}, tools)
}

func TestRequiredToolsRawShapeSkipsTar(t *testing.T) {
	tools := RequiredTools([]format.Spec{format.Classify("gz")})
	assert.Equal(t, []string{"gzip", "xz"}, tools)
}

func TestCheckReportsMissing(t *testing.T) {
	d := New(config.Defaults())
	d.lookPath = func(name string) (string, error) {
		if name == "xz" {
			return "/usr/bin/xz", nil
		}
		return "", fmt.Errorf("executable file not found in $PATH")
	}

	r := d.Check([]string{"unrar", "xz"})
	assert.False(t, r.Valid)
	assert.Len(t, r.Errors, 1)
	assert.Equal(t, "unrar", r.Errors[0].Tool)

	human := FormatHuman(r)
	assert.Contains(t, human, "MISS  unrar")
	assert.Contains(t, human, "OK    xz")
}

func TestCheckHonorsToolOverrides(t *testing.T) {
	cfg := config.Defaults()
	cfg.Tools = map[string]string{"xz": "/opt/xz/bin/xz"}

	var asked []string
	d := New(cfg)
	d.lookPath = func(name string) (string, error) {
		asked = append(asked, name)
		return name, nil
	}

	r := d.Check([]string{"xz"})
	assert.True(t, r.Valid)
	assert.Equal(t, []string{"/opt/xz/bin/xz"}, asked)
}

func TestFormatJSON(t *testing.T) {
	d := New(config.Defaults())
	d.lookPath = func(name string) (string, error) { return "/bin/" + name, nil }

	out, err := FormatJSON(d.Check([]string{"tar", "xz"}))
	assert.NoError(t, err)
	assert.True(t, strings.Contains(out, `"valid": true`))
}
