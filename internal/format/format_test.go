package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMultiFileArchives(t *testing.T) {
	for _, ext := range []string{"zip", "jar", "7z", "rar", "ar", "cbz", "cb7", "cbr"} {
		spec := Classify(ext)
		assert.Equal(t, KindMultiFileArchive, spec.Kind, "ext %s", ext)
		assert.Equal(t, ShapeTarXZ, spec.Shape, "ext %s", ext)
		assert.NotEmpty(t, spec.Archiver, "ext %s", ext)
		assert.Empty(t, spec.Codec, "ext %s", ext)
	}
}

func TestClassifyCompressedTarStreams(t *testing.T) {
	tests := map[string]string{
		"tar.gz":   CodecGzip,
		"tgz":      CodecGzip,
		"tar.Z":    CodecGzip,
		"tar.bz":   CodecBzip2,
		"tar.bz2":  CodecBzip2,
		"tbz":      CodecBzip2,
		"tbz2":     CodecBzip2,
		"tar.lzma": CodecLzma,
		"tar.lzo":  CodecLzop,
		"tzo":      CodecLzop,
		"tar.lz":   CodecLzip,
		"tlz":      CodecLzip,
		"tar.xz":   CodecXZ,
		"txz":      CodecXZ,
	}
	for ext, codec := range tests {
		spec := Classify(ext)
		assert.Equal(t, KindSingleStream, spec.Kind, "ext %s", ext)
		assert.Equal(t, ShapeTarXZ, spec.Shape, "ext %s", ext)
		assert.Equal(t, codec, spec.Codec, "ext %s", ext)
	}
}

func TestClassifyBareStreams(t *testing.T) {
	tests := map[string]string{
		"gz":   CodecGzip,
		"Z":    CodecGzip,
		"bz":   CodecBzip2,
		"bz2":  CodecBzip2,
		"lzma": CodecLzma,
		"lzo":  CodecLzop,
		"lz":   CodecLzip,
		"xz":   CodecXZ,
	}
	for ext, codec := range tests {
		spec := Classify(ext)
		assert.Equal(t, KindSingleStream, spec.Kind, "ext %s", ext)
		assert.Equal(t, ShapeRawXZ, spec.Shape, "ext %s", ext)
		assert.Equal(t, codec, spec.Codec, "ext %s", ext)
	}
}

func TestClassifyCatchAll(t *testing.T) {
	// Bare tar, unknown extensions, and no extension at all route to the
	// direct single-file compression leaf.
	for _, ext := range []string{"tar", "", "pdf", "z", "unknown"} {
		spec := Classify(ext)
		assert.Equal(t, KindNone, spec.Kind, "ext %q", ext)
		assert.Equal(t, ShapeRawXZ, spec.Shape, "ext %q", ext)
		assert.False(t, spec.AlreadyCanonical(), "ext %q", ext)
	}
}

func TestAlreadyCanonical(t *testing.T) {
	assert.True(t, Classify("xz").AlreadyCanonical())
	assert.True(t, Classify("txz").AlreadyCanonical())
	assert.True(t, Classify("tar.xz").AlreadyCanonical())
	assert.False(t, Classify("tar.gz").AlreadyCanonical())
	assert.False(t, Classify("gz").AlreadyCanonical())
}

func TestDirectorySpec(t *testing.T) {
	spec := DirectorySpec()
	assert.Equal(t, KindDirectory, spec.Kind)
	assert.Equal(t, ShapeTarXZ, spec.Shape)
}
