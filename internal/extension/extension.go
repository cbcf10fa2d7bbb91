// Package extension recovers the compound archive extension of a filename.
//
// Compressors commonly double up a tar container with a single-stream codec
// ("a.tar.gz"), and the two suffix components must be dispatched as one unit.
// Resolve therefore looks back one extra dot-separated component when the
// component preceding the last extension is exactly "tar".
package extension

import (
	"strings"
)

// Info is the result of resolving a path's extension.
// Ext is dot-free ("tar.gz", "gz", "" when the name has no dot).
// Base is the full path with "." + Ext stripped; when Ext is empty,
// Base is the path unchanged.
type Info struct {
	Ext  string
	Base string
}

// HasExt reports whether the path carried any extension at all.
func (i Info) HasExt() bool { return i.Ext != "" }

// Resolve determines the compound extension and base name for path.
// Resolution is purely syntactic and never fails; an unrecognized
// extension is the classifier's concern, not ours.
func Resolve(path string) Info {
	// Operate on the final path component only, so a dotted directory
	// ("v2.0/data") never contributes an extension.
	slash := strings.LastIndexByte(path, '/')
	name := path[slash+1:]

	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return Info{Ext: "", Base: path}
	}

	ext := name[dot+1:]
	remainder := name[:dot]

	// Two-token lookback: ".tar" immediately before the candidate
	// extension makes the pair one compound extension.
	if strings.HasSuffix(remainder, ".tar") {
		ext = "tar." + ext
	}

	return Info{
		Ext:  ext,
		Base: strings.TrimSuffix(path, "."+ext),
	}
}
