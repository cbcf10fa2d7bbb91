// Package format maps a resolved archive extension to its handling strategy.
//
// The table is grouped by extraction mechanism rather than by individual
// extension: adding a new codec spelling is a one-line addition to an
// existing group. Entries are static and a Spec is immutable once produced.
package format

// Kind is the extraction mechanism required for an input.
type Kind int

const (
	// KindNone means no extraction: the input is compressed in place as a
	// single file. Also the catch-all for unknown or missing extensions.
	KindNone Kind = iota

	// KindDirectory archives a directory's contents. Detected by stat,
	// never by extension.
	KindDirectory

	// KindSingleStream decompresses one compressed stream (optionally a
	// tar stream) through a pipe.
	KindSingleStream

	// KindMultiFileArchive extracts a container with independent members
	// into a staging directory before re-tarring.
	KindMultiFileArchive
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDirectory:
		return "directory"
	case KindSingleStream:
		return "single-stream"
	case KindMultiFileArchive:
		return "multi-file-archive"
	default:
		return "unknown"
	}
}

// Shape is the canonical output artifact form.
type Shape int

const (
	// ShapeRawXZ produces <base>.xz.
	ShapeRawXZ Shape = iota

	// ShapeTarXZ produces <base>.tar.xz.
	ShapeTarXZ
)

func (s Shape) String() string {
	if s == ShapeTarXZ {
		return "tar.xz"
	}
	return "xz"
}

// Codec names for single-stream decompression. Each maps to one external
// tool; the convert package owns the argv.
const (
	CodecGzip  = "gzip"
	CodecBzip2 = "bzip2"
	CodecLzma  = "lzma"
	CodecLzop  = "lzop"
	CodecLzip  = "lzip"
	CodecXZ    = "xz"
)

// Archiver names for multi-file extraction.
const (
	ArchiverUnzip = "unzip"
	Archiver7z    = "7z"
	ArchiverUnrar = "unrar"
	ArchiverAr    = "ar"
)

// Spec describes how one input is converted. Derived purely from the
// compound extension (or from directory detection) via the static table.
type Spec struct {
	Kind     Kind
	Shape    Shape
	Codec    string // single-stream decompressor family, "" otherwise
	Archiver string // multi-file extractor family, "" otherwise
}

// AlreadyCanonical reports whether the input is itself xz-compressed and
// conversion is a self-recompression at the configured level.
func (s Spec) AlreadyCanonical() bool {
	return s.Codec == CodecXZ
}

var table = map[string]Spec{
	// Multi-file containers: extract to a scratch dir, re-tar, compress.
	"zip": {Kind: KindMultiFileArchive, Shape: ShapeTarXZ, Archiver: ArchiverUnzip},
	"jar": {Kind: KindMultiFileArchive, Shape: ShapeTarXZ, Archiver: ArchiverUnzip},
	"cbz": {Kind: KindMultiFileArchive, Shape: ShapeTarXZ, Archiver: ArchiverUnzip},
	"7z":  {Kind: KindMultiFileArchive, Shape: ShapeTarXZ, Archiver: Archiver7z},
	"cb7": {Kind: KindMultiFileArchive, Shape: ShapeTarXZ, Archiver: Archiver7z},
	"rar": {Kind: KindMultiFileArchive, Shape: ShapeTarXZ, Archiver: ArchiverUnrar},
	"cbr": {Kind: KindMultiFileArchive, Shape: ShapeTarXZ, Archiver: ArchiverUnrar},
	"ar":  {Kind: KindMultiFileArchive, Shape: ShapeTarXZ, Archiver: ArchiverAr},

	// Compressed tar streams: decompress only, contents are already tar.
	"tar.gz":   {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecGzip},
	"tgz":      {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecGzip},
	"tar.Z":    {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecGzip},
	"tar.bz":   {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecBzip2},
	"tar.bz2":  {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecBzip2},
	"tbz":      {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecBzip2},
	"tbz2":     {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecBzip2},
	"tar.lzma": {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecLzma},
	"tar.lzo":  {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecLzop},
	"tzo":      {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecLzop},
	"tar.lz":   {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecLzip},
	"tlz":      {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecLzip},
	"tar.xz":   {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecXZ},
	"txz":      {Kind: KindSingleStream, Shape: ShapeTarXZ, Codec: CodecXZ},

	// Bare compressed streams: decompress and recompress to <base>.xz.
	"gz":   {Kind: KindSingleStream, Shape: ShapeRawXZ, Codec: CodecGzip},
	"Z":    {Kind: KindSingleStream, Shape: ShapeRawXZ, Codec: CodecGzip},
	"bz":   {Kind: KindSingleStream, Shape: ShapeRawXZ, Codec: CodecBzip2},
	"bz2":  {Kind: KindSingleStream, Shape: ShapeRawXZ, Codec: CodecBzip2},
	"lzma": {Kind: KindSingleStream, Shape: ShapeRawXZ, Codec: CodecLzma},
	"lzo":  {Kind: KindSingleStream, Shape: ShapeRawXZ, Codec: CodecLzop},
	"lz":   {Kind: KindSingleStream, Shape: ShapeRawXZ, Codec: CodecLzip},
	"xz":   {Kind: KindSingleStream, Shape: ShapeRawXZ, Codec: CodecXZ},
}

// Classify maps a compound extension to its Spec. Unknown extensions
// (including bare "tar" and the empty extension) fall through to the
// direct-compression leaf.
func Classify(ext string) Spec {
	if spec, ok := table[ext]; ok {
		return spec
	}
	return Spec{Kind: KindNone, Shape: ShapeRawXZ}
}

// DirectorySpec is the Spec for directory inputs, which are detected by
// stat rather than by extension.
func DirectorySpec() Spec {
	return Spec{Kind: KindDirectory, Shape: ShapeTarXZ}
}

// Known reports whether ext has a table entry. Used by the doctor to
// decide which backend tools a batch needs.
func Known(ext string) bool {
	_, ok := table[ext]
	return ok
}
