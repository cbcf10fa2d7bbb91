// Package convert turns one input (file, archive, or directory) into its
// canonical xz-compressed artifact by driving external tool pipelines.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mattjoyce/repack/internal/config"
	"github.com/mattjoyce/repack/internal/extension"
	"github.com/mattjoyce/repack/internal/format"
	"github.com/mattjoyce/repack/internal/log"
	"github.com/mattjoyce/repack/internal/pipeline"
)

// Result is the outcome of one conversion. Produced once per input and
// consumed by the retention policy; never shared across inputs.
type Result struct {
	OutputPath               string
	AllStagesSucceeded       bool
	InputWasAlreadyCanonical bool

	// InPlace marks the direct-compression leaf where xz itself consumed
	// the original; retention is skipped for this variant.
	InPlace bool

	Stages []pipeline.StageResult
}

// Err returns a descriptive error for the first failed stage, or nil.
func (r Result) Err() error {
	return pipeline.Result{Stages: r.Stages}.Err()
}

// Engine executes conversions using the configured backend tools.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates an Engine.
func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg, logger: log.WithComponent("convert")}
}

// Convert produces the canonical artifact for path according to spec.
// The returned error covers filesystem and plumbing problems; tool exit
// failures are reported through Result.AllStagesSucceeded and Stages.
// In every failure mode the input itself is left untouched (except the
// in-place leaf, where xz owns the input's lifecycle).
func (e *Engine) Convert(ctx context.Context, path string, info extension.Info, spec format.Spec) (Result, error) {
	switch spec.Kind {
	case format.KindDirectory:
		return e.convertDirectory(ctx, path)
	case format.KindMultiFileArchive:
		return e.convertMultiFile(ctx, path, info, spec)
	case format.KindSingleStream:
		if spec.AlreadyCanonical() {
			return e.recompressCanonical(ctx, path, info, spec)
		}
		return e.convertSingleStream(ctx, path, info, spec)
	default:
		return e.compressInPlace(ctx, path)
	}
}

// convertDirectory archives a directory's immediate contents into
// <dir>.tar.xz. The directory itself is never deleted or moved.
func (e *Engine) convertDirectory(ctx context.Context, path string) (Result, error) {
	target := path + ".tar.xz"
	res, err := e.packToFile(ctx, target, e.tarStage(path), e.xzCompressStage())
	if err != nil {
		return res, err
	}
	return res, nil
}

// convertMultiFile extracts the archive members into a private scratch
// directory, re-tars them, and compresses to <base>.tar.xz. The scratch
// directory is removed on every exit path.
func (e *Engine) convertMultiFile(ctx context.Context, path string, info extension.Info, spec format.Spec) (Result, error) {
	scratch := filepath.Join(os.TempDir(), "repack-"+uuid.NewString())
	if err := os.Mkdir(scratch, 0o755); err != nil {
		return Result{}, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			e.logger.Warn("failed to remove scratch directory", "dir", scratch, "error", err)
		}
	}()

	extractRes, err := pipeline.Run(ctx, nil, e.extractStage(spec.Archiver, path, scratch))
	if err != nil {
		return Result{Stages: extractRes.Stages}, err
	}
	if !extractRes.OK() {
		return Result{Stages: extractRes.Stages}, nil
	}

	target := info.Base + ".tar.xz"
	res, err := e.packToFile(ctx, target, e.tarStage(scratch), e.xzCompressStage())
	res.Stages = append(extractRes.Stages, res.Stages...)
	return res, err
}

// convertSingleStream decompresses one stream and recompresses it in a
// single pipe. Shape decides whether the payload was a tar stream.
func (e *Engine) convertSingleStream(ctx context.Context, path string, info extension.Info, spec format.Spec) (Result, error) {
	target := info.Base + ".xz"
	if spec.Shape == format.ShapeTarXZ {
		target = info.Base + ".tar.xz"
	}
	return e.packToFile(ctx, target, e.decompressStage(spec.Codec, path), e.xzCompressStage())
}

// recompressCanonical handles inputs that are already xz-compressed.
// The stream is decompressed and recompressed at the configured maximum
// settings into a temporary name, then renamed over the final target:
// input and target may be the same path, and the pipe must never read
// and write that path concurrently.
func (e *Engine) recompressCanonical(ctx context.Context, path string, info extension.Info, spec format.Spec) (Result, error) {
	target := info.Base + ".xz"
	if spec.Shape == format.ShapeTarXZ {
		target = info.Base + ".tar.xz"
	}
	tmp := target + ".repack-" + uuid.NewString()

	res, err := e.packToFile(ctx, tmp, e.decompressStage(format.CodecXZ, path), e.xzCompressStage())
	res.InputWasAlreadyCanonical = true
	res.OutputPath = target
	if err != nil || !res.AllStagesSucceeded {
		return res, err
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		res.AllStagesSucceeded = false
		return res, fmt.Errorf("rename %s over %s: %w", tmp, target, err)
	}
	return res, nil
}

// compressInPlace is the catch-all leaf for unknown or missing extensions:
// xz compresses the file to <path>.xz and consumes the original itself.
func (e *Engine) compressInPlace(ctx context.Context, path string) (Result, error) {
	stage := pipeline.Stage{
		Name: "xz",
		Path: e.cfg.ToolPath("xz"),
		Args: []string{e.cfg.XZPreset(), path},
	}
	res, err := pipeline.Run(ctx, nil, stage)
	out := Result{
		OutputPath:         path + ".xz",
		AllStagesSucceeded: res.OK(),
		InPlace:            true,
		Stages:             res.Stages,
	}
	return out, err
}

// packToFile runs stages into target, removing the partial file when any
// stage fails.
func (e *Engine) packToFile(ctx context.Context, target string, stages ...pipeline.Stage) (Result, error) {
	out, err := os.Create(target)
	if err != nil {
		return Result{}, fmt.Errorf("create output %s: %w", target, err)
	}

	res, runErr := pipeline.Run(ctx, out, stages...)
	closeErr := out.Close()

	result := Result{
		OutputPath:         target,
		AllStagesSucceeded: res.OK() && closeErr == nil,
		Stages:             res.Stages,
	}

	if runErr != nil || !result.AllStagesSucceeded {
		if err := os.Remove(target); err != nil {
			e.logger.Warn("failed to remove partial output", "path", target, "error", err)
		}
	}
	if runErr != nil {
		return result, runErr
	}
	if closeErr != nil {
		return result, fmt.Errorf("close output %s: %w", target, closeErr)
	}
	return result, nil
}

// tarStage builds the archive-creation stage for dir's immediate contents
// (the directory entry itself is excluded).
func (e *Engine) tarStage(dir string) pipeline.Stage {
	return pipeline.Stage{
		Name: "tar",
		Path: e.cfg.ToolPath("tar"),
		Args: []string{"-cf", "-", "-C", dir, "."},
	}
}

// xzCompressStage builds the final compression stage, stdin to stdout.
func (e *Engine) xzCompressStage() pipeline.Stage {
	return pipeline.Stage{
		Name: "xz",
		Path: e.cfg.ToolPath("xz"),
		Args: []string{e.cfg.XZPreset(), "-c"},
	}
}

// decompressStage builds the stream-decompression stage for a codec.
// lzma streams are handled by xz, which reads the legacy format natively.
func (e *Engine) decompressStage(codec, path string) pipeline.Stage {
	tool := codec
	if codec == format.CodecLzma {
		tool = "xz"
	}
	return pipeline.Stage{
		Name: tool,
		Path: e.cfg.ToolPath(tool),
		Args: []string{"-dc", path},
	}
}

// extractStage builds the member-extraction command for a container family.
// The archive path is absolute, so running with Dir set to the scratch
// directory is safe for tools that extract into the working directory.
func (e *Engine) extractStage(archiver, path, scratch string) pipeline.Stage {
	switch archiver {
	case format.Archiver7z:
		return pipeline.Stage{
			Name: "7z",
			Path: e.cfg.ToolPath("7z"),
			Args: []string{"x", "-y", "-o" + scratch, path},
		}
	case format.ArchiverUnrar:
		return pipeline.Stage{
			Name: "unrar",
			Path: e.cfg.ToolPath("unrar"),
			Args: []string{"x", "-y", path, scratch + string(os.PathSeparator)},
		}
	case format.ArchiverAr:
		return pipeline.Stage{
			Name: "ar",
			Path: e.cfg.ToolPath("ar"),
			Args: []string{"x", path},
			Dir:  scratch,
		}
	default:
		return pipeline.Stage{
			Name: "unzip",
			Path: e.cfg.ToolPath("unzip"),
			Args: []string{"-q", path, "-d", scratch},
		}
	}
}
