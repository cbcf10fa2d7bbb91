// Package run drives the per-input conversion loop: resolve, classify,
// convert, retain, journal. Inputs are processed to completion one at a
// time so retention never races a still-running pipeline.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattjoyce/repack/internal/config"
	"github.com/mattjoyce/repack/internal/convert"
	"github.com/mattjoyce/repack/internal/doctor"
	"github.com/mattjoyce/repack/internal/extension"
	"github.com/mattjoyce/repack/internal/format"
	"github.com/mattjoyce/repack/internal/journal"
	"github.com/mattjoyce/repack/internal/log"
	"github.com/mattjoyce/repack/internal/retain"
)

// Converter is the conversion engine surface the runner needs.
type Converter interface {
	Convert(ctx context.Context, path string, info extension.Info, spec format.Spec) (convert.Result, error)
}

// ItemReport is the per-input outcome presented to the user.
type ItemReport struct {
	Input            string
	Format           string // compound extension, or "directory"
	Output           string
	OK               bool
	AlreadyCanonical bool
	Retention        retain.Decision
	Duration         time.Duration
	Err              error
}

// Runner processes a batch of input arguments.
type Runner struct {
	cfg     *config.Config
	engine  Converter
	policy  *retain.Policy
	journal *journal.Journal // nil when journaling is disabled
	logger  *slog.Logger

	// Backup selects move-to-backup over delete for successful
	// conversions. On by default; suppressed by the no-backup flag.
	Backup bool
}

// New creates a Runner. jnl may be nil.
func New(cfg *config.Config, engine Converter, policy *retain.Policy, jnl *journal.Journal) *Runner {
	return &Runner{
		cfg:     cfg,
		engine:  engine,
		policy:  policy,
		journal: jnl,
		logger:  log.WithComponent("run"),
		Backup:  true,
	}
}

// Preflight verifies every backend tool the batch will need before any
// input is touched. Classification here is syntactic (plus a stat for
// directory detection); actual path resolution happens per item.
func (r *Runner) Preflight(args []string) error {
	specs := make([]format.Spec, 0, len(args))
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			specs = append(specs, format.DirectorySpec())
			continue
		}
		specs = append(specs, format.Classify(extension.Resolve(arg).Ext))
	}

	doc := doctor.New(r.cfg)
	result := doc.Check(doctor.RequiredTools(specs))
	if !result.Valid {
		return fmt.Errorf("missing backend tools:\n%s", doctor.FormatHuman(result))
	}
	return nil
}

// Run processes args in order. Pipeline and filesystem failures are
// recorded per item and processing continues; a nonexistent input aborts
// the run at that argument. The returned reports cover every item that
// was attempted.
func (r *Runner) Run(ctx context.Context, args []string) ([]ItemReport, error) {
	reports := make([]ItemReport, 0, len(args))

	for _, arg := range args {
		path, isDir, err := resolveInput(arg)
		if err != nil {
			reports = append(reports, ItemReport{Input: arg, Err: err})
			return reports, fmt.Errorf("input %q: %w", arg, err)
		}

		report := r.processOne(ctx, path, isDir)
		reports = append(reports, report)

		if report.Err != nil {
			r.logger.Warn("conversion failed", "input", path, "error", report.Err)
		}
	}

	return reports, nil
}

// processOne converts a single resolved input and applies retention.
func (r *Runner) processOne(ctx context.Context, path string, isDir bool) ItemReport {
	start := time.Now()
	itemLogger := log.WithInput(path)

	info := extension.Resolve(path)
	var spec format.Spec
	report := ItemReport{Input: path}

	if isDir {
		spec = format.DirectorySpec()
		report.Format = "directory"
		// Directories keep their full name as the artifact base.
		info = extension.Info{Ext: "", Base: path}
	} else {
		spec = format.Classify(info.Ext)
		report.Format = info.Ext
	}

	itemLogger.Info("converting", "format", report.Format, "kind", spec.Kind.String(), "shape", spec.Shape.String())

	res, err := r.engine.Convert(ctx, path, info, spec)
	report.Output = res.OutputPath
	report.OK = res.AllStagesSucceeded
	report.AlreadyCanonical = res.InputWasAlreadyCanonical
	report.Duration = time.Since(start)

	switch {
	case err != nil:
		report.Err = err
	case !res.AllStagesSucceeded:
		report.Err = res.Err()
	}

	report.Retention = r.applyRetention(path, isDir, res, itemLogger, &report)
	r.record(ctx, report)
	return report
}

// applyRetention runs the retention policy for one conversion. Directories
// are never deleted or moved, the in-place leaf already consumed its
// original, and a same-path self-recompression has nothing left to retire.
func (r *Runner) applyRetention(path string, isDir bool, res convert.Result, itemLogger *slog.Logger, report *ItemReport) retain.Decision {
	if isDir || res.InPlace || res.OutputPath == path {
		return retain.DecisionLeaveInPlace
	}

	decision := retain.Decide(r.Backup, res.AllStagesSucceeded, res.InputWasAlreadyCanonical)
	if err := r.policy.Apply(decision, path); err != nil {
		itemLogger.Error("retention failed", "decision", decision.String(), "error", err)
		if report.Err == nil {
			report.Err = err
		}
		return retain.DecisionLeaveInPlace
	}
	return decision
}

// record writes the item to the journal when journaling is enabled.
func (r *Runner) record(ctx context.Context, report ItemReport) {
	if r.journal == nil {
		return
	}

	entry := journal.Entry{
		Input:     report.Input,
		Output:    report.Output,
		Format:    report.Format,
		Status:    "failed",
		Retention: report.Retention.String(),
		Duration:  report.Duration,
	}
	if report.OK {
		entry.Status = "ok"
		if digest, err := journal.DigestFile(report.Output); err == nil {
			entry.Digest = digest
		} else {
			r.logger.Warn("failed to digest output", "path", report.Output, "error", err)
		}
	}

	if err := r.journal.Record(ctx, entry); err != nil {
		r.logger.Warn("failed to record journal entry", "input", report.Input, "error", err)
	}
}

// resolveInput turns a CLI argument into an absolute, symlink-resolved
// path and reports whether it is a directory. Missing inputs are a hard
// error for the item.
func resolveInput(arg string) (string, bool, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", false, fmt.Errorf("resolve path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false, fmt.Errorf("input does not exist: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", false, fmt.Errorf("stat input: %w", err)
	}
	return resolved, info.IsDir(), nil
}
