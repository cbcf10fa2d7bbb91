// Package retain decides and applies what happens to an original input
// after its conversion: delete it, move it to the backup directory, or
// leave it alone.
package retain

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/mattjoyce/repack/internal/log"
)

// Decision is the retention outcome for one input. Exactly one decision
// applies per successful conversion.
type Decision int

const (
	// DecisionLeaveInPlace keeps the original untouched. The default when
	// conversion failed, and for already-canonical inputs under backup.
	DecisionLeaveInPlace Decision = iota

	// DecisionDeleteOriginal removes the original after a fully
	// successful conversion with backup suppressed.
	DecisionDeleteOriginal

	// DecisionMoveToBackup relocates the original into the backup
	// directory.
	DecisionMoveToBackup
)

func (d Decision) String() string {
	switch d {
	case DecisionDeleteOriginal:
		return "delete"
	case DecisionMoveToBackup:
		return "backup"
	default:
		return "leave"
	}
}

// Decide computes the retention decision.
//
// Already-canonical inputs are never moved to backup: the recompressed
// artifact is content-equivalent to the original, so backing it up would
// only duplicate the artifact. A failed conversion always leaves the
// original in place regardless of the backup flag, so a pipeline failure
// can never compound into data loss.
func Decide(backupRequested, allStagesSucceeded, inputWasAlreadyCanonical bool) Decision {
	if !allStagesSucceeded {
		return DecisionLeaveInPlace
	}
	if inputWasAlreadyCanonical {
		if !backupRequested {
			return DecisionDeleteOriginal
		}
		return DecisionLeaveInPlace
	}
	if !backupRequested {
		return DecisionDeleteOriginal
	}
	return DecisionMoveToBackup
}

// Policy applies retention decisions. The backup directory lives in the
// invocation's working directory and is created lazily on first use; it is
// shared across all inputs of a run and never nested per-input.
type Policy struct {
	backupDir string
	logger    *slog.Logger
}

// NewPolicy creates a Policy whose backup directory is dirName resolved
// against workDir.
func NewPolicy(workDir, dirName string) *Policy {
	return &Policy{
		backupDir: filepath.Join(workDir, dirName),
		logger:    log.WithComponent("retain"),
	}
}

// BackupDir returns the (possibly not yet created) backup directory path.
func (p *Policy) BackupDir() string { return p.backupDir }

// Apply executes a decision for path.
func (p *Policy) Apply(decision Decision, path string) error {
	switch decision {
	case DecisionDeleteOriginal:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("delete original %s: %w", path, err)
		}
		p.logger.Debug("deleted original", "path", path)
		return nil

	case DecisionMoveToBackup:
		// Create-if-absent: multiple inputs in one run share this
		// directory.
		if err := os.MkdirAll(p.backupDir, 0o755); err != nil {
			return fmt.Errorf("create backup directory %s: %w", p.backupDir, err)
		}
		dest := filepath.Join(p.backupDir, filepath.Base(path))
		if err := movePath(path, dest); err != nil {
			return fmt.Errorf("move %s to backup: %w", path, err)
		}
		p.logger.Debug("moved original to backup", "path", path, "dest", dest)
		return nil

	default:
		return nil
	}
}

// movePath renames src to dest, falling back to copy-and-remove when the
// backup directory sits on a different filesystem.
func movePath(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return os.Remove(src)
}
