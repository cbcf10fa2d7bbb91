package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// lockFileName lives in the invocation's working directory; the backup
// directory is shared per working directory, so that is the lock scope.
const lockFileName = ".repack.lock"

// RunLock is a single-run lock implemented via a lock file + flock(2).
// It prevents two concurrent runs from racing on the shared backup
// directory. Keep the lock alive by keeping the file descriptor open.
type RunLock struct {
	path string
	f    *os.File
}

// Acquire takes an exclusive non-blocking lock scoped to workDir, writes
// the current PID into the lock file, and returns a handle that must be
// released.
func Acquire(workDir string) (*RunLock, error) {
	if workDir == "" {
		return nil, fmt.Errorf("working directory is empty")
	}
	lockPath := filepath.Join(workDir, lockFileName)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("another repack run is active in %s: %w", workDir, err)
	}

	if err := f.Truncate(0); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &RunLock{path: lockPath, f: f}, nil
}

func (l *RunLock) Path() string { return l.path }

// Release drops the lock and removes the lock file.
func (l *RunLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	_ = os.Remove(l.path)
	return err
}
