// Package pipeline executes a chain of external commands connected by pipes
// and reports the exit status of every stage individually.
//
// A conversion like "bzip2 -dc in.tbz2 | xz -9 -c" runs both processes
// concurrently; success of the whole pipe requires success of each stage,
// not just the last one. Callers must check Result.OK before treating the
// produced output as complete.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// maxStderrBytes caps the amount of stderr captured per stage.
const maxStderrBytes = 16 * 1024

// Stage describes one external command in a pipe.
type Stage struct {
	Name string // short label used in results and logs
	Path string // binary to execute (resolved via PATH if bare)
	Args []string
	Dir  string // working directory; empty means inherit
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Name     string
	ExitCode int
	Stderr   string
	Err      error // non-exit failures (start, wait, pipe plumbing)
}

// OK reports whether the stage ran and exited zero.
func (s StageResult) OK() bool {
	return s.Err == nil && s.ExitCode == 0
}

// Result aggregates every stage of one pipe run.
type Result struct {
	Stages []StageResult
}

// OK reports whether every stage succeeded.
func (r Result) OK() bool {
	if len(r.Stages) == 0 {
		return false
	}
	for _, s := range r.Stages {
		if !s.OK() {
			return false
		}
	}
	return true
}

// Err returns a descriptive error for the first failed stage, or nil.
func (r Result) Err() error {
	for _, s := range r.Stages {
		if s.OK() {
			continue
		}
		if s.Err != nil {
			return fmt.Errorf("stage %s: %w", s.Name, s.Err)
		}
		msg := strings.TrimSpace(s.Stderr)
		if msg != "" {
			return fmt.Errorf("stage %s: exit %d: %s", s.Name, s.ExitCode, msg)
		}
		return fmt.Errorf("stage %s: exit %d", s.Name, s.ExitCode)
	}
	return nil
}

// Run executes stages as one pipe: each stage's stdout feeds the next
// stage's stdin, and the final stage's stdout goes to out (io.Discard when
// nil). The returned error covers plumbing failures only; per-stage exit
// status lives in the Result and a nonzero stage does not produce a Run
// error by itself.
func Run(ctx context.Context, out io.Writer, stages ...Stage) (Result, error) {
	if len(stages) == 0 {
		return Result{}, errors.New("pipeline has no stages")
	}
	if out == nil {
		out = io.Discard
	}

	cmds := make([]*exec.Cmd, len(stages))
	stderrs := make([]*capBuffer, len(stages))
	result := Result{Stages: make([]StageResult, len(stages))}

	for i, st := range stages {
		cmd := exec.CommandContext(ctx, st.Path, st.Args...)
		cmd.Dir = st.Dir
		stderrs[i] = &capBuffer{limit: maxStderrBytes}
		cmd.Stderr = stderrs[i]
		cmds[i] = cmd
		result.Stages[i] = StageResult{Name: st.Name}
	}

	// Wire the pipe: stage i stdout -> stage i+1 stdin.
	for i := 0; i < len(cmds)-1; i++ {
		stdout, err := cmds[i].StdoutPipe()
		if err != nil {
			return result, fmt.Errorf("stdout pipe for stage %s: %w", stages[i].Name, err)
		}
		cmds[i+1].Stdin = stdout
	}
	cmds[len(cmds)-1].Stdout = out

	started := 0
	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			result.Stages[i].Err = fmt.Errorf("start: %w", err)
			break
		}
		started++
	}

	// Wait in reverse order: the last stage must drain its stdin before
	// Wait closes the upstream stdout pipe underneath it.
	for i := started - 1; i >= 0; i-- {
		err := cmds[i].Wait()
		result.Stages[i].Stderr = stderrs[i].String()
		if err == nil {
			continue
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Stages[i].ExitCode = exitErr.ExitCode()
		} else {
			result.Stages[i].Err = err
		}
	}

	if started < len(cmds) {
		return result, result.Stages[started].Err
	}
	return result, nil
}

// capBuffer is a bytes.Buffer that silently drops writes past its limit.
type capBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *capBuffer) Write(p []byte) (int, error) {
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *capBuffer) String() string { return b.buf.String() }
