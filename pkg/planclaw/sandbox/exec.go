// Package sandbox – exec.go runs commands through the system shell in
// their own process group with bounded output capture.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

// shellPath caches the resolved interpreter path process-wide. Racing
// lookups all converge on the same value, so a plain atomic store is
// enough; unlike a once, a transient lookup failure is retried on the
// next call.
var shellPath atomic.Pointer[string]

// resolveShell returns the interpreter used for command execution.
func resolveShell(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if p := shellPath.Load(); p != nil {
		return *p, nil
	}
	for _, name := range []string{"bash", "sh"} {
		if path, err := exec.LookPath(name); err == nil {
			shellPath.Store(&path)
			return path, nil
		}
	}
	return "", fmt.Errorf("no shell interpreter found on PATH")
}

// Runner executes shell commands under the sandbox policy.
type Runner struct {
	cfg    Config
	policy *Policy
	logger *slog.Logger
}

// NewRunner creates a runner with the given configuration.
func NewRunner(cfg Config, logger *slog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sandbox config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		policy: NewPolicy(cfg),
		logger: logger.With("component", "sandbox"),
	}, nil
}

// Run executes a command and captures its output. The command runs in
// a fresh process group; on timeout the group receives SIGTERM, then
// SIGKILL after the grace period.
func (r *Runner) Run(ctx context.Context, req *ExecRequest) (*ExecResult, error) {
	if strings.TrimSpace(req.Command) == "" {
		return nil, fmt.Errorf("empty command")
	}
	if req.Dir == "" {
		return nil, fmt.Errorf("working directory is required")
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = r.cfg.Timeout
	}
	// A zero Config passes Validate; never run with an
	// already-expired deadline.
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	shell, err := resolveShell(r.cfg.Shell)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, shell, "-c", req.Command)
	cmd.Dir = req.Dir
	cmd.Env = r.buildEnv(req.Env)
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	// New process group so the whole tree can be terminated together.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		pgid := -cmd.Process.Pid
		if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil {
			return syscall.Kill(pgid, syscall.SIGKILL)
		}
		time.AfterFunc(r.cfg.GracePeriod, func() {
			_ = syscall.Kill(pgid, syscall.SIGKILL)
		})
		return nil
	}
	cmd.WaitDelay = r.cfg.GracePeriod + time.Second

	// Stdout and stderr drain through independent writers so a full
	// pipe on one never blocks the other. WaitDelay bounds how long
	// Wait blocks on the drains after the process exits, so a
	// grandchild that inherited the pipes cannot wedge the tool call.
	stdout := newCappedBuffer(r.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(r.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting command: %w", err)
	}
	waitErr := cmd.Wait()

	result := &ExecResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  time.Since(start),
		Truncated: stdout.truncated || stderr.truncated,
	}

	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		result.Killed = true
		result.KillReason = "timeout"
		result.ExitCode = -1
	case errors.Is(waitErr, exec.ErrWaitDelay):
		// The process exited cleanly but something kept its output
		// pipes open past the drain deadline.
	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("waiting for command: %w", waitErr)
		}
	}

	r.logger.Debug("command finished",
		"exit_code", result.ExitCode,
		"duration", result.Duration,
		"killed", result.Killed)
	return result, nil
}

// buildEnv filters the ambient environment and appends request
// variables, both subject to policy.
func (r *Runner) buildEnv(extra map[string]string) []string {
	env := r.policy.FilterEnv(os.Environ())
	for k, v := range extra {
		if r.policy.IsEnvAllowed(k) {
			env = append(env, k+"="+v)
		}
	}
	return env
}

// cappedBuffer collects writes up to a byte limit and discards the
// rest, recording that truncation happened.
type cappedBuffer struct {
	limit     int64
	buf       strings.Builder
	truncated bool
}

func newCappedBuffer(limit int64) *cappedBuffer {
	if limit <= 0 {
		limit = 1 << 20
	}
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - int64(b.buf.Len())
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }
