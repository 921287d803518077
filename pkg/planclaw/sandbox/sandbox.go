// Package sandbox provides controlled shell execution for PlanClaw
// tools.
//
// Commands run through the system shell in their own process group,
// with a filtered environment and bounded output capture. Timeouts
// terminate the whole process tree: SIGTERM first, SIGKILL after a
// grace period. Path-level confinement is the caller's job; the shell
// tool vets command text against the plan's workspace jail before
// anything reaches this package.
package sandbox

import (
	"fmt"
	"time"
)

// DefaultTimeout bounds command execution when neither the request nor
// the configuration sets a timeout.
const DefaultTimeout = 60 * time.Second

// Config holds the sandbox configuration.
type Config struct {
	// Timeout is the maximum execution time for a single command.
	// Defaults to 60s.
	Timeout time.Duration `yaml:"timeout"`

	// GracePeriod is how long a process gets between SIGTERM and
	// SIGKILL. Defaults to 5s.
	GracePeriod time.Duration `yaml:"grace_period"`

	// MaxOutputBytes limits stdout and stderr capture size, each.
	// Defaults to 1MB.
	MaxOutputBytes int64 `yaml:"max_output_bytes"`

	// Shell is the interpreter used to run commands. If empty, the
	// first of bash and sh found on PATH is used.
	Shell string `yaml:"shell"`

	// AllowedEnv is a list of environment variable names commands are
	// allowed to see. If empty, all non-blocked variables pass.
	AllowedEnv []string `yaml:"allowed_env"`

	// BlockedEnv is a list of environment variable names that are
	// always stripped. Takes precedence over AllowedEnv.
	BlockedEnv []string `yaml:"blocked_env"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		GracePeriod:    5 * time.Second,
		MaxOutputBytes: 1 * 1024 * 1024, // 1MB
		BlockedEnv:     defaultBlockedEnv(),
	}
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("grace_period must not be negative")
	}
	if c.MaxOutputBytes < 0 {
		return fmt.Errorf("max_output_bytes must not be negative")
	}
	return nil
}

// ExecRequest describes one command execution.
type ExecRequest struct {
	// Command is the shell command text.
	Command string

	// Dir is the working directory. Required.
	Dir string

	// Stdin provides data on the command's standard input.
	Stdin string

	// Env are additional environment variables for this execution.
	// Subject to filtering by the security policy.
	Env map[string]string

	// Timeout overrides the default timeout for this execution.
	Timeout time.Duration
}

// ExecResult holds the outcome of a command execution.
type ExecResult struct {
	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error.
	Stderr string

	// ExitCode is the process exit code.
	ExitCode int

	// Duration is how long the execution took.
	Duration time.Duration

	// Killed is true if the process was terminated by the sandbox.
	Killed bool

	// KillReason explains why the process was killed.
	KillReason string

	// Truncated is true if stdout or stderr hit the capture limit.
	Truncated bool
}

// defaultBlockedEnv returns environment variables that are always
// stripped from command execution, as they can be used for injection.
func defaultBlockedEnv() []string {
	return []string{
		// Node.js injection vectors
		"NODE_OPTIONS",
		"NODE_PATH",
		// Python injection vectors
		"PYTHONHOME",
		"PYTHONPATH",
		"PYTHONSTARTUP",
		// Ruby/Perl injection vectors
		"RUBYOPT",
		"PERL5LIB",
		"PERL5OPT",
		// Dynamic linker injection
		"LD_PRELOAD",
		"LD_LIBRARY_PATH",
		"DYLD_INSERT_LIBRARIES",
		"DYLD_LIBRARY_PATH",
		// Shell injection
		"BASH_ENV",
		"ENV",
		"CDPATH",
	}
}
