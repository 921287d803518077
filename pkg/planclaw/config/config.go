// Package config defines PlanClaw's configuration: YAML files with
// defaults overlay, environment variable expansion, and .env loading
// (see loader.go).
package config

import (
	"fmt"

	"github.com/jholhewres/planclaw/pkg/planclaw/sandbox"
	"github.com/jholhewres/planclaw/pkg/planclaw/tools"
	"github.com/jholhewres/planclaw/pkg/planclaw/workspace"
)

// Config is the root configuration.
type Config struct {
	// Name identifies this PlanClaw instance in logs.
	Name string `yaml:"name"`

	Logging   LoggingConfig   `yaml:"logging"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Jail      JailConfig      `yaml:"jail"`
	Sandbox   sandbox.Config  `yaml:"sandbox"`
	Tools     ToolsConfig     `yaml:"tools"`
	Audit     AuditConfig     `yaml:"audit"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// WorkspaceConfig controls plan workspaces.
type WorkspaceConfig struct {
	// BaseDir is where plan directories are created.
	BaseDir string `yaml:"base_dir"`

	Janitor workspace.JanitorConfig `yaml:"janitor"`
}

// JailConfig controls the path engine.
type JailConfig struct {
	// IgnoreFile is the rule-file name honored by searches.
	// Defaults to ".gitignore".
	IgnoreFile string `yaml:"ignore_file"`
}

// ToolsConfig groups the tool-layer settings.
type ToolsConfig struct {
	Executor tools.ExecutorConfig  `yaml:"executor"`
	Files    tools.FileToolsConfig `yaml:"files"`
}

// AuditConfig controls the audit log.
type AuditConfig struct {
	// Enabled toggles audit logging.
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file. Defaults to
	// <workspace base>/planclaw.db.
	Path string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name: "planclaw",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Workspace: WorkspaceConfig{
			BaseDir: "./plans",
			Janitor: workspace.DefaultJanitorConfig(),
		},
		Jail: JailConfig{
			IgnoreFile: ".gitignore",
		},
		Sandbox: sandbox.DefaultConfig(),
		Tools: ToolsConfig{
			Executor: tools.ExecutorConfig{
				Parallel:    true,
				MaxParallel: 5,
			},
			Files: tools.DefaultFileToolsConfig(),
		},
		Audit: AuditConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Workspace.BaseDir == "" {
		return fmt.Errorf("workspace.base_dir is required")
	}
	if err := c.Sandbox.Validate(); err != nil {
		return fmt.Errorf("sandbox: %w", err)
	}
	return nil
}
