package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jholhewres/planclaw/pkg/planclaw/audit"
	"github.com/jholhewres/planclaw/pkg/planclaw/config"
	"github.com/jholhewres/planclaw/pkg/planclaw/jail"
	"github.com/jholhewres/planclaw/pkg/planclaw/sandbox"
	"github.com/jholhewres/planclaw/pkg/planclaw/tools"
	"github.com/jholhewres/planclaw/pkg/planclaw/workspace"
	"github.com/spf13/cobra"
)

// app holds the wired service graph shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	plans    *workspace.Manager
	ignore   *jail.IgnoreCache
	runner   *sandbox.Runner
	audit    *audit.Logger
	executor *tools.Executor
	janitor  *workspace.Janitor
}

// buildApp loads config and wires the workspace manager, sandbox,
// audit log, and tool executor.
func buildApp(cmd *cobra.Command) (*app, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := buildLogger(cmd, cfg)

	plans, err := workspace.NewManager(cfg.Workspace.BaseDir, logger)
	if err != nil {
		return nil, err
	}

	runner, err := sandbox.NewRunner(cfg.Sandbox, logger)
	if err != nil {
		return nil, err
	}

	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		path := cfg.Audit.Path
		if path == "" {
			path = filepath.Join(plans.BaseDir(), "planclaw.db")
		}
		auditLog, err = audit.Open(path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
	}

	ignore := jail.NewIgnoreCache(cfg.Jail.IgnoreFile, logger)

	executor := tools.NewExecutor(logger, auditLog)
	executor.Configure(cfg.Tools.Executor)
	tools.RegisterFileTools(executor, plans, cfg.Tools.Files)
	tools.RegisterFindTool(executor, plans, ignore, logger)
	tools.RegisterBashTool(executor, plans, runner)

	return &app{
		cfg:      cfg,
		logger:   logger,
		plans:    plans,
		ignore:   ignore,
		runner:   runner,
		audit:    auditLog,
		executor: executor,
		janitor:  workspace.NewJanitor(plans, cfg.Workspace.Janitor, logger),
	}, nil
}

// close releases resources in reverse wiring order.
func (a *app) close() {
	a.janitor.Stop()
	a.ignore.Close()
	if a.audit != nil {
		a.audit.Close()
	}
}

// resolveConfig loads config from the --config flag, an auto-discovered
// file, or the defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := findConfigFile(); found != "" {
		cfg, err := config.LoadConfigFromFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		return cfg, nil
	}

	return config.DefaultConfig(), nil
}

// findConfigFile procura o arquivo de configuração nos caminhos padrão.
func findConfigFile() string {
	candidates := []string{"planclaw.yaml", "config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "planclaw", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// buildLogger monta o slog.Logger conforme o config e a flag --verbose.
func buildLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
