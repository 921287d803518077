package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newServeCmd creates the `planclaw serve` command that runs the daemon.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the workspace daemon",
		Long: `Run PlanClaw as a daemon: plan workspaces stay live across tool
calls and the janitor removes idle plans on schedule.

Examples:
  planclaw serve
  planclaw serve --config ./planclaw.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.janitor.Start(); err != nil {
		a.logger.Error("failed to start janitor", "error", err)
	}

	a.logger.Info("PlanClaw running. Press Ctrl+C to stop.",
		"name", a.cfg.Name,
		"workspace", a.plans.BaseDir(),
		"tools", a.executor.ToolNames(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	a.logger.Info("shutdown signal received, stopping...")
	return nil
}
