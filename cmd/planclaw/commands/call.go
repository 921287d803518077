package commands

import (
	"fmt"
	"os"

	"github.com/jholhewres/planclaw/pkg/planclaw/tools"
	"github.com/spf13/cobra"
)

// newCallCmd creates the `planclaw call` command for one-shot tool calls.
func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool> [json-args]",
		Short: "Execute a single tool call in a fresh plan workspace",
		Long: `Execute one tool call inside a throwaway plan workspace and print
the result. The workspace is removed afterwards unless --keep is set.

Examples:
  planclaw call write_file '{"path":"a.md","content":"hello"}' --keep
  planclaw call bash '{"command":"ls -la"}'
  planclaw call find_files '{"pattern":"*.go"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCall,
	}

	cmd.Flags().Bool("keep", false, "keep the plan workspace after the call")
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	toolName := args[0]
	toolArgs := "{}"
	if len(args) == 2 {
		toolArgs = args[1]
	}
	if !a.executor.HasTool(toolName) {
		return fmt.Errorf("unknown tool: %s (see `planclaw tools`)", toolName)
	}

	plan, err := a.plans.Create()
	if err != nil {
		return err
	}
	keep, _ := cmd.Flags().GetBool("keep")
	if !keep {
		defer a.plans.Remove(plan.ID)
	}

	ctx := tools.ContextWithPlan(cmd.Context(), plan.ID)
	results := a.executor.Execute(ctx, []tools.ToolCall{{
		ID:       "cli",
		Type:     "function",
		Function: tools.FunctionCall{Name: toolName, Arguments: toolArgs},
	}})

	res := results[0]
	fmt.Println(res.Content)
	if keep {
		fmt.Fprintf(os.Stderr, "plan: %s (%s)\n", plan.ID, plan.Dir())
	}
	if res.Error != nil {
		return fmt.Errorf("tool %s failed", toolName)
	}
	return nil
}
