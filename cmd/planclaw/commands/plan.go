package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jholhewres/planclaw/pkg/planclaw/workspace"
	"github.com/spf13/cobra"
)

// newPlanCmd creates the `planclaw plan` command group.
func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage plan workspaces",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List plan workspaces on disk",
			RunE:  runPlanList,
		},
		&cobra.Command{
			Use:   "create",
			Short: "Create a plan workspace and print its ID",
			RunE:  runPlanCreate,
		},
		&cobra.Command{
			Use:   "remove <plan-id>",
			Short: "Remove a plan workspace and everything in it",
			Args:  cobra.ExactArgs(1),
			RunE:  runPlanRemove,
		},
	)
	return cmd
}

func runPlanList(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	entries, err := os.ReadDir(a.plans.BaseDir())
	if err != nil {
		return err
	}

	found := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), workspace.PlanIDPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		fmt.Printf("%s\t%s\n", entry.Name(), info.ModTime().Format("2006-01-02 15:04"))
		found++
	}
	if found == 0 {
		fmt.Println("No plan workspaces.")
	}
	return nil
}

func runPlanCreate(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	plan, err := a.plans.Create()
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", plan.ID, plan.Dir())
	return nil
}

func runPlanRemove(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	id := args[0]
	if !strings.HasPrefix(id, workspace.PlanIDPrefix) {
		return fmt.Errorf("not a plan ID: %s", id)
	}

	// One-shot invocations have no live plan registry, so remove the
	// workspace directly from disk, kept strictly under the base dir.
	dir := filepath.Join(a.plans.BaseDir(), id)
	if filepath.Dir(dir) != a.plans.BaseDir() {
		return fmt.Errorf("not a plan ID: %s", id)
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("plan %s not found", id)
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", id)
	return nil
}
