package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newAuditCmd creates the `planclaw audit` command.
func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent tool executions and confinement denials",
		RunE:  runAudit,
	}

	cmd.Flags().Int("limit", 20, "number of entries to show")
	cmd.Flags().Bool("count", false, "print only the total entry count")
	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if a.audit == nil {
		return fmt.Errorf("audit log is disabled (audit.enabled: false)")
	}

	countOnly, _ := cmd.Flags().GetBool("count")
	if countOnly {
		fmt.Println(a.audit.Count())
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	entries := a.audit.Recent(limit)
	if len(entries) == 0 {
		fmt.Println("No audit entries.")
		return nil
	}

	for _, e := range entries {
		status := "allowed"
		if !e.Allowed {
			status = "DENIED"
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n", e.CreatedAt, status, e.Tool, e.Plan, e.Args)
	}
	return nil
}
