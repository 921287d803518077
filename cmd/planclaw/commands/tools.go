package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newToolsCmd creates the `planclaw tools` command.
func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the registered agent tools",
		RunE:  runTools,
	}

	cmd.Flags().Bool("json", false, "print full tool definitions as JSON")
	return cmd
}

func runTools(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	defs := a.executor.Tools()

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		data, err := json.MarshalIndent(defs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	for _, def := range defs {
		fmt.Printf("%-16s %s\n", def.Function.Name, def.Function.Description)
	}
	return nil
}
