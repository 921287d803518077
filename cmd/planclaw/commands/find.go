package commands

import (
	"errors"
	"fmt"

	"github.com/jholhewres/planclaw/pkg/planclaw/jail"
	"github.com/spf13/cobra"
)

// newFindCmd creates the `planclaw find` command.
func newFindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <pattern>",
		Short: "Search a directory tree for files matching a glob",
		Long: `Search recursively under a directory for files matching a glob
pattern, honoring ignore rules. Results are newest first.

Examples:
  planclaw find '*.go'
  planclaw find 'docs/**/*.md' --dir ./project
  planclaw find '*.log' --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: runFind,
	}

	cmd.Flags().String("dir", ".", "directory to search under")
	cmd.Flags().String("path", "", "subdirectory to start from")
	cmd.Flags().Int("limit", 100, "maximum number of results (0 = unlimited)")
	return cmd
}

func runFind(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	dir, _ := cmd.Flags().GetString("dir")
	startRel, _ := cmd.Flags().GetString("path")
	limit, _ := cmd.Flags().GetInt("limit")

	root, err := jail.NewRoot(dir)
	if err != nil {
		return err
	}
	walker := jail.NewWalker(root, a.ignore, a.logger)

	matches, err := walker.Search(startRel, args[0], limit)
	aborted := errors.Is(err, jail.ErrTraversalAborted)
	if err != nil && !aborted {
		return err
	}

	if len(matches) == 0 {
		fmt.Println("No files match.")
		return nil
	}
	for _, m := range matches {
		fmt.Printf("%s\t%d\t%s\n", m.Rel, m.Size, m.ModTime.Format("2006-01-02 15:04"))
	}
	if aborted {
		if limit > 0 && len(matches) >= limit {
			fmt.Printf("... (stopped at %d results)\n", len(matches))
		} else {
			fmt.Println("... (traversal bounds reached, results may be partial)")
		}
	}
	return nil
}
