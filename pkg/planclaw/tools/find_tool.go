// Package tools – find_tool.go implements the walker-backed recursive
// file search.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jholhewres/planclaw/pkg/planclaw/jail"
	"github.com/jholhewres/planclaw/pkg/planclaw/workspace"
)

// DefaultFindLimit caps find_files results when the caller does not
// pass a limit.
const DefaultFindLimit = 100

type findFilesTool struct {
	StatelessTool
	plans  *workspace.Manager
	ignore *jail.IgnoreCache
	logger *slog.Logger
}

// RegisterFindTool registers find_files on the executor. The ignore
// cache is shared across plans; it keys rule sets per jail root.
func RegisterFindTool(e *Executor, plans *workspace.Manager, ignore *jail.IgnoreCache, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.Register(&findFilesTool{plans: plans, ignore: ignore, logger: logger})
}

func (t *findFilesTool) Name() string { return "find_files" }

func (t *findFilesTool) Description() string {
	return "Recursively search the plan workspace for files matching a glob pattern. " +
		"Honors ignore rules, skips unsafe symlinks, and returns matches newest first."
}

func (t *findFilesTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern, e.g. *.md or src/**/*.go",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Workspace-relative directory to search from, defaults to the workspace root",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results, default 100",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *findFilesTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	pattern, err := stringArg(args, "pattern")
	if err != nil {
		return nil, err
	}
	startRel := optionalStringArg(args, "path")
	limit := intArg(args, "limit", DefaultFindLimit)

	planID := PlanFromContext(ctx)
	if planID == "" {
		return nil, fmt.Errorf("no plan in context")
	}
	plan, err := t.plans.Get(planID)
	if err != nil {
		return nil, err
	}
	t.plans.Touch(planID)

	walker := jail.NewWalker(plan.Root, t.ignore, t.logger)
	matches, err := walker.Search(startRel, pattern, limit)
	capped := errors.Is(err, jail.ErrTraversalAborted)
	if err != nil && !capped {
		return nil, err
	}

	if len(matches) == 0 {
		return "No files match " + pattern, nil
	}

	var sb strings.Builder
	for _, m := range matches {
		when := "?"
		if !m.ModTime.IsZero() {
			when = m.ModTime.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&sb, "%s\t%d\t%s\n", m.Rel, m.Size, when)
	}
	if capped {
		if limit > 0 && len(matches) >= limit {
			fmt.Fprintf(&sb, "... (stopped at %d results)\n", len(matches))
		} else {
			sb.WriteString("... (traversal bounds reached, results may be partial)\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
