// Package tools – shell_tool.go implements the bash tool. Command text
// is vetted against the plan jail before anything executes, and the
// command then runs in the shell sandbox. The working directory
// persists per plan between calls, like an interactive shell session.
package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jholhewres/planclaw/pkg/planclaw/sandbox"
	"github.com/jholhewres/planclaw/pkg/planclaw/workspace"
)

type bashTool struct {
	plans  *workspace.Manager
	runner *sandbox.Runner

	// cwd tracks the persistent working directory per plan,
	// workspace-relative.
	cwd map[string]string
	mu  sync.Mutex
}

// RegisterBashTool registers the bash tool on the executor.
func RegisterBashTool(e *Executor, plans *workspace.Manager, runner *sandbox.Runner) {
	e.Register(&bashTool{
		plans:  plans,
		runner: runner,
		cwd:    make(map[string]string),
	})
}

func (t *bashTool) Name() string { return "bash" }

func (t *bashTool) Description() string {
	return "Execute a shell command inside the plan workspace. Paths outside the workspace are rejected. " +
		"cd persists between calls. Output is captured and size-limited."
}

func (t *bashTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "Shell command to execute",
			},
			"working_dir": map[string]any{
				"type":        "string",
				"description": "Workspace-relative working directory for this call only",
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "Override the default timeout",
			},
		},
		"required": []string{"command"},
	}
}

// CurrentState reports the persistent working directory for the plan.
func (t *bashTool) CurrentState(planID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cwd[planID]
}

// Cleanup forgets the persistent working directory for the plan.
func (t *bashTool) Cleanup(planID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cwd, planID)
}

func (t *bashTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	command, err := stringArg(args, "command")
	if err != nil {
		return nil, err
	}

	planID := PlanFromContext(ctx)
	if planID == "" {
		return nil, fmt.Errorf("no plan in context")
	}
	plan, err := t.plans.Get(planID)
	if err != nil {
		return nil, err
	}
	t.plans.Touch(planID)

	workRel := optionalStringArg(args, "working_dir")
	if workRel == "" {
		t.mu.Lock()
		workRel = t.cwd[planID]
		t.mu.Unlock()
	}
	workDir, err := plan.Root.Secure(workRel)
	if err != nil {
		return nil, err
	}

	// Vet the command text against the jail before anything runs,
	// resolving relative tokens from the working directory.
	if err := plan.Root.CheckCommandFrom(workRel, command); err != nil {
		return nil, err
	}

	req := &sandbox.ExecRequest{
		Command: command,
		Dir:     workDir,
	}
	if secs := intArg(args, "timeout_seconds", 0); secs > 0 {
		req.Timeout = time.Duration(secs) * time.Second
	}

	result, err := t.runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	// A successful lone cd moves the persistent working directory.
	if result.ExitCode == 0 {
		if target, ok := cdTarget(command); ok {
			t.updateCwd(plan, planID, workRel, target)
		}
	}

	return formatExecResult(result), nil
}

// cdTarget reports whether command is a bare "cd <dir>".
func cdTarget(command string) (string, bool) {
	fields := strings.Fields(strings.TrimSpace(command))
	if len(fields) != 2 || fields[0] != "cd" {
		return "", false
	}
	return fields[1], true
}

// updateCwd resolves the cd target against the current working
// directory and stores the new workspace-relative cwd. Targets the
// jail rejects are ignored; CheckCommand already vetted them.
func (t *bashTool) updateCwd(plan *workspace.Plan, planID, fromRel, target string) {
	joined := target
	if !strings.HasPrefix(target, "/") && fromRel != "" {
		joined = fromRel + "/" + target
	}
	abs, err := plan.Root.Secure(joined)
	if err != nil {
		return
	}
	rel, err := plan.Root.Rel(abs)
	if err != nil {
		return
	}
	t.mu.Lock()
	t.cwd[planID] = rel
	t.mu.Unlock()
}

// formatExecResult renders an ExecResult the way the planner expects:
// stdout first, stderr labeled, exit status only when interesting.
func formatExecResult(res *sandbox.ExecResult) string {
	var sb strings.Builder
	if res.Stdout != "" {
		sb.WriteString(res.Stdout)
	}
	if res.Stderr != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[stderr]\n")
		sb.WriteString(res.Stderr)
	}
	if res.Killed {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Process killed: %s", res.KillReason)
	} else if res.ExitCode != 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Exit code: %d", res.ExitCode)
	}
	if res.Truncated {
		sb.WriteString("\n... (output truncated)")
	}
	if sb.Len() == 0 {
		return "OK"
	}
	return sb.String()
}
