// Package tools – executor.go manages the tool registry and dispatches
// tool calls from the planner to the registered tools, with per-tool
// timeouts, before/after hooks, and audit logging.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jholhewres/planclaw/pkg/planclaw/audit"
)

const (
	// DefaultToolTimeout is the maximum time a single tool execution
	// can take.
	DefaultToolTimeout = 30 * time.Second

	// DefaultShellTimeout is the longer timeout for shell execution.
	DefaultShellTimeout = 5 * time.Minute

	// HardMaxToolResultChars is the absolute maximum size for a tool
	// result. Results exceeding this are truncated before they reach
	// the planner's context.
	HardMaxToolResultChars = 400_000
)

// ctxKeyPlanID is the context key carrying the active plan ID,
// goroutine-safe per request.
type ctxKeyPlanID struct{}

// ContextWithPlan returns a context carrying the plan ID.
func ContextWithPlan(ctx context.Context, planID string) context.Context {
	return context.WithValue(ctx, ctxKeyPlanID{}, planID)
}

// PlanFromContext extracts the plan ID from the context. Empty when
// not set.
func PlanFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyPlanID{}).(string); ok {
		return v
	}
	return ""
}

// sequentialTools are tools that must not run in parallel within a
// batch (they mutate shared plan state).
var sequentialTools = map[string]bool{
	"bash": true, "write_file": true, "replace_in_file": true, "delete_file": true,
}

// Hook is a callback pair that runs around tool execution. Before
// hooks can modify args or block execution; after hooks observe the
// result.
type Hook struct {
	// Name identifies this hook for logging.
	Name string

	// Before is called before the tool executes. Return modified args
	// (or nil to keep the original), blocked, and the block reason.
	Before func(toolName string, args map[string]any) (modifiedArgs map[string]any, blocked bool, blockReason string)

	// After is called after the tool executes, success or error.
	After func(toolName string, args map[string]any, result string, err error)
}

// ExecutorConfig tunes the dispatcher.
type ExecutorConfig struct {
	// Parallel enables concurrent execution of independent tools in a
	// batch.
	Parallel bool `yaml:"parallel"`

	// MaxParallel caps concurrency when Parallel is on. Defaults to 5.
	MaxParallel int `yaml:"max_parallel"`

	// DefaultTimeoutSeconds overrides the per-tool timeout.
	DefaultTimeoutSeconds int `yaml:"default_timeout_seconds"`

	// ShellTimeoutSeconds overrides the shell tool timeout.
	ShellTimeoutSeconds int `yaml:"shell_timeout_seconds"`
}

// Executor manages tool registration and dispatches tool calls.
type Executor struct {
	tools        map[string]Tool
	timeout      time.Duration
	shellTimeout time.Duration
	logger       *slog.Logger
	audit        *audit.Logger

	// defsCache caches the definitions slice so it isn't rebuilt on
	// every Tools() call. Invalidated on registration.
	defsCache []ToolDefinition
	defsDirty bool

	parallel    bool
	maxParallel int

	hooks []*Hook
	mu    sync.RWMutex
}

// NewExecutor creates an empty executor. auditLog may be nil.
func NewExecutor(logger *slog.Logger, auditLog *audit.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		tools:        make(map[string]Tool),
		timeout:      DefaultToolTimeout,
		shellTimeout: DefaultShellTimeout,
		logger:       logger.With("component", "tool_executor"),
		audit:        auditLog,
		parallel:     true,
		maxParallel:  5,
	}
}

// Configure applies ExecutorConfig.
func (e *Executor) Configure(cfg ExecutorConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parallel = cfg.Parallel
	e.maxParallel = cfg.MaxParallel
	if e.maxParallel <= 0 {
		e.maxParallel = 5
	}
	if cfg.DefaultTimeoutSeconds > 0 {
		e.timeout = time.Duration(cfg.DefaultTimeoutSeconds) * time.Second
	}
	if cfg.ShellTimeoutSeconds > 0 {
		e.shellTimeout = time.Duration(cfg.ShellTimeoutSeconds) * time.Second
	}
}

// Register adds a tool. A tool with the same name is overwritten.
func (e *Executor) Register(t Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[t.Name()] = t
	e.defsDirty = true
	e.logger.Debug("tool registered", "name", t.Name())
}

// RegisterHook adds a before/after execution hook. Hooks run in
// registration order.
func (e *Executor) RegisterHook(hook *Hook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, hook)
	e.logger.Info("tool hook registered", "hook", hook.Name)
}

// Tools returns all registered tool definitions for the planner.
func (e *Executor) Tools() []ToolDefinition {
	e.mu.RLock()
	if !e.defsDirty && e.defsCache != nil {
		defs := e.defsCache
		e.mu.RUnlock()
		return defs
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.defsDirty && e.defsCache != nil {
		return e.defsCache
	}
	defs := make([]ToolDefinition, 0, len(e.tools))
	for _, t := range e.tools {
		defs = append(defs, MakeToolDefinition(t.Name(), t.Description(), t.ParameterSchema()))
	}
	e.defsCache = defs
	e.defsDirty = false
	return defs
}

// ToolNames returns the names of all registered tools.
func (e *Executor) ToolNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.tools))
	for name := range e.tools {
		names = append(names, name)
	}
	return names
}

// HasTool checks if a tool is registered by name.
func (e *Executor) HasTool(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.tools[name]
	return ok
}

// CleanupPlan tells every tool to release state held for the plan.
func (e *Executor) CleanupPlan(planID string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, t := range e.tools {
		t.Cleanup(planID)
	}
}

// PlanState collects the per-plan state of all tools that have any.
func (e *Executor) PlanState(planID string) map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	state := make(map[string]string)
	for name, t := range e.tools {
		if s := t.CurrentState(planID); s != "" {
			state[name] = s
		}
	}
	return state
}

// Execute dispatches a batch of tool calls. Results come back in call
// order. When parallel execution is on and no sequential tool is in
// the batch, calls run concurrently.
func (e *Executor) Execute(ctx context.Context, calls []ToolCall) []ToolResult {
	e.mu.RLock()
	parallel := e.parallel
	maxParallel := e.maxParallel
	e.mu.RUnlock()

	if !parallel || len(calls) <= 1 || e.hasSequentialTool(calls) {
		results := make([]ToolResult, len(calls))
		for i, call := range calls {
			results[i] = e.executeSingle(ctx, call)
		}
		return results
	}

	results := make([]ToolResult, len(calls))
	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = e.executeSingle(ctx, tc)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (e *Executor) hasSequentialTool(calls []ToolCall) bool {
	for _, c := range calls {
		if sequentialTools[c.Function.Name] {
			return true
		}
	}
	return false
}

// executeSingle runs one tool call.
func (e *Executor) executeSingle(ctx context.Context, call ToolCall) ToolResult {
	name := call.Function.Name
	result := ToolResult{ToolCallID: call.ID, Name: name}
	planID := PlanFromContext(ctx)

	e.mu.RLock()
	tool, ok := e.tools[name]
	hooks := e.hooks
	timeout := e.timeout
	if name == "bash" {
		timeout = e.shellTimeout
	}
	e.mu.RUnlock()

	if !ok {
		err := fmt.Errorf("unknown tool %q", name)
		result.Content = formatToolError(name, err)
		result.Error = err
		e.logger.Warn("unknown tool called", "name", name)
		return result
	}

	args, err := parseToolArgs(call.Function.Arguments)
	if err != nil {
		result.Content = formatToolError(name, fmt.Errorf("error parsing arguments: %w", err))
		result.Error = err
		e.logger.Warn("tool argument parse error", "name", name, "error", err)
		return result
	}

	for _, hook := range hooks {
		if hook.Before == nil {
			continue
		}
		modArgs, blocked, reason := hook.Before(name, args)
		if blocked {
			err := fmt.Errorf("blocked by hook %q: %s", hook.Name, reason)
			result.Content = formatToolError(name, err)
			result.Error = err
			e.logger.Info("tool blocked by before-hook",
				"tool", name, "hook", hook.Name, "reason", reason)
			e.auditLog(name, planID, false, args, reason)
			return result
		}
		if modArgs != nil {
			args = modArgs
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.logger.Debug("executing tool", "name", name, "plan", planID)

	start := time.Now()
	output, err := tool.Execute(execCtx, args)
	duration := time.Since(start)

	resultStr := ""
	if err != nil {
		resultStr = "Error: " + err.Error()
	} else {
		resultStr = formatToolOutput(output)
	}
	for _, hook := range hooks {
		if hook.After != nil {
			hook.After(name, args, resultStr, err)
		}
	}

	if err != nil {
		result.Content = formatToolError(name, err)
		result.Error = err
		e.logger.Warn("tool execution failed",
			"name", name,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		e.auditLog(name, planID, false, args, err.Error())
		return result
	}

	result.Content = resultStr
	if len(result.Content) > HardMaxToolResultChars {
		original := len(result.Content)
		result.Content = result.Content[:HardMaxToolResultChars] +
			fmt.Sprintf("\n\n... [truncated: result was %d chars, capped at %d]",
				original, HardMaxToolResultChars)
		e.logger.Warn("tool result truncated by size guard",
			"name", name, "original_chars", original)
	}

	e.logger.Info("tool executed",
		"name", name,
		"plan", planID,
		"duration_ms", duration.Milliseconds(),
		"output_len", len(result.Content),
	)
	e.auditLog(name, planID, true, args, result.Content)
	return result
}

func (e *Executor) auditLog(name, planID string, allowed bool, args map[string]any, result string) {
	if e.audit == nil {
		return
	}
	e.audit.Log(name, planID, allowed, summarizeArgs(args), result)
}

func summarizeArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	if path, ok := args["path"].(string); ok {
		return path
	}
	if cmd, ok := args["command"].(string); ok {
		return cmd
	}
	if pattern, ok := args["pattern"].(string); ok {
		return pattern
	}
	return fmt.Sprintf("%d args", len(args))
}
