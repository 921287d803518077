// Package tools implements PlanClaw's tool layer: the capability
// interface every tool satisfies, the OpenAI-compatible definitions
// exposed to the planner, and the executor that dispatches tool calls
// (see executor.go). Every file-touching tool routes its paths through
// the plan's jail.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// toolNameSanitizer replaces any character not in [a-zA-Z0-9_-] with "_".
var toolNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Tool is one capability exposed to the planner. Tools are stateless
// between plans except for what they key on the plan ID; CurrentState
// and Cleanup give the executor a uniform way to inspect and release
// that per-plan state.
type Tool interface {
	// Name is the tool identifier exposed to the planner.
	Name() string

	// Description explains the tool for the planner.
	Description() string

	// ParameterSchema returns the JSON Schema of the tool's arguments.
	ParameterSchema() map[string]any

	// Execute runs the tool. The plan ID travels in ctx.
	Execute(ctx context.Context, args map[string]any) (any, error)

	// CurrentState describes the tool's state for the given plan
	// (e.g. the shell tool's working directory). Empty when stateless.
	CurrentState(planID string) string

	// Cleanup releases any per-plan state the tool holds.
	Cleanup(planID string)
}

// StatelessTool provides no-op CurrentState/Cleanup for tools without
// per-plan state.
type StatelessTool struct{}

func (StatelessTool) CurrentState(string) string { return "" }
func (StatelessTool) Cleanup(string)             {}

// ---------- Tool Calling Types ----------

// ToolDefinition is an OpenAI-compatible tool definition for function
// calling.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes a callable function exposed to the planner.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents a tool invocation requested by the planner.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and serialized arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult holds the output of a single tool execution.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	Error      error
}

// MakeToolDefinition creates a ToolDefinition from name, description,
// and a JSON Schema parameter map. The name is sanitized to match the
// OpenAI pattern ^[a-zA-Z0-9_-]+$.
func MakeToolDefinition(name, description string, params map[string]any) ToolDefinition {
	schema := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": false,
	}
	if params != nil {
		schema = params
	}

	schemaJSON, _ := json.Marshal(schema)

	return ToolDefinition{
		Type: "function",
		Function: FunctionDef{
			Name:        sanitizeToolName(name),
			Description: description,
			Parameters:  schemaJSON,
		},
	}
}

// sanitizeToolName ensures a tool name matches ^[a-zA-Z0-9_-]+$ by
// replacing invalid characters with underscores.
func sanitizeToolName(name string) string {
	name = toolNameSanitizer.ReplaceAllString(name, "_")
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return strings.Trim(name, "_")
}

// formatToolError creates a structured JSON error result. This format
// is more parseable by the planner than plain "Error: ..." text.
func formatToolError(toolName string, err error) string {
	errMsg := err.Error()
	if len(errMsg) > 2000 {
		errMsg = errMsg[:2000] + "... (truncated)"
	}
	b, _ := json.Marshal(map[string]string{
		"status": "error",
		"tool":   toolName,
		"error":  errMsg,
	})
	return string(b)
}

// parseToolArgs parses JSON-encoded tool arguments into a map.
func parseToolArgs(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}
	return args, nil
}

// formatToolOutput converts tool output to a string for the planner.
func formatToolOutput(output any) string {
	if output == nil {
		return "OK"
	}
	switch v := output.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return v, nil
}

// optionalStringArg extracts an optional string argument.
func optionalStringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg extracts an optional integer argument with a default. JSON
// numbers arrive as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
