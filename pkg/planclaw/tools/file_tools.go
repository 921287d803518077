// Package tools – file_tools.go implements the built-in file tools.
// Every path argument goes through the plan jail's
// Normalize/Resolve/Confine before any filesystem access.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jholhewres/planclaw/pkg/planclaw/jail"
	"github.com/jholhewres/planclaw/pkg/planclaw/workspace"
)

// FileToolsConfig tunes the file tools.
type FileToolsConfig struct {
	// TextExtensions is the allow-list of file extensions read_file
	// and replace_in_file accept. Extensionless files are accepted.
	TextExtensions []string `yaml:"text_extensions"`

	// MaxReadBytes caps how much of a file read_file returns.
	// Defaults to 256KB.
	MaxReadBytes int64 `yaml:"max_read_bytes"`
}

// DefaultFileToolsConfig returns the default file tool settings.
func DefaultFileToolsConfig() FileToolsConfig {
	return FileToolsConfig{
		TextExtensions: []string{
			".txt", ".md", ".markdown", ".rst",
			".go", ".py", ".js", ".ts", ".sh", ".rb", ".rs", ".java", ".c", ".h", ".cpp",
			".json", ".yaml", ".yml", ".toml", ".ini", ".cfg", ".env",
			".html", ".css", ".xml", ".csv", ".sql", ".log", ".gitignore",
		},
		MaxReadBytes: 256 * 1024,
	}
}

// fileTools bundles the shared dependencies of the file tool set.
type fileTools struct {
	plans *workspace.Manager
	cfg   FileToolsConfig
	exts  map[string]bool
}

// RegisterFileTools registers read_file, write_file, replace_in_file,
// delete_file, and list_files on the executor.
func RegisterFileTools(e *Executor, plans *workspace.Manager, cfg FileToolsConfig) {
	if len(cfg.TextExtensions) == 0 {
		cfg.TextExtensions = DefaultFileToolsConfig().TextExtensions
	}
	if cfg.MaxReadBytes <= 0 {
		cfg.MaxReadBytes = DefaultFileToolsConfig().MaxReadBytes
	}
	ft := &fileTools{plans: plans, cfg: cfg, exts: make(map[string]bool)}
	for _, ext := range cfg.TextExtensions {
		ft.exts[strings.ToLower(ext)] = true
	}

	e.Register(&readFileTool{ft: ft})
	e.Register(&writeFileTool{ft: ft})
	e.Register(&replaceInFileTool{ft: ft})
	e.Register(&deleteFileTool{ft: ft})
	e.Register(&listFilesTool{ft: ft})
}

// plan resolves the active plan from the context and marks it used.
func (ft *fileTools) plan(ctx context.Context) (*workspace.Plan, error) {
	planID := PlanFromContext(ctx)
	if planID == "" {
		return nil, fmt.Errorf("no plan in context")
	}
	plan, err := ft.plans.Get(planID)
	if err != nil {
		return nil, err
	}
	ft.plans.Touch(planID)
	return plan, nil
}

// checkTextType enforces the extension allow-list.
func (ft *fileTools) checkTextType(rel string) error {
	ext := strings.ToLower(filepath.Ext(rel))
	if ext == "" || ft.exts[ext] {
		return nil
	}
	return &jail.UnsupportedTypeError{Path: rel, Ext: ext}
}

// ---------- read_file ----------

type readFileTool struct {
	StatelessTool
	ft *fileTools
}

func (t *readFileTool) Name() string { return "read_file" }

func (t *readFileTool) Description() string {
	return "Read a text file from the plan workspace. Paths are relative to the workspace root."
}

func (t *readFileTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Workspace-relative file path",
			},
		},
		"required": []string{"path"},
	}
}

func (t *readFileTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	plan, err := t.ft.plan(ctx)
	if err != nil {
		return nil, err
	}
	abs, err := plan.Root.Secure(rel)
	if err != nil {
		return nil, err
	}
	if err := t.ft.checkTextType(rel); err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", jail.ErrNotFound, rel)
		}
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, use list_files", rel)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	if int64(len(data)) > t.ft.cfg.MaxReadBytes {
		return string(data[:t.ft.cfg.MaxReadBytes]) +
			fmt.Sprintf("\n... [truncated: file is %d bytes]", len(data)), nil
	}
	return string(data), nil
}

// ---------- write_file ----------

type writeFileTool struct {
	StatelessTool
	ft *fileTools
}

func (t *writeFileTool) Name() string { return "write_file" }

func (t *writeFileTool) Description() string {
	return "Write content to a file in the plan workspace, creating parent directories as needed. Overwrites existing content."
}

func (t *writeFileTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Workspace-relative file path",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full file content",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *writeFileTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, fmt.Errorf("missing required argument %q", "content")
	}
	plan, err := t.ft.plan(ctx)
	if err != nil {
		return nil, err
	}
	abs, err := plan.Root.Secure(rel)
	if err != nil {
		return nil, err
	}
	if err := t.ft.checkTextType(rel); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("creating parent directories for %s: %w", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", rel, err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), rel), nil
}

// ---------- replace_in_file ----------

type replaceInFileTool struct {
	StatelessTool
	ft *fileTools
}

func (t *replaceInFileTool) Name() string { return "replace_in_file" }

func (t *replaceInFileTool) Description() string {
	return "Replace every occurrence of a string in a workspace file. The search string must be present."
}

func (t *replaceInFileTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Workspace-relative file path",
			},
			"old": map[string]any{
				"type":        "string",
				"description": "Exact text to replace",
			},
			"new": map[string]any{
				"type":        "string",
				"description": "Replacement text",
			},
		},
		"required": []string{"path", "old", "new"},
	}
}

func (t *replaceInFileTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	oldText, err := stringArg(args, "old")
	if err != nil {
		return nil, err
	}
	newText, ok := args["new"].(string)
	if !ok {
		return nil, fmt.Errorf("missing required argument %q", "new")
	}

	plan, err := t.ft.plan(ctx)
	if err != nil {
		return nil, err
	}
	abs, err := plan.Root.Secure(rel)
	if err != nil {
		return nil, err
	}
	if err := t.ft.checkTextType(rel); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", jail.ErrNotFound, rel)
		}
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}

	content := string(data)
	count := strings.Count(content, oldText)
	if count == 0 {
		return nil, fmt.Errorf("text not found in %s", rel)
	}
	content = strings.ReplaceAll(content, oldText, newText)
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", rel, err)
	}
	return fmt.Sprintf("Replaced %d occurrence(s) in %s", count, rel), nil
}

// ---------- delete_file ----------

type deleteFileTool struct {
	StatelessTool
	ft *fileTools
}

func (t *deleteFileTool) Name() string { return "delete_file" }

func (t *deleteFileTool) Description() string {
	return "Delete a file or empty directory from the plan workspace."
}

func (t *deleteFileTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Workspace-relative path",
			},
		},
		"required": []string{"path"},
	}
}

func (t *deleteFileTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	plan, err := t.ft.plan(ctx)
	if err != nil {
		return nil, err
	}
	abs, err := plan.Root.Secure(rel)
	if err != nil {
		return nil, err
	}
	if abs == plan.Root.Dir() {
		return nil, &jail.PathError{Path: rel, Reason: "cannot delete the workspace root"}
	}

	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", jail.ErrNotFound, rel)
		}
		return nil, fmt.Errorf("deleting %s: %w", rel, err)
	}
	return "Deleted " + rel, nil
}

// ---------- list_files ----------

type listFilesTool struct {
	StatelessTool
	ft *fileTools
}

func (t *listFilesTool) Name() string { return "list_files" }

func (t *listFilesTool) Description() string {
	return "List the entries of a workspace directory. Directories are marked with a trailing slash."
}

func (t *listFilesTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Workspace-relative directory, defaults to the workspace root",
			},
		},
	}
}

func (t *listFilesTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	rel := optionalStringArg(args, "path")
	plan, err := t.ft.plan(ctx)
	if err != nil {
		return nil, err
	}
	abs, err := plan.Root.Secure(rel)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", jail.ErrNotFound, rel)
		}
		return nil, fmt.Errorf("listing %s: %w", rel, err)
	}
	if len(entries) == 0 {
		return "(empty)", nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&sb, "%s/\n", entry.Name())
			continue
		}
		size := int64(0)
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(&sb, "%s\t%d\n", entry.Name(), size)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
