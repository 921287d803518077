package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jholhewres/planclaw/pkg/planclaw/jail"
	"github.com/jholhewres/planclaw/pkg/planclaw/workspace"
)

// newToolEnv builds an executor with the file tools registered and one
// live plan, returning the executor, the plan context, and the plan.
func newToolEnv(t *testing.T) (*Executor, context.Context, *workspace.Plan) {
	t.Helper()
	mgr, err := workspace.NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := mgr.Create()
	if err != nil {
		t.Fatal(err)
	}

	e := NewExecutor(nil, nil)
	RegisterFileTools(e, mgr, FileToolsConfig{})

	return e, ContextWithPlan(context.Background(), plan.ID), plan
}

func runTool(t *testing.T, e *Executor, ctx context.Context, name, args string) ToolResult {
	t.Helper()
	results := e.Execute(ctx, []ToolCall{call(name, args)})
	return results[0]
}

func TestWriteAndReadFile(t *testing.T) {
	e, ctx, plan := newToolEnv(t)

	res := runTool(t, e, ctx, "write_file", `{"path":"notes/a.md","content":"hello"}`)
	if res.Error != nil {
		t.Fatalf("write_file: %v", res.Error)
	}
	if data, err := os.ReadFile(filepath.Join(plan.Dir(), "notes", "a.md")); err != nil || string(data) != "hello" {
		t.Fatalf("file content = %q, %v", data, err)
	}

	res = runTool(t, e, ctx, "read_file", `{"path":"notes/a.md"}`)
	if res.Error != nil || res.Content != "hello" {
		t.Errorf("read_file = %+v", res)
	}
}

func TestReadFileErrors(t *testing.T) {
	e, ctx, plan := newToolEnv(t)

	t.Run("missing file", func(t *testing.T) {
		res := runTool(t, e, ctx, "read_file", `{"path":"nope.txt"}`)
		if res.Error == nil || !strings.Contains(res.Content, "not found") {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("escape attempt denied", func(t *testing.T) {
		res := runTool(t, e, ctx, "read_file", `{"path":"../../../etc/passwd"}`)
		if res.Error == nil || !jail.IsAccessDenied(res.Error) {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(plan.Dir(), "blob.bin"), []byte{0, 1}, 0o644); err != nil {
			t.Fatal(err)
		}
		res := runTool(t, e, ctx, "read_file", `{"path":"blob.bin"}`)
		if res.Error == nil || !strings.Contains(res.Error.Error(), "unsupported") {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("no plan in context", func(t *testing.T) {
		res := runTool(t, e, context.Background(), "read_file", `{"path":"a.txt"}`)
		if res.Error == nil {
			t.Error("expected error without plan")
		}
	})
}

func TestReplaceInFile(t *testing.T) {
	e, ctx, _ := newToolEnv(t)
	runTool(t, e, ctx, "write_file", `{"path":"main.go","content":"package old\n// old name"}`)

	res := runTool(t, e, ctx, "replace_in_file", `{"path":"main.go","old":"old","new":"new"}`)
	if res.Error != nil || !strings.Contains(res.Content, "2 occurrence") {
		t.Fatalf("res = %+v", res)
	}

	read := runTool(t, e, ctx, "read_file", `{"path":"main.go"}`)
	if read.Content != "package new\n// new name" {
		t.Errorf("content = %q", read.Content)
	}

	res = runTool(t, e, ctx, "replace_in_file", `{"path":"main.go","old":"absent","new":"x"}`)
	if res.Error == nil {
		t.Error("replace of absent text succeeded")
	}
}

func TestDeleteFile(t *testing.T) {
	e, ctx, plan := newToolEnv(t)
	runTool(t, e, ctx, "write_file", `{"path":"tmp.txt","content":"x"}`)

	res := runTool(t, e, ctx, "delete_file", `{"path":"tmp.txt"}`)
	if res.Error != nil {
		t.Fatalf("delete_file: %v", res.Error)
	}
	if _, err := os.Stat(filepath.Join(plan.Dir(), "tmp.txt")); !os.IsNotExist(err) {
		t.Error("file still exists")
	}

	t.Run("workspace root protected", func(t *testing.T) {
		res := runTool(t, e, ctx, "delete_file", `{"path":"."}`)
		if res.Error == nil {
			t.Error("deleting workspace root succeeded")
		}
	})
}

func TestListFiles(t *testing.T) {
	e, ctx, _ := newToolEnv(t)
	runTool(t, e, ctx, "write_file", `{"path":"b.txt","content":"bb"}`)
	runTool(t, e, ctx, "write_file", `{"path":"sub/a.txt","content":"a"}`)

	res := runTool(t, e, ctx, "list_files", `{}`)
	if res.Error != nil {
		t.Fatalf("list_files: %v", res.Error)
	}
	lines := strings.Split(res.Content, "\n")
	if len(lines) != 2 || lines[0] != "b.txt\t2" || lines[1] != "sub/" {
		t.Errorf("listing = %q", res.Content)
	}

	res = runTool(t, e, ctx, "list_files", `{"path":"sub"}`)
	if res.Error != nil || !strings.Contains(res.Content, "a.txt\t1") {
		t.Errorf("sub listing = %+v", res)
	}
}
