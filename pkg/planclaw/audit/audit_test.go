package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "planclaw.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestLogAndRecent(t *testing.T) {
	a := newTestLogger(t)

	a.Log("read_file", "plan-1", true, "notes.txt", "240 bytes")
	a.LogDenial("read_file", "plan-1", "../etc/passwd", "outside workspace")

	if got := a.Count(); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}

	entries := a.Recent(10)
	if len(entries) != 2 {
		t.Fatalf("Recent = %d entries", len(entries))
	}

	// Newest first.
	if entries[0].Allowed || entries[0].Args != "../etc/passwd" {
		t.Errorf("entries[0] = %+v, want the denial", entries[0])
	}
	if !entries[1].Allowed || entries[1].Tool != "read_file" {
		t.Errorf("entries[1] = %+v, want the allowed call", entries[1])
	}
	if _, err := time.Parse(time.RFC3339, entries[0].CreatedAt); err != nil {
		t.Errorf("bad timestamp %q: %v", entries[0].CreatedAt, err)
	}
}

func TestRecentLimit(t *testing.T) {
	a := newTestLogger(t)
	for i := 0; i < 5; i++ {
		a.Log("shell", "plan-1", true, "true", "")
	}
	if got := a.Recent(3); len(got) != 3 {
		t.Errorf("Recent(3) = %d entries", len(got))
	}
}

func TestSummaryTruncation(t *testing.T) {
	a := newTestLogger(t)

	long := make([]byte, 2*summaryLimit)
	for i := range long {
		long[i] = 'x'
	}
	a.Log("write_file", "plan-1", true, string(long), "")

	entries := a.Recent(1)
	if len(entries) != 1 {
		t.Fatal("entry missing")
	}
	if len(entries[0].Args) > summaryLimit+20 {
		t.Errorf("args not truncated: %d bytes", len(entries[0].Args))
	}
}
