// Package audit provides a SQLite-backed audit log for tool executions
// and confinement denials. Records go to the audit_log table in
// planclaw.db; entries older than 30 days are pruned on startup.
package audit

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// summaryLimit truncates stored argument/result summaries.
const summaryLimit = 500

// Entry is one audit record.
type Entry struct {
	Tool      string
	Plan      string
	Allowed   bool
	Args      string
	Result    string
	CreatedAt string
}

// Logger writes audit records to SQLite.
type Logger struct {
	db     *sql.DB
	logger *slog.Logger
	owned  bool
}

// Open creates an audit logger backed by the SQLite database at path,
// creating the schema if needed.
func Open(path string, logger *slog.Logger) (*Logger, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}
	a, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.owned = true
	return a, nil
}

// New creates an audit logger on an existing database handle.
func New(db *sql.DB, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Logger{db: db, logger: logger.With("component", "audit")}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tool TEXT NOT NULL,
			plan TEXT NOT NULL,
			allowed INTEGER NOT NULL,
			args_summary TEXT NOT NULL DEFAULT '',
			result_summary TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_log_plan ON audit_log(plan);
	`)
	if err != nil {
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	go a.autoPrune()
	return a, nil
}

// Log records a tool execution.
func (a *Logger) Log(tool, plan string, allowed bool, args, result string) {
	allowedInt := 0
	if allowed {
		allowedInt = 1
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := a.db.Exec(`
		INSERT INTO audit_log (tool, plan, allowed, args_summary, result_summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tool, plan, allowedInt, truncate(args), truncate(result), now,
	)
	if err != nil {
		a.logger.Warn("failed to write audit log", "tool", tool, "err", err)
	}
}

// LogDenial records a confinement violation.
func (a *Logger) LogDenial(tool, plan, path, reason string) {
	a.Log(tool, plan, false, path, reason)
}

// Count returns the total number of audit entries.
func (a *Logger) Count() int {
	var count int
	_ = a.db.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&count)
	return count
}

// Recent returns the last n audit entries, newest first.
func (a *Logger) Recent(n int) []Entry {
	rows, err := a.db.Query(`
		SELECT tool, plan, allowed, args_summary, result_summary, created_at
		FROM audit_log
		ORDER BY id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			allowed int
		)
		if err := rows.Scan(&e.Tool, &e.Plan, &allowed, &e.Args, &e.Result, &e.CreatedAt); err != nil {
			continue
		}
		e.Allowed = allowed != 0
		entries = append(entries, e)
	}
	return entries
}

// Close closes the database when this logger opened it.
func (a *Logger) Close() error {
	if a.owned {
		return a.db.Close()
	}
	return nil
}

// autoPrune deletes audit entries older than 30 days.
func (a *Logger) autoPrune() {
	cutoff := time.Now().AddDate(0, 0, -30).UTC().Format(time.RFC3339)
	result, err := a.db.Exec("DELETE FROM audit_log WHERE created_at < ?", cutoff)
	if err != nil {
		a.logger.Warn("audit log prune failed", "err", err)
		return
	}
	if n, _ := result.RowsAffected(); n > 0 {
		a.logger.Info("audit log pruned", "removed", n)
	}
}

func truncate(s string) string {
	if len(s) > summaryLimit {
		return s[:summaryLimit] + "...[truncated]"
	}
	return s
}
