// Package jail implements the sandboxed path-resolution engine used by
// every file-touching tool in PlanClaw.
//
// Each execution plan owns a jail root: a canonical absolute directory
// that bounds everything the plan's tools may read or write. The engine
// guarantees that every path it hands back satisfies
//
//	canonical(path) == canonical(jailRoot) || descendant-of(canonical(jailRoot))
//
// Resolution is fail-closed: anything that cannot be canonicalized is
// denied rather than allowed. Symbolic links are classified before they
// are followed (see symlink.go) and recursive searches are bounded and
// ignore-aware (see walker.go).
package jail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPlanPrefix is the plan-identifier prefix stripped by Normalize
// when a caller passes a path like "plan-1234/notes.txt".
const DefaultPlanPrefix = "plan-"

// Root is the immutable confinement boundary for one execution plan.
// Created once at plan start; the directory itself is owned by the
// workspace manager, never by this package.
type Root struct {
	dir        string // canonical absolute jail directory
	planPrefix string
}

// NewRoot canonicalizes dir and returns it as a jail root. The
// directory must exist.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving jail root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing jail root %s: %w", abs, err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("checking jail root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("jail root is not a directory: %s", real)
	}
	return &Root{dir: real, planPrefix: DefaultPlanPrefix}, nil
}

// NewRootWithPrefix is NewRoot with a custom plan-identifier prefix for
// Normalize.
func NewRootWithPrefix(dir, planPrefix string) (*Root, error) {
	r, err := NewRoot(dir)
	if err != nil {
		return nil, err
	}
	if planPrefix != "" {
		r.planPrefix = planPrefix
	}
	return r, nil
}

// Dir returns the canonical absolute jail directory.
func (r *Root) Dir() string { return r.dir }

// Candidate is a user-supplied path together with its derived forms.
type Candidate struct {
	// Raw is the path exactly as the caller supplied it.
	Raw string

	// Rel is the normalized relative form (no leading separator).
	Rel string

	// Lexical is the absolute form after joining with the jail root and
	// collapsing "." and ".." segments, without touching the filesystem.
	Lexical string

	// Real is the canonical (symlink-resolved) form. When the target
	// does not exist yet, only the deepest existing ancestor is
	// resolved and the remaining literal segments are appended.
	Real string

	// Unverified is true when Real could not be fully verified because
	// the target does not exist (e.g. a file about to be created).
	Unverified bool
}

// Normalize converts a user-supplied path into a clean relative form:
// leading separators are stripped, leading "./" runs are stripped, and
// leading plan-identifier segments (tokens starting with the plan
// prefix, followed by "/") are dropped. Stripping repeats until the
// result is stable, so Normalize is idempotent.
func (r *Root) Normalize(raw string) string {
	p := filepath.ToSlash(raw)
	for {
		prev := p
		p = strings.TrimLeft(p, "/")
		for strings.HasPrefix(p, "./") {
			p = p[2:]
		}
		// Drop a leading plan-identifier segment: callers sometimes
		// echo the plan directory name back in relative paths.
		if idx := strings.Index(p, "/"); idx > 0 && strings.HasPrefix(p[:idx], r.planPrefix) {
			p = p[idx+1:]
		}
		if p == prev {
			return p
		}
	}
}

// Resolve normalizes raw, joins it with the jail root, and computes the
// candidate's lexical and canonical forms. Resolve itself never rejects
// a path; confinement is Confine's job.
func (r *Root) Resolve(raw string) (*Candidate, error) {
	rel := r.Normalize(raw)
	lexical := filepath.Clean(filepath.Join(r.dir, filepath.FromSlash(rel)))

	real, verified, err := canonicalize(lexical)
	if err != nil {
		return nil, &PathError{Path: raw, Reason: "cannot canonicalize: " + err.Error()}
	}

	return &Candidate{
		Raw:        raw,
		Rel:        rel,
		Lexical:    lexical,
		Real:       real,
		Unverified: !verified,
	}, nil
}

// Confine verifies that the candidate's canonical form is the jail root
// or a descendant of it. Returns a *PathError on violation.
func (r *Root) Confine(c *Candidate) error {
	if isWithin(r.dir, c.Real) {
		return nil
	}
	return &PathError{Path: c.Raw, Reason: "outside workspace " + r.dir}
}

// Secure is the common resolve-and-confine path used by tools. It
// returns the canonical absolute path for raw, or a *PathError.
func (r *Root) Secure(raw string) (string, error) {
	c, err := r.Resolve(raw)
	if err != nil {
		return "", err
	}
	if err := r.Confine(c); err != nil {
		return "", err
	}
	return c.Real, nil
}

// Rel converts a canonical absolute path back to a jail-relative path
// with "/" separators. Paths outside the jail return an error.
func (r *Root) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(r.dir, abs)
	if err != nil || !isWithin(r.dir, abs) {
		return "", &PathError{Path: abs, Reason: "outside workspace"}
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// canonicalize resolves path through symlinks. When the full path does
// not exist, the deepest existing ancestor is resolved and the
// remaining literal segments are appended; verified is false in that
// case. A path with no resolvable ancestor at all is an error.
func canonicalize(path string) (real string, verified bool, err error) {
	if real, err = filepath.EvalSymlinks(path); err == nil {
		return real, true, nil
	}

	var suffix []string
	dir := filepath.Clean(path)
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root without resolving anything.
			return "", false, fmt.Errorf("no resolvable ancestor for %s", path)
		}
		suffix = append([]string{filepath.Base(dir)}, suffix...)
		dir = parent

		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			parts := append([]string{resolved}, suffix...)
			return filepath.Join(parts...), false, nil
		}
	}
}

// isWithin reports whether path equals root or is a descendant of it.
// Both arguments must already be canonical.
func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// isAncestor reports whether a is a strict ancestor of b. Both
// arguments must already be canonical.
func isAncestor(a, b string) bool {
	return a != b && isWithin(a, b)
}
