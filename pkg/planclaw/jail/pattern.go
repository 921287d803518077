// Package jail – pattern.go compiles the glob patterns used by the
// searcher and the ignore rules. Matching always happens on
// slash-separated relative paths.
package jail

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher is a compiled search pattern. A pattern without a slash
// matches at any depth; "**" crosses directory boundaries.
type Matcher struct {
	raw string

	// bare matches the pattern as written. deep matches it with a
	// "**/" prefix so "*.md" also hits files below the top level: the
	// glob library requires at least one leading segment for "**/", so
	// both forms are needed.
	bare glob.Glob
	deep glob.Glob

	// substr is set for patterns of the form "*literal*" (no slash).
	// Those additionally match any path with a segment containing the
	// literal, directories included, which covers the common "find
	// anything named like X" case without loosening anchored patterns
	// such as "*.md".
	substr string
}

// CompilePattern compiles a search pattern. The empty pattern is an
// error.
func CompilePattern(pattern string) (*Matcher, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}

	m := &Matcher{raw: pattern}

	bare, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	m.bare = bare

	if !strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**") {
		deep, err := glob.Compile("**/"+pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		m.deep = deep
	}

	if inner, ok := substrLiteral(pattern); ok {
		m.substr = inner
	}
	return m, nil
}

// MustCompilePattern is CompilePattern for static patterns.
func MustCompilePattern(pattern string) *Matcher {
	m, err := CompilePattern(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the original pattern text.
func (m *Matcher) String() string { return m.raw }

// Match reports whether rel (a slash-separated jail-relative path)
// matches the pattern.
func (m *Matcher) Match(rel string) bool {
	rel = strings.TrimPrefix(rel, "/")
	if m.bare.Match(rel) {
		return true
	}
	if m.deep != nil && m.deep.Match(rel) {
		return true
	}
	if m.substr != "" {
		for _, seg := range strings.Split(rel, "/") {
			if strings.Contains(seg, m.substr) {
				return true
			}
		}
	}
	return false
}

// substrLiteral reports whether pattern has the shape "*literal*" with
// a plain literal between the stars.
func substrLiteral(pattern string) (string, bool) {
	if len(pattern) < 3 || !strings.HasPrefix(pattern, "*") || !strings.HasSuffix(pattern, "*") {
		return "", false
	}
	inner := pattern[1 : len(pattern)-1]
	if inner == "" || strings.ContainsAny(inner, "*?[]{}/") {
		return "", false
	}
	return inner, true
}
