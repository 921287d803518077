// Package jail – command.go scans free-form shell command text for path
// tokens and confines each one independently.
//
// This is a best-effort heuristic, not a shell parser: quoting, variable
// expansion, and command substitution are not interpreted. It exists as
// a last line of defense in front of the shell tool, which additionally
// runs commands with a filtered environment in their own process group.
package jail

import (
	"strings"
)

// exemptToken reports tokens that look like paths but are shell
// conveniences: "-" (previous directory), "~" and "~user" (home
// expansion happens outside the jail by design and is rejected later if
// it resolves outside).
func exemptToken(tok string) bool {
	return tok == "-" || strings.HasPrefix(tok, "~")
}

// CheckCommand extracts path-looking tokens from command text and
// verifies each against the jail root:
//
//   - tokens that start with a separator (absolute paths)
//   - arguments of "cd"
//   - any token containing ".."
//
// A single violation rejects the whole command.
func (r *Root) CheckCommand(command string) error {
	return r.CheckCommandFrom("", command)
}

// CheckCommandFrom is CheckCommand with relative tokens resolved
// against fromRel (a jail-relative working directory) instead of the
// jail root, so "cd .." from a subdirectory passes while the same
// command at the root is rejected.
func (r *Root) CheckCommandFrom(fromRel, command string) error {
	for _, tok := range commandPathTokens(command) {
		if err := r.checkToken(fromRel, tok); err != nil {
			return err
		}
	}
	return nil
}

func (r *Root) checkToken(fromRel, tok string) error {
	if exemptToken(tok) {
		return nil
	}

	var c *Candidate
	var err error
	if strings.HasPrefix(tok, "/") {
		// Absolute token: confine as-is, not relative to the root.
		real, verified, cerr := canonicalize(tok)
		if cerr != nil {
			return &PathError{Path: tok, Reason: "cannot canonicalize: " + cerr.Error()}
		}
		c = &Candidate{Raw: tok, Lexical: tok, Real: real, Unverified: !verified}
	} else {
		rel := tok
		if fromRel != "" {
			rel = fromRel + "/" + tok
		}
		c, err = r.Resolve(rel)
		if err != nil {
			return err
		}
		c.Raw = tok
	}
	return r.Confine(c)
}

// commandPathTokens splits command text into fields and returns the
// tokens that need confinement. Separators (;, &&, ||, |) reset the
// "previous word was cd" state so "cd /tmp && cat x" checks both.
func commandPathTokens(command string) []string {
	var tokens []string
	prevWasCd := false

	for _, field := range strings.Fields(command) {
		// Treat shell separators glued to a field as boundaries.
		for _, sep := range []string{";", "&&", "||", "|"} {
			field = strings.Trim(field, sep)
		}
		field = strings.Trim(field, `"'`)
		if field == "" {
			prevWasCd = false
			continue
		}

		switch {
		case prevWasCd:
			tokens = append(tokens, field)
		case strings.HasPrefix(field, "/"):
			tokens = append(tokens, field)
		case strings.Contains(field, ".."):
			tokens = append(tokens, field)
		}

		prevWasCd = field == "cd"
	}
	return tokens
}
