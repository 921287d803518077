// Package sandbox – policy.go implements environment variable
// filtering for command execution.
package sandbox

import "strings"

// blockedEnvPrefixes are environment variable prefixes that are always
// stripped. Catches families of dangerous vars (e.g. LD_*, DYLD_*).
var blockedEnvPrefixes = []string{
	"LD_",
	"DYLD_",
}

// Policy enforces environment rules on execution requests.
type Policy struct {
	// blockedEnvSet is the set of environment variables to strip.
	blockedEnvSet map[string]bool

	// allowedEnvSet is the whitelist of allowed env vars. If empty,
	// all non-blocked vars are allowed.
	allowedEnvSet map[string]bool
}

// NewPolicy creates a Policy from the sandbox config.
func NewPolicy(cfg Config) *Policy {
	p := &Policy{
		blockedEnvSet: make(map[string]bool),
		allowedEnvSet: make(map[string]bool),
	}
	for _, env := range cfg.BlockedEnv {
		p.blockedEnvSet[env] = true
	}
	for _, env := range cfg.AllowedEnv {
		p.allowedEnvSet[env] = true
	}
	return p
}

// IsEnvAllowed checks if an environment variable is allowed.
func (p *Policy) IsEnvAllowed(name string) bool {
	if p.blockedEnvSet[name] || hasBlockedPrefix(name) {
		return false
	}
	if len(p.allowedEnvSet) > 0 {
		return p.allowedEnvSet[name]
	}
	return true
}

// FilterEnv filters "KEY=VALUE" pairs based on the policy and returns
// a new slice with only allowed variables.
func (p *Policy) FilterEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, kv := range env {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !p.IsEnvAllowed(name) {
			continue
		}
		filtered = append(filtered, kv)
	}
	return filtered
}

// hasBlockedPrefix checks if an env var name matches any blocked prefix.
func hasBlockedPrefix(name string) bool {
	for _, prefix := range blockedEnvPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
