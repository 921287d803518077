// Package config – loader.go reads YAML config files with .env loading
// and ${VAR} expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR}, ${VAR:-default}, ${VAR:?error} and
// bare $VAR references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::(-|\?)([^}]*))?\}|\$([A-Z_][A-Z0-9_]*)`)

// loadEnvFiles loads .env and .env.local from the current directory.
// Existing environment variables are never overwritten.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// expandEnvVars substitutes environment variable references in raw.
// Unset ${VAR:?msg} references are marked with an ERROR: prefix so the
// caller can report them all at once.
func expandEnvVars(raw string) string {
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)

		name := groups[1]
		if name == "" {
			name = groups[4]
		}
		op := groups[2]
		arg := groups[3]

		value, ok := os.LookupEnv(name)
		switch {
		case ok && value != "":
			return value
		case op == "-":
			return arg
		case op == "?":
			msg := arg
			if msg == "" {
				msg = "required but not set"
			}
			return fmt.Sprintf("ERROR:%s:%s", name, msg)
		default:
			return ""
		}
	})
}

// expandEnvVarsWithValidation expands references and returns an error
// listing every unsatisfied ${VAR:?msg} requirement.
func expandEnvVarsWithValidation(raw string) (string, error) {
	expanded := expandEnvVars(raw)

	var missing []string
	for _, line := range strings.Split(expanded, "\n") {
		if idx := strings.Index(line, "ERROR:"); idx >= 0 {
			missing = append(missing, strings.TrimSpace(line[idx+len("ERROR:"):]))
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variables:\n  %s", strings.Join(missing, "\n  "))
	}
	return expanded, nil
}

// ParseConfig unmarshals YAML over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromFile loads, expands, and parses a YAML config file.
func LoadConfigFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded, err := expandEnvVarsWithValidation(string(data))
	if err != nil {
		return nil, err
	}
	return ParseConfig([]byte(expanded))
}
