// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value. Environment variables override file values.
//
// Supported key files: anthropic-api-key, tavily-api-key, brave-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Keys recognized by the CLI.
const (
	AnthropicAPIKey = "anthropic-api-key"
	TavilyAPIKey    = "tavily-api-key"
	BraveAPIKey     = "brave-api-key"
)

// envOverrides maps secret key names to the environment variables that
// take precedence over file contents.
var envOverrides = map[string]string{
	AnthropicAPIKey: "ANTHROPIC_API_KEY",
	TavilyAPIKey:    "TAVILY_API_KEY",
	BraveAPIKey:     "BRAVE_API_KEY",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns a map
// holding whatever was found. Environment variables from envOverrides are
// applied last and win over file values. Unreadable files produce a warning
// on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	secrets := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	for key, env := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			secrets[key] = v
		}
	}

	return secrets, nil
}
