package config

import (
	"fmt"
	"os"
)

// DefaultSearchPaths is the ordered list of config file paths to try.
var DefaultSearchPaths = []string{
	"./forkexec.toml",
	"/etc/forkexec/forkexec.toml",
	"/etc/forkexec.toml",
}

// ErrNotFound is returned by Resolve when no config file exists in any
// searched location.
var ErrNotFound = fmt.Errorf("no config file found; searched %v", DefaultSearchPaths)

// Resolve finds the config file path by checking, in order:
//  1. Explicit path from --config (if non-empty)
//  2. FORKEXEC_CONFIG environment variable
//  3. DefaultSearchPaths
//
// An explicit or environment path that does not exist is an error.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("cannot read config: %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if env := os.Getenv("FORKEXEC_CONFIG"); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("cannot read config: %s: %w", env, err)
		}
		return env, nil
	}

	for _, p := range DefaultSearchPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrNotFound
}

// Default returns a config with every default applied, used when no file
// is found.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}
