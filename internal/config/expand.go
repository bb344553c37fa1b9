package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandContext holds variables available for expansion.
type ExpandContext struct {
	Here        string // directory of the config file
	ProgramName string // base name of the program being run
}

// ExpandVariables expands template variables and environment references
// in the path-like fields of a config, given the config file path.
// log.syslog_tag is left alone: it may use %(program_name)s, which is only
// known at run time.
func ExpandVariables(cfg *Config, configPath string) error {
	here := filepath.Dir(configPath)
	if abs, err := filepath.Abs(here); err == nil {
		here = abs
	}
	ctx := ExpandContext{Here: here}

	var err error
	cfg.Spawn.Directory, err = expandString(cfg.Spawn.Directory, ctx)
	if err != nil {
		return fmt.Errorf("spawn.directory: %w", err)
	}
	cfg.Metrics.Textfile, err = expandString(cfg.Metrics.Textfile, ctx)
	if err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}

	for i := range cfg.Webhooks {
		w := &cfg.Webhooks[i]
		if w.URL, err = expandString(w.URL, ctx); err != nil {
			return fmt.Errorf("webhooks[%d].url: %w", i, err)
		}
		for k, v := range w.Headers {
			if w.Headers[k], err = expandString(v, ctx); err != nil {
				return fmt.Errorf("webhooks[%d].headers.%s: %w", i, k, err)
			}
		}
	}

	for k, v := range cfg.Spawn.Environment {
		expanded, err := expandString(v, ctx)
		if err != nil {
			return fmt.Errorf("spawn.environment.%s: %w", k, err)
		}
		cfg.Spawn.Environment[k] = expanded
	}

	return nil
}

// expandString expands all template variables and env references in a single string.
func expandString(s string, ctx ExpandContext) (string, error) {
	if s == "" {
		return s, nil
	}

	// Phase 1: Expand %(variable)s and %(variable)d patterns.
	result, err := expandTemplateVars(s, ctx)
	if err != nil {
		return "", err
	}

	// Phase 2: Expand ${ENV_VAR} references.
	result, err = expandEnvVars(result)
	if err != nil {
		return "", err
	}

	// Phase 3: Unescape %% -> % and $$ -> $.
	result = strings.ReplaceAll(result, "%%", "%")
	result = strings.ReplaceAll(result, "$$", "$")

	return result, nil
}

func expandTemplateVars(s string, ctx ExpandContext) (string, error) {
	var result strings.Builder
	i := 0
	for i < len(s) {
		if i+1 < len(s) && s[i] == '%' && s[i+1] == '%' {
			// Escaped percent, preserve for later unescaping.
			result.WriteString("%%")
			i += 2
			continue
		}

		if i+1 < len(s) && s[i] == '%' && s[i+1] == '(' {
			// Find closing )s or )d.
			end := strings.Index(s[i:], ")s")
			endD := strings.Index(s[i:], ")d")
			if end < 0 && endD < 0 {
				return "", fmt.Errorf("unclosed template variable at position %d in %q", i, s)
			}

			var varName string
			var advance int
			if end >= 0 && (endD < 0 || end < endD) {
				varName = s[i+2 : i+end]
				advance = end + 2
			} else {
				varName = s[i+2 : i+endD]
				advance = endD + 2
			}

			val, err := resolveTemplateVar(varName, ctx)
			if err != nil {
				return "", err
			}
			result.WriteString(val)
			i += advance
			continue
		}

		result.WriteByte(s[i])
		i++
	}

	return result.String(), nil
}

func resolveTemplateVar(name string, ctx ExpandContext) (string, error) {
	switch name {
	case "here":
		return ctx.Here, nil
	case "program_name":
		if ctx.ProgramName == "" {
			return "", fmt.Errorf("%%(program_name)s is not available here")
		}
		return ctx.ProgramName, nil
	default:
		return "", fmt.Errorf("unknown template variable: %%(%s)s", name)
	}
}

func expandEnvVars(s string) (string, error) {
	var result strings.Builder
	i := 0
	for i < len(s) {
		if i+1 < len(s) && s[i] == '$' && s[i+1] == '$' {
			// Escaped dollar, preserve for later unescaping.
			result.WriteString("$$")
			i += 2
			continue
		}

		if i+1 < len(s) && s[i] == '$' && s[i+1] == '{' {
			end := strings.Index(s[i:], "}")
			if end < 0 {
				return "", fmt.Errorf("unclosed environment variable reference at position %d in %q", i, s)
			}

			varName := s[i+2 : i+end]
			val, ok := os.LookupEnv(varName)
			if !ok {
				return "", fmt.Errorf("undefined environment variable: ${%s}", varName)
			}
			result.WriteString(val)
			i += end + 1
			continue
		}

		result.WriteByte(s[i])
		i++
	}

	return result.String(), nil
}

// ExpandString is exported for use by other packages needing single-value expansion.
func ExpandString(s string, ctx ExpandContext) (string, error) {
	return expandString(s, ctx)
}
