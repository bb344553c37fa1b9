package config

import "fmt"

// ApplyDefaults fills in zero-value fields with their default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "auto"
	}
	if cfg.Log.SyslogPriority == "" {
		cfg.Log.SyslogPriority = "daemon.info"
	}

	// Stdin is inherited unless asked for, so interactive children keep
	// their terminal.
	t, f := true, false
	if cfg.Spawn.RedirectStdin == nil {
		cfg.Spawn.RedirectStdin = &f
	}
	if cfg.Spawn.RedirectStdout == nil {
		cfg.Spawn.RedirectStdout = &t
	}
	if cfg.Spawn.RedirectStderr == nil {
		cfg.Spawn.RedirectStderr = &t
	}
	if cfg.Spawn.StderrTail == 0 {
		cfg.Spawn.StderrTail = 4096
	}

	for i := range cfg.Webhooks {
		w := &cfg.Webhooks[i]
		if w.Name == "" {
			w.Name = fmt.Sprintf("webhook%d", i+1)
		}
		if w.Template == "" {
			w.Template = "generic"
		}
	}
}
