// Package config handles loading and validating forkexec configuration.
package config

// Config is the top-level forkexec configuration.
type Config struct {
	Log      LogConfig       `toml:"log"`
	Spawn    SpawnConfig     `toml:"spawn"`
	Metrics  MetricsConfig   `toml:"metrics"`
	Webhooks []WebhookConfig `toml:"webhooks"`
}

// LogConfig holds logger and syslog settings.
type LogConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	SyslogTag      string `toml:"syslog_tag"`
	SyslogPriority string `toml:"syslog_priority"`
}

// SpawnConfig holds the defaults for every spawned child.
type SpawnConfig struct {
	Directory        string            `toml:"directory"`
	CleanEnvironment bool              `toml:"clean_environment"`
	Environment      map[string]string `toml:"environment"`
	RedirectStdin    *bool             `toml:"redirect_stdin"`
	RedirectStdout   *bool             `toml:"redirect_stdout"`
	RedirectStderr   *bool             `toml:"redirect_stderr"`
	StripAnsi        bool              `toml:"strip_ansi"`
	StrictExec       bool              `toml:"strict_exec"`
	Nice             *int              `toml:"nice"`
	CPUs             string            `toml:"cpus"`
	Timeout          string            `toml:"timeout"`
	StderrTail       int               `toml:"stderr_tail"`
	Rlimits          map[string]string `toml:"rlimits"`
}

// MetricsConfig holds Prometheus export settings.
type MetricsConfig struct {
	Textfile string `toml:"textfile"`
	Listen   string `toml:"listen"`
}

// WebhookConfig is one [[webhooks]] entry: an HTTP endpoint notified of
// child lifecycle events.
type WebhookConfig struct {
	Name          string            `toml:"name"`
	URL           string            `toml:"url"`
	Events        []string          `toml:"events"`
	Headers       map[string]string `toml:"headers"`
	Timeout       string            `toml:"timeout"`
	MaxRetries    int               `toml:"max_retries"`
	Template      string            `toml:"template"`
	AllowInsecure bool              `toml:"allow_insecure"`
}
