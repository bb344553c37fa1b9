package config

import (
	"fmt"
	"log/syslog"
	"time"

	"github.com/kahiteam/forkexec/internal/events"
	"github.com/kahiteam/forkexec/internal/logging"
	"github.com/kahiteam/forkexec/internal/process"
)

// Limits returns the configured resource limits in resource order.
func (s *SpawnConfig) Limits() ([]process.Limit, error) {
	return process.ParseLimits(s.Rlimits)
}

// CPUList returns the configured CPUs, nil when affinity is not set.
func (s *SpawnConfig) CPUList() ([]int, error) {
	if s.CPUs == "" {
		return nil, nil
	}
	return process.ParseCPUList(s.CPUs)
}

// TimeoutDuration returns the configured run timeout, 0 for none.
func (s *SpawnConfig) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Timeout)
}

// WebhookConfigs converts the [[webhooks]] entries for events.NewWebhookManager.
func (c *Config) WebhookConfigs() ([]events.WebhookConfig, error) {
	out := make([]events.WebhookConfig, 0, len(c.Webhooks))
	for _, w := range c.Webhooks {
		hook := events.WebhookConfig{
			Name:       w.Name,
			URL:        w.URL,
			Headers:    w.Headers,
			MaxRetries: w.MaxRetries,
			Template:   w.Template,
		}
		for _, name := range w.Events {
			et, err := events.ParseEventType(name)
			if err != nil {
				return nil, fmt.Errorf("webhook %s: %w", w.Name, err)
			}
			hook.Events = append(hook.Events, et)
		}
		if w.Timeout != "" {
			d, err := time.ParseDuration(w.Timeout)
			if err != nil {
				return nil, fmt.Errorf("webhook %s: %w", w.Name, err)
			}
			hook.Timeout = d
		}
		out = append(out, hook)
	}
	return out, nil
}

// Priority returns the parsed syslog priority.
func (l *LogConfig) Priority() (syslog.Priority, error) {
	return logging.ParseSyslogPriority(l.SyslogPriority)
}
