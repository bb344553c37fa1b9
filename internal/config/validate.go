package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/kahiteam/forkexec/internal/events"
	"github.com/kahiteam/forkexec/internal/logging"
	"github.com/kahiteam/forkexec/internal/process"
)

// Validate checks the config for semantic errors and returns all of them.
func Validate(cfg *Config) []error {
	var errs []error

	if err := logging.ValidateLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := logging.ValidateFormat(cfg.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}
	if _, err := logging.ParseSyslogPriority(cfg.Log.SyslogPriority); err != nil {
		errs = append(errs, fmt.Errorf("log.syslog_priority: %w", err))
	}

	s := cfg.Spawn
	if s.Nice != nil && (*s.Nice < -20 || *s.Nice > 19) {
		errs = append(errs, fmt.Errorf("spawn.nice must be between -20 and 19, got %d", *s.Nice))
	}
	if s.CPUs != "" {
		if _, err := process.ParseCPUList(s.CPUs); err != nil {
			errs = append(errs, fmt.Errorf("spawn.cpus: %w", err))
		}
	}
	if s.Timeout != "" {
		if d, err := time.ParseDuration(s.Timeout); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("spawn.timeout: invalid duration %q", s.Timeout))
		}
	}
	if s.StderrTail < 0 {
		errs = append(errs, fmt.Errorf("spawn.stderr_tail must be >= 0, got %d", s.StderrTail))
	}
	if _, err := process.ParseLimits(s.Rlimits); err != nil {
		errs = append(errs, fmt.Errorf("spawn.rlimits: %w", err))
	}
	for k := range s.Environment {
		if k == "" || strings.ContainsAny(k, "=\x00") {
			errs = append(errs, fmt.Errorf("spawn.environment: invalid variable name %q", k))
		}
	}

	for i, w := range cfg.Webhooks {
		prefix := fmt.Sprintf("webhooks[%d]", i)
		if err := events.ValidateWebhookURL(w.URL, w.AllowInsecure); err != nil {
			errs = append(errs, fmt.Errorf("%s.url: %w", prefix, err))
		}
		if len(w.Events) == 0 {
			errs = append(errs, fmt.Errorf("%s.events: at least one event is required", prefix))
		}
		for _, name := range w.Events {
			if _, err := events.ParseEventType(name); err != nil {
				errs = append(errs, fmt.Errorf("%s.events: %w", prefix, err))
			}
		}
		if w.Timeout != "" {
			if d, err := time.ParseDuration(w.Timeout); err != nil || d <= 0 {
				errs = append(errs, fmt.Errorf("%s.timeout: invalid duration %q", prefix, w.Timeout))
			}
		}
		if w.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("%s.max_retries must be >= 0, got %d", prefix, w.MaxRetries))
		}
		if err := events.ValidateWebhookTemplate(w.Template); err != nil {
			errs = append(errs, fmt.Errorf("%s.template: %w", prefix, err))
		}
	}

	if cfg.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Errorf("metrics.listen: %w", err))
		}
	}

	return errs
}
