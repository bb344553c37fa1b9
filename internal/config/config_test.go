package config

import (
	"log/syslog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kahiteam/forkexec/internal/events"
	"github.com/kahiteam/forkexec/internal/process"
)

func TestParseValidConfig(t *testing.T) {
	tomlData := `
[log]
level = "debug"
format = "text"
syslog_tag = "job-%(program_name)s"
syslog_priority = "local2.notice"

[spawn]
directory = "/srv/work"
clean_environment = true
redirect_stdin = true
redirect_stderr = false
strict_exec = true
nice = 5
cpus = "0-1,4"
timeout = "90s"
stderr_tail = 1024

[spawn.environment]
PATH = "/usr/bin:/bin"
MODE = "batch"

[spawn.rlimits]
nofile = "1024:4096"
core = "0"

[metrics]
textfile = "/var/lib/node_exporter/forkexec.prom"
listen = "127.0.0.1:9310"
`
	cfg, warnings, err := LoadBytes([]byte(tomlData), "test.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) > 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Log.SyslogTag != "job-%(program_name)s" {
		t.Errorf("syslog_tag = %q, want it left unexpanded", cfg.Log.SyslogTag)
	}
	if p, err := cfg.Log.Priority(); err != nil || p != syslog.LOG_LOCAL2|syslog.LOG_NOTICE {
		t.Errorf("Priority() = %d, %v", p, err)
	}

	s := cfg.Spawn
	if s.Directory != "/srv/work" || !s.CleanEnvironment || !s.StrictExec {
		t.Errorf("spawn = %+v", s)
	}
	if !*s.RedirectStdin || !*s.RedirectStdout || *s.RedirectStderr {
		t.Errorf("redirects = %v %v %v, want true true false", *s.RedirectStdin, *s.RedirectStdout, *s.RedirectStderr)
	}
	if s.Nice == nil || *s.Nice != 5 {
		t.Errorf("nice = %v, want 5", s.Nice)
	}
	if s.StderrTail != 1024 {
		t.Errorf("stderr_tail = %d, want 1024", s.StderrTail)
	}
	if s.Environment["MODE"] != "batch" {
		t.Errorf("environment = %v", s.Environment)
	}

	cpus, err := s.CPUList()
	if err != nil || len(cpus) != 3 || cpus[2] != 4 {
		t.Errorf("CPUList() = %v, %v", cpus, err)
	}
	d, err := s.TimeoutDuration()
	if err != nil || d != 90*time.Second {
		t.Errorf("TimeoutDuration() = %v, %v", d, err)
	}
	limits, err := s.Limits()
	if err != nil || len(limits) != 2 {
		t.Fatalf("Limits() = %v, %v", limits, err)
	}
	for _, l := range limits {
		if l.Resource == process.RLimitNOFile && (l.Cur != 1024 || l.Max != 4096) {
			t.Errorf("nofile = %+v", l.RLimit)
		}
	}

	if cfg.Metrics.Listen != "127.0.0.1:9310" {
		t.Errorf("metrics.listen = %q", cfg.Metrics.Listen)
	}
}

func TestEmptyConfigGetsDefaults(t *testing.T) {
	cfg, _, err := LoadBytes([]byte(""), "empty.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("log.level = %q, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("log.format = %q, want auto", cfg.Log.Format)
	}
	if *cfg.Spawn.RedirectStdin {
		t.Error("redirect_stdin should default to false")
	}
	if !*cfg.Spawn.RedirectStdout || !*cfg.Spawn.RedirectStderr {
		t.Error("redirect_stdout and redirect_stderr should default to true")
	}
	if cfg.Spawn.Nice != nil {
		t.Errorf("nice = %d, want unset", *cfg.Spawn.Nice)
	}
	if cfg.Spawn.StderrTail != 4096 {
		t.Errorf("stderr_tail = %d, want 4096", cfg.Spawn.StderrTail)
	}
	if d, _ := cfg.Spawn.TimeoutDuration(); d != 0 {
		t.Errorf("timeout = %v, want 0", d)
	}
	if cpus, _ := cfg.Spawn.CPUList(); cpus != nil {
		t.Errorf("cpus = %v, want nil", cpus)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"bad level", "[log]\nlevel = \"trace\"", "log.level"},
		{"bad format", "[log]\nformat = \"xml\"", "log.format"},
		{"bad syslog priority", "[log]\nsyslog_priority = \"nowhere.info\"", "log.syslog_priority"},
		{"nice too low", "[spawn]\nnice = -21", "spawn.nice"},
		{"nice too high", "[spawn]\nnice = 20", "spawn.nice"},
		{"bad cpus", "[spawn]\ncpus = \"3-1\"", "spawn.cpus"},
		{"bad timeout", "[spawn]\ntimeout = \"soon\"", "spawn.timeout"},
		{"negative tail", "[spawn]\nstderr_tail = -1", "spawn.stderr_tail"},
		{"unknown rlimit", "[spawn.rlimits]\nbogus = \"1\"", "spawn.rlimits"},
		{"bad rlimit value", "[spawn.rlimits]\nnofile = \"lots\"", "spawn.rlimits"},
		{"bad env name", "[spawn.environment]\n\"A=B\" = \"x\"", "spawn.environment"},
		{"bad listen", "[metrics]\nlisten = \"nope\"", "metrics.listen"},
		{"webhook insecure url", "[[webhooks]]\nurl = \"http://example.com/h\"\nevents = [\"CHILD_FAILED\"]", "webhooks[0].url"},
		{"webhook no events", "[[webhooks]]\nurl = \"https://example.com/h\"", "webhooks[0].events"},
		{"webhook unknown event", "[[webhooks]]\nurl = \"https://example.com/h\"\nevents = [\"TICK_5\"]", "webhooks[0].events"},
		{"webhook bad timeout", "[[webhooks]]\nurl = \"https://example.com/h\"\nevents = [\"CHILD_FAILED\"]\ntimeout = \"0s\"", "webhooks[0].timeout"},
		{"webhook bad template", "[[webhooks]]\nurl = \"https://example.com/h\"\nevents = [\"CHILD_FAILED\"]\ntemplate = \"teams\"", "webhooks[0].template"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadBytes([]byte(tt.toml), "test.toml")
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidationCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	n := 40
	cfg.Spawn.Nice = &n
	if errs := Validate(cfg); len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
}

func TestUnknownFieldsProduceWarnings(t *testing.T) {
	tomlData := `
[spawn]
directory = "/tmp"
unknown_field = "hello"

[mystery]
key = 1
`
	cfg, warnings, err := LoadBytes([]byte(tomlData), "test.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("config should not be nil")
	}
	if len(warnings) < 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "spawn.unknown_field") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning about spawn.unknown_field, got %v", warnings)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	_, _, err := LoadBytes([]byte("[spawn\ndirectory ="), "broken.toml")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config parse error in broken.toml") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	_, _, err := Load("/nonexistent/forkexec.toml")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "cannot read config") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forkexec.toml")
	data := "[spawn]\ndirectory = \"%(here)s/work\"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Spawn.Directory != filepath.Join(dir, "work") {
		t.Errorf("directory = %q, want %q", cfg.Spawn.Directory, filepath.Join(dir, "work"))
	}
}

func TestWebhookConfigs(t *testing.T) {
	t.Setenv("FORKEXEC_TEST_TOKEN", "s3cret")
	tomlData := `
[[webhooks]]
url = "https://hooks.example.com/a"
events = ["child_failed", "SPAWN_FAILED"]
timeout = "2s"
max_retries = 1

[webhooks.headers]
Authorization = "Bearer ${FORKEXEC_TEST_TOKEN}"

[[webhooks]]
name = "slack"
url = "http://localhost:9000/hook"
events = ["CHILD_EXITED"]
template = "slack"
`
	cfg, _, err := LoadBytes([]byte(tomlData), "test.toml")
	if err != nil {
		t.Fatal(err)
	}
	hooks, err := cfg.WebhookConfigs()
	if err != nil {
		t.Fatal(err)
	}
	if len(hooks) != 2 {
		t.Fatalf("got %d hooks, want 2", len(hooks))
	}

	a := hooks[0]
	if a.Name != "webhook1" || a.Template != "generic" {
		t.Errorf("defaults not applied: name=%q template=%q", a.Name, a.Template)
	}
	if len(a.Events) != 2 || a.Events[0] != events.ChildFailed || a.Events[1] != events.SpawnFailed {
		t.Errorf("events = %v", a.Events)
	}
	if a.Timeout != 2*time.Second || a.MaxRetries != 1 {
		t.Errorf("timeout = %v, max_retries = %d", a.Timeout, a.MaxRetries)
	}
	if a.Headers["Authorization"] != "Bearer s3cret" {
		t.Errorf("header not expanded: %q", a.Headers["Authorization"])
	}

	if hooks[1].Name != "slack" || hooks[1].Template != "slack" || hooks[1].Timeout != 0 {
		t.Errorf("second hook = %+v", hooks[1])
	}
}
