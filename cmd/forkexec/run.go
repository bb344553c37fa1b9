package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kahiteam/forkexec/internal/config"
	"github.com/kahiteam/forkexec/internal/events"
	"github.com/kahiteam/forkexec/internal/logging"
	"github.com/kahiteam/forkexec/internal/metrics"
	"github.com/kahiteam/forkexec/internal/process"
	"github.com/kahiteam/forkexec/internal/runner"
	"github.com/kahiteam/forkexec/internal/version"
	"github.com/spf13/cobra"
)

// Exit statuses used when the child never produced one of its own.
const (
	exitTimeout      = 124
	exitCannotInvoke = 126
	exitNotFound     = 127
)

type runOptions struct {
	config         string
	dir            string
	env            []string
	cleanEnv       bool
	stdin          bool
	stdout         bool
	stderr         bool
	strictExec     bool
	nice           int
	cpus           string
	rlimits        []string
	timeout        time.Duration
	syslogTag      string
	syslogPriority string
	stripANSI      bool
	metricsFile    string
	metricsListen  string
	argv0          string
}

func newRunCmd() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [flags] -- PROGRAM [ARG...]",
		Short: "Spawn PROGRAM and wait for it",
		Long: "Run spawns PROGRAM with the configured environment, directory and\n" +
			"stream redirection, waits for it and exits with its status.\n" +
			"A signaled child yields 128+signal, a timeout 124, a program that\n" +
			"cannot be executed 126 or 127 (with --strict-exec).",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}
	f := cmd.Flags()
	f.SetInterspersed(false)
	f.StringVarP(&o.config, "config", "c", "", "path to config file")
	f.StringVar(&o.dir, "dir", "", "working directory for the child")
	f.StringArrayVarP(&o.env, "env", "e", nil, "set KEY=VALUE in the child environment (repeatable)")
	f.BoolVar(&o.cleanEnv, "clean-env", false, "start the child with only the configured environment")
	f.BoolVar(&o.stdin, "stdin", false, "pipe this process's stdin to the child")
	f.BoolVar(&o.stdout, "stdout", true, "pipe the child's stdout through this process")
	f.BoolVar(&o.stderr, "stderr", true, "pipe the child's stderr through this process")
	f.BoolVar(&o.strictExec, "strict-exec", false, "fail when the program cannot be executed")
	f.IntVar(&o.nice, "nice", 0, "nice value for the child (-20..19)")
	f.StringVar(&o.cpus, "cpus", "", "CPU list for the child, e.g. 0-3,6")
	f.StringArrayVar(&o.rlimits, "rlimit", nil, "resource limit NAME=SOFT[:HARD] (repeatable)")
	f.DurationVar(&o.timeout, "timeout", 0, "kill the child after this long")
	f.StringVar(&o.syslogTag, "syslog", "", "forward child output to syslog with this tag")
	f.StringVar(&o.syslogPriority, "syslog-priority", "", "syslog facility.severity (default daemon.info)")
	f.BoolVar(&o.stripANSI, "strip-ansi", false, "remove ANSI escape sequences from child output")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	f.StringVar(&o.metricsListen, "metrics-listen", "", "serve /metrics on this address while the child runs")
	f.StringVar(&o.argv0, "argv0", "", "argv[0] for the child (default PROGRAM)")
	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func (o *runOptions) run(cmd *cobra.Command, args []string) error {
	cfg, warnings, err := loadConfig(o.config)
	if err != nil {
		return err
	}
	if err := o.apply(cmd, cfg); err != nil {
		return err
	}

	logger := logging.New(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	for _, w := range warnings {
		logger.Warn(w)
	}

	path, err := lookProgram(args[0])
	if err != nil {
		return &exitError{code: exitNotFound, err: err}
	}
	argv := append([]string(nil), args...)
	if o.argv0 != "" {
		argv[0] = o.argv0
	}

	job, err := buildJob(cfg, path, argv)
	if err != nil {
		return err
	}
	if job.Request.RedirectStdin {
		job.Stdin = cmd.InOrStdin()
	}
	job.Stdout = cmd.OutOrStdout()
	job.Stderr = cmd.ErrOrStderr()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()
	collector.SetBuildInfo(version.Version, version.Go())
	if cfg.Metrics.Listen != "" {
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := collector.Serve(serveCtx, cfg.Metrics.Listen, logger); err != nil {
				logger.Error("metrics server failed", "addr", cfg.Metrics.Listen, "error", err)
			}
		}()
	}

	if cfg.Log.SyslogTag != "" {
		fwd, err := newForwarder(cfg, path)
		if err != nil {
			logger.Warn("syslog forwarding disabled", "error", err)
		} else {
			defer fwd.Close()
			job.OutputHandlers = append(job.OutputHandlers, fwd.Forward)
		}
	}

	bus := events.NewBus(logger)
	hooks, err := cfg.WebhookConfigs()
	if err != nil {
		return err
	}
	if len(hooks) > 0 {
		wm := events.NewWebhookManager(bus, hooks, logger)
		defer wm.Stop()
	}

	r := runner.New(&process.ForkSpawner{}, logger, collector)
	r.Events = bus
	out, runErr := r.Run(ctx, job)

	if cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("cannot write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	return exitFor(logger, out, runErr)
}

// loadConfig resolves and loads the config file. Running without one is
// fine; every setting then has its default.
func loadConfig(explicit string) (*config.Config, []string, error) {
	path, err := config.Resolve(explicit)
	if errors.Is(err, config.ErrNotFound) {
		return config.Default(), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return config.Load(path)
}

// apply overlays the flags the user actually set onto cfg and validates
// the result.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if f.Changed("dir") {
		cfg.Spawn.Directory = o.dir
	}
	if f.Changed("env") {
		pairs, err := runner.ParseEnvPairs(o.env)
		if err != nil {
			return err
		}
		if cfg.Spawn.Environment == nil {
			cfg.Spawn.Environment = make(map[string]string, len(pairs))
		}
		for k, v := range pairs {
			cfg.Spawn.Environment[k] = v
		}
	}
	if f.Changed("clean-env") {
		cfg.Spawn.CleanEnvironment = o.cleanEnv
	}
	if f.Changed("stdin") {
		cfg.Spawn.RedirectStdin = &o.stdin
	}
	if f.Changed("stdout") {
		cfg.Spawn.RedirectStdout = &o.stdout
	}
	if f.Changed("stderr") {
		cfg.Spawn.RedirectStderr = &o.stderr
	}
	if f.Changed("strict-exec") {
		cfg.Spawn.StrictExec = o.strictExec
	}
	if f.Changed("nice") {
		cfg.Spawn.Nice = &o.nice
	}
	if f.Changed("cpus") {
		cfg.Spawn.CPUs = o.cpus
	}
	if f.Changed("rlimit") {
		if cfg.Spawn.Rlimits == nil {
			cfg.Spawn.Rlimits = make(map[string]string, len(o.rlimits))
		}
		for _, kv := range o.rlimits {
			name, value, ok := strings.Cut(kv, "=")
			if !ok || name == "" {
				return fmt.Errorf("invalid --rlimit %q (want NAME=SOFT[:HARD])", kv)
			}
			cfg.Spawn.Rlimits[name] = value
		}
	}
	if f.Changed("timeout") {
		cfg.Spawn.Timeout = o.timeout.String()
	}
	if f.Changed("syslog") {
		cfg.Log.SyslogTag = o.syslogTag
	}
	if f.Changed("syslog-priority") {
		cfg.Log.SyslogPriority = o.syslogPriority
	}
	if f.Changed("strip-ansi") {
		cfg.Spawn.StripAnsi = o.stripANSI
	}
	if f.Changed("metrics-file") {
		cfg.Metrics.Textfile = o.metricsFile
	}
	if f.Changed("metrics-listen") {
		cfg.Metrics.Listen = o.metricsListen
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

// lookProgram returns name unchanged when it contains a slash and searches
// $PATH otherwise.
func lookProgram(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	return exec.LookPath(name)
}

func buildJob(cfg *config.Config, path string, argv []string) (runner.Job, error) {
	s := &cfg.Spawn
	limits, err := s.Limits()
	if err != nil {
		return runner.Job{}, err
	}
	cpus, err := s.CPUList()
	if err != nil {
		return runner.Job{}, err
	}
	timeout, err := s.TimeoutDuration()
	if err != nil {
		return runner.Job{}, err
	}
	return runner.Job{
		Request: process.Request{
			Path:              path,
			Args:              argv,
			Env:               runner.BuildEnv(os.Environ(), s.CleanEnvironment, s.Environment),
			Dir:               s.Directory,
			RedirectStdin:     boolValue(s.RedirectStdin),
			RedirectStdout:    boolValue(s.RedirectStdout),
			RedirectStderr:    boolValue(s.RedirectStderr),
			ReportExecFailure: s.StrictExec,
		},
		Nice:      s.Nice,
		CPUs:      cpus,
		Limits:    limits,
		StripANSI: s.StripAnsi,
		TailSize:  s.StderrTail,
		Timeout:   timeout,
	}, nil
}

func newForwarder(cfg *config.Config, path string) (*logging.SyslogForwarder, error) {
	tag, err := config.ExpandString(cfg.Log.SyslogTag, config.ExpandContext{ProgramName: filepath.Base(path)})
	if err != nil {
		return nil, fmt.Errorf("log.syslog_tag: %w", err)
	}
	priority, err := cfg.Log.Priority()
	if err != nil {
		return nil, err
	}
	return logging.NewSyslogForwarder(tag, priority)
}

// exitFor maps the run result onto the status forkexec exits with.
func exitFor(logger *slog.Logger, out runner.Outcome, err error) error {
	var execErr *process.ExecError
	switch {
	case errors.As(err, &execErr):
		code := exitCannotInvoke
		if errors.Is(execErr.Err, syscall.ENOENT) {
			code = exitNotFound
		}
		return &exitError{code: code, err: err}
	case errors.Is(err, runner.ErrTimeout):
		return &exitError{code: exitTimeout, err: err}
	case errors.Is(err, context.Canceled) && out.Pid > 0:
		return &exitError{code: out.ExitCode, err: errors.New("interrupted")}
	case err != nil:
		return err
	}

	if out.ExitCode != 0 {
		attrs := []any{"pid", out.Pid, "exit_code", out.ExitCode}
		if len(out.StderrTail) > 0 {
			attrs = append(attrs, "stderr_tail", string(out.StderrTail))
		}
		logger.Warn("child failed", attrs...)
		return &exitError{code: out.ExitCode}
	}
	return nil
}

func boolValue(p *bool) bool {
	return p != nil && *p
}
