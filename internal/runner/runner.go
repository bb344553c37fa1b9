// Package runner drives one child process from spawn to reap: it applies
// resource limits, scheduling and affinity, pumps the child's streams and
// decodes how it ended.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/kahiteam/forkexec/internal/events"
	"github.com/kahiteam/forkexec/internal/logging"
	"github.com/kahiteam/forkexec/internal/metrics"
	"github.com/kahiteam/forkexec/internal/process"
)

// ErrTimeout is returned when a job outlives its timeout and is killed.
var ErrTimeout = errors.New("child killed after timeout")

// DefaultDrainTimeout bounds how long output is read after the child has
// been reaped. A grandchild may keep the pipes open indefinitely.
const DefaultDrainTimeout = 2 * time.Second

// Job describes one child to run.
type Job struct {
	Request process.Request

	Nice   *int            // applied to the child after spawn
	CPUs   []int           // affinity for the child, nil to inherit
	Limits []process.Limit // applied to this process before spawn

	Stdin  io.Reader // copied to the child's stdin when redirected
	Stdout io.Writer // receives the child's stdout when redirected
	Stderr io.Writer // receives the child's stderr when redirected

	StripANSI bool
	TailSize  int // stderr bytes kept in Outcome.StderrTail
	Timeout   time.Duration

	// OutputHandlers see every chunk read from stdout and stderr.
	OutputHandlers []func(stream string, data []byte)
}

// Outcome is how a child ended.
type Outcome struct {
	Pid        int
	ExitCode   int            // exit status, or 128+signal when killed
	Signal     process.Signal // terminating signal, 0 on a normal exit
	TimedOut   bool
	StderrTail []byte
	Duration   time.Duration
}

// Runner runs jobs.
type Runner struct {
	Spawner      process.Spawner
	Logger       *slog.Logger
	Metrics      *metrics.Collector // optional
	Events       *events.Bus        // optional
	DrainTimeout time.Duration
}

// New creates a runner. A nil logger discards.
func New(spawner process.Spawner, logger *slog.Logger, m *metrics.Collector) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{
		Spawner:      spawner,
		Logger:       logger,
		Metrics:      m,
		DrainTimeout: DefaultDrainTimeout,
	}
}

// Run spawns the job's child and blocks until it has been reaped. The
// child is killed with SIGKILL when ctx is done or the timeout expires.
//
// When job.Stdin supports read deadlines (pipes, sockets, pollable files)
// a pending read is interrupted once the child is gone and the deadline is
// cleared again. Any other reader may keep one goroutine blocked in Read
// after Run returns; it exits on the next read without writing.
func (r *Runner) Run(ctx context.Context, job Job) (Outcome, error) {
	out := Outcome{Pid: -1}
	logger := r.Logger.With("path", job.Request.Path)

	if len(job.Limits) > 0 {
		if err := process.ApplyRLimits(job.Limits); err != nil {
			return out, fmt.Errorf("apply limits: %w", err)
		}
		logger.Debug("resource limits applied", "count", len(job.Limits))
	}

	start := time.Now()
	res, err := r.Spawner.Spawn(job.Request)
	if r.Metrics != nil {
		r.Metrics.ObserveSpawn(err, time.Since(start))
	}
	if err != nil {
		var execErr *process.ExecError
		if errors.As(err, &execErr) {
			out.Pid = execErr.Pid
			out.ExitCode = int(execErr.Err)
			out.Duration = time.Since(start)
		}
		logger.Error("spawn failed", "error", err)
		r.publish(events.SpawnFailed, map[string]string{
			"path":  job.Request.Path,
			"error": err.Error(),
		})
		return out, err
	}
	defer res.Close()

	out.Pid = res.Pid
	logger = logger.With("pid", res.Pid)
	logger.Info("child started")
	r.publish(events.ChildSpawned, map[string]string{
		"path": job.Request.Path,
		"pid":  strconv.Itoa(res.Pid),
	})

	r.schedule(logger, res.Pid, job)

	// The exit is observed before any stream is touched so a child that
	// never reads its stdin is still noticed. The child stays a zombie
	// until WaitPid below, so a kill never reaches a recycled pid.
	exited := make(chan error, 1)
	go func() { exited <- process.WaitExited(res.Pid) }()

	var fed chan struct{}
	if res.Stdin != nil {
		fed = make(chan struct{})
		go func() {
			defer close(fed)
			feedStdin(res.Stdin, job.Stdin)
		}()
	}

	var pumps sync.WaitGroup
	var stderrCapture *logging.Capture
	if res.Stdout != nil {
		c := r.newCapture("stdout", job.Stdout, 0, job)
		startPump(&pumps, logger, res.Stdout, c)
	}
	if res.Stderr != nil {
		stderrCapture = r.newCapture("stderr", job.Stderr, job.TailSize, job)
		startPump(&pumps, logger, res.Stderr, stderrCapture)
	}

	var timeout <-chan time.Time
	if job.Timeout > 0 {
		timer := time.NewTimer(job.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var cause error
	select {
	case <-exited:
	case <-ctx.Done():
		cause = ctx.Err()
		r.kill(logger, res.Pid, "context done")
		<-exited
	case <-timeout:
		cause = ErrTimeout
		out.TimedOut = true
		r.kill(logger, res.Pid, "timeout")
		<-exited
	}
	_, ws, werr := process.WaitPid(res.Pid, 0)
	out.Duration = time.Since(start)

	if res.Stdin != nil {
		_ = res.Stdin.Close()
		stopStdin(fed, job.Stdin)
	}
	r.drain(&pumps, res)

	if stderrCapture != nil && job.TailSize > 0 {
		out.StderrTail = stderrCapture.Tail(job.TailSize)
	}

	if werr != nil {
		return out, fmt.Errorf("wait for pid %d: %w", res.Pid, werr)
	}

	kind := decode(&out, ws)
	if out.TimedOut {
		kind = metrics.ExitTimeout
	}
	if r.Metrics != nil {
		r.Metrics.ObserveExit(kind, out.ExitCode, out.Duration)
	}
	attrs := []any{"exit_code", out.ExitCode, "duration", out.Duration.String()}
	if out.Signal != 0 {
		attrs = append(attrs, "signal", out.Signal.String())
	}
	logger.Info("child exited", attrs...)

	et := events.ChildExited
	if kind != metrics.ExitSuccess {
		et = events.ChildFailed
	}
	data := map[string]string{
		"path":      job.Request.Path,
		"pid":       strconv.Itoa(out.Pid),
		"kind":      kind,
		"exit_code": strconv.Itoa(out.ExitCode),
		"duration":  out.Duration.String(),
	}
	if out.Signal != 0 {
		data["signal"] = out.Signal.String()
	}
	r.publish(et, data)

	return out, cause
}

func (r *Runner) publish(et events.EventType, data map[string]string) {
	if r.Events != nil {
		r.Events.Publish(events.Event{Type: et, Data: data})
	}
}

// schedule applies nice and affinity to the running child. Failures are
// logged and the run continues.
func (r *Runner) schedule(logger *slog.Logger, pid int, job Job) {
	if job.Nice != nil {
		if err := process.SetPriority(process.PrioProcess, pid, *job.Nice); err != nil {
			logger.Warn("cannot set child priority", "nice", *job.Nice, "error", err)
		}
	}
	if len(job.CPUs) > 0 {
		if err := setAffinity(pid, job.CPUs); err != nil {
			logger.Warn("cannot set child affinity", "cpus", job.CPUs, "error", err)
		}
	}
}

func (r *Runner) kill(logger *slog.Logger, pid int, reason string) {
	logger.Warn("killing child", "reason", reason)
	if err := process.Kill(pid, process.SigKill); err != nil {
		logger.Error("kill failed", "error", err)
	}
}

func (r *Runner) newCapture(stream string, dest io.Writer, tail int, job Job) *logging.Capture {
	c := logging.NewCapture(logging.CaptureConfig{
		Stream:    stream,
		Dest:      dest,
		StripANSI: job.StripANSI,
		TailSize:  tail,
		Logger:    r.Logger,
	})
	for _, h := range job.OutputHandlers {
		c.AddHandler(h)
	}
	if r.Metrics != nil {
		m := r.Metrics
		c.AddHandler(func(stream string, data []byte) { m.AddOutput(stream, len(data)) })
	}
	return c
}

// drain waits for the output pumps, cutting them off once DrainTimeout has
// passed.
func (r *Runner) drain(pumps *sync.WaitGroup, res process.Result) {
	done := make(chan struct{})
	go func() {
		pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return
	case <-time.After(r.DrainTimeout):
	}
	past := time.Now()
	for _, f := range []*os.File{res.Stdout, res.Stderr} {
		if f != nil {
			_ = f.SetReadDeadline(past)
		}
	}
	<-done
}

func startPump(wg *sync.WaitGroup, logger *slog.Logger, f *os.File, c *logging.Capture) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := logging.Pump(f, c)
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) && !errors.Is(err, os.ErrClosed) {
			logger.Warn("reading child output", "stream", f.Name(), "error", err)
		}
	}()
}

// feedStdin copies src into the child's stdin and closes it, which the
// child sees as EOF. A nil src closes immediately.
func feedStdin(w *os.File, src io.Reader) {
	if src != nil {
		_, _ = io.Copy(w, src)
	}
	_ = w.Close()
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// stopStdin interrupts a feed still blocked reading src and waits for it
// to finish, then clears the deadline so src stays usable. Sources without
// deadline support are left alone.
func stopStdin(fed <-chan struct{}, src io.Reader) {
	d, ok := src.(readDeadliner)
	if !ok {
		return
	}
	select {
	case <-fed:
		return
	default:
	}
	if err := d.SetReadDeadline(time.Now()); err != nil {
		return
	}
	<-fed
	_ = d.SetReadDeadline(time.Time{})
}

// decode fills the exit fields of out and returns the metrics exit kind.
func decode(out *Outcome, ws process.WaitStatus) string {
	switch {
	case ws.Exited():
		out.ExitCode = ws.ExitStatus()
		if out.ExitCode == 0 {
			return metrics.ExitSuccess
		}
		return metrics.ExitFailure
	case ws.Signaled():
		out.Signal = ws.TermSig()
		out.ExitCode = 128 + int(out.Signal)
		return metrics.ExitSignaled
	default:
		out.ExitCode = -1
		return metrics.ExitFailure
	}
}
