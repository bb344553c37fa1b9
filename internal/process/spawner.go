// Package process spawns child processes and wraps the OS process APIs
// (limits, priority, affinity, signals, wait) that surround them.
package process

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// Request holds the parameters needed to spawn a child process.
type Request struct {
	Path string   // program to execute, no $PATH lookup
	Args []string // full argv, including argv[0]
	Env  []string // environment (KEY=VALUE), empty slice for none
	Dir  string   // working directory, empty to inherit

	RedirectStdin  bool
	RedirectStdout bool
	RedirectStderr bool

	// ReportExecFailure makes Spawn wait for the child's exec outcome and
	// return an *ExecError when the program could not be started. By
	// default a failed exec is only visible through the child's exit status.
	ReportExecFailure bool
}

// Result is the outcome of a successful spawn. Streams that were not
// redirected are nil.
type Result struct {
	Pid    int
	Stdin  *os.File // write end of the child's stdin
	Stdout *os.File // read end of the child's stdout
	Stderr *os.File // read end of the child's stderr
}

// absentResult is returned with every error. No field is usable.
func absentResult() Result {
	return Result{Pid: -1}
}

// Close closes every parent-side stream in the result.
func (r Result) Close() error {
	var errs []error
	for _, f := range []*os.File{r.Stdin, r.Stdout, r.Stderr} {
		if f != nil {
			if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SpawnError reports an OS call that failed in the parent during a spawn.
type SpawnError struct {
	Op  string // "pipe", "fork"
	Err syscall.Errno
}

func (e *SpawnError) Error() string { return "spawn: " + e.Op + ": " + e.Err.Error() }
func (e *SpawnError) Unwrap() error { return e.Err }

// ExecError reports that the child was created but could not reach the
// target program. Only returned when Request.ReportExecFailure is set.
type ExecError struct {
	Path string
	Pid  int
	Err  syscall.Errno
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec %s (pid %d): %v", e.Path, e.Pid, e.Err)
}
func (e *ExecError) Unwrap() error { return e.Err }

// validate checks the preconditions that must hold before any descriptor
// is opened.
func (r *Request) validate() error {
	if r.Path == "" || r.Args == nil || r.Env == nil {
		return syscall.EINVAL
	}
	if strings.IndexByte(r.Path, 0) >= 0 || strings.IndexByte(r.Dir, 0) >= 0 {
		return syscall.EINVAL
	}
	for _, s := range r.Args {
		if strings.IndexByte(s, 0) >= 0 {
			return syscall.EINVAL
		}
	}
	for _, s := range r.Env {
		if strings.IndexByte(s, 0) >= 0 {
			return syscall.EINVAL
		}
	}
	return nil
}

// Spawner creates child processes. Implementations include ForkSpawner
// (real) and MockSpawner (testing).
type Spawner interface {
	Spawn(req Request) (Result, error)
}

// ForkSpawner spawns real OS processes with fork and exec.
type ForkSpawner struct{}

// Spawn starts a child process. See spawnProcess for the platform details.
func (s *ForkSpawner) Spawn(req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return absentResult(), err
	}
	return spawnProcess(&req)
}

// MockSpawner is a test double for Spawner.
type MockSpawner struct {
	SpawnFn    func(req Request) (Result, error)
	SpawnCalls []Request
}

// Spawn records the call and delegates to SpawnFn.
func (m *MockSpawner) Spawn(req Request) (Result, error) {
	m.SpawnCalls = append(m.SpawnCalls, req)
	if m.SpawnFn != nil {
		return m.SpawnFn(req)
	}
	return Result{Pid: 1000 + len(m.SpawnCalls)}, nil
}
