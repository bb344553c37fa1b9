//go:build linux && !s390x

package process

import (
	"encoding/binary"
	"errors"
	"os"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	stdinIdx = iota
	stdoutIdx
	stderrIdx
)

var streamNames = [3]string{"|0", "|1", "|2"}

// Swapped out by tests to inject failures.
var (
	openPipe  = func(p []int) error { return unix.Pipe2(p, unix.O_CLOEXEC) }
	forkChild = forkExecChild
)

// pipeEnds is one pipe split by owner. An end is -1 once it has been
// closed or handed to the caller.
type pipeEnds struct {
	child  int
	parent int
}

func noPipe() pipeEnds { return pipeEnds{child: -1, parent: -1} }

// newStreamPipe opens the pipe for standard stream idx. The child reads
// stdin and writes stdout/stderr.
func newStreamPipe(idx int) (pipeEnds, error) {
	var p [2]int
	if err := openPipe(p[:]); err != nil {
		return noPipe(), err
	}
	if idx == stdinIdx {
		return pipeEnds{child: p[0], parent: p[1]}, nil
	}
	return pipeEnds{child: p[1], parent: p[0]}, nil
}

// newBarrier opens the exec barrier. The child keeps the write end, which
// closes on a successful exec.
func newBarrier() pipeEnds {
	var p [2]int
	if err := openPipe(p[:]); err != nil {
		return noPipe()
	}
	return pipeEnds{child: p[1], parent: p[0]}
}

func (p *pipeEnds) take(name string) *os.File {
	if p.parent < 0 {
		return nil
	}
	// A non-blocking descriptor is handed to the runtime poller by
	// os.NewFile, so reads and writes honor deadlines and Close.
	_ = unix.SetNonblock(p.parent, true)
	f := os.NewFile(uintptr(p.parent), name)
	p.parent = -1
	return f
}

func closeFD(fd *int) {
	if *fd >= 0 {
		_ = unix.Close(*fd)
		*fd = -1
	}
}

// childPlan carries everything the child needs after fork. It is fully
// built before fork so the child never allocates.
type childPlan struct {
	path  *byte
	argv  []*byte
	envv  []*byte
	dir   *byte // nil to inherit
	argvp uintptr
	envvp uintptr

	child       [3]int // child ends, dup'd onto 0, 1, 2
	parent      [3]int // parent ends, closed in the child
	barrier     int    // barrier write end
	barrierRead int
	nextfd      int // lowest descriptor above every one in the plan

	errno uint32 // reported through the barrier
}

func newChildPlan(req *Request) (*childPlan, error) {
	path, err := syscall.BytePtrFromString(req.Path)
	if err != nil {
		return nil, err
	}
	argv, err := syscall.SlicePtrFromStrings(req.Args)
	if err != nil {
		return nil, err
	}
	envv, err := syscall.SlicePtrFromStrings(req.Env)
	if err != nil {
		return nil, err
	}
	var dir *byte
	if req.Dir != "" {
		if dir, err = syscall.BytePtrFromString(req.Dir); err != nil {
			return nil, err
		}
	}
	return &childPlan{
		path:  path,
		argv:  argv,
		envv:  envv,
		dir:   dir,
		argvp: uintptr(unsafe.Pointer(&argv[0])),
		envvp: uintptr(unsafe.Pointer(&envv[0])),
	}, nil
}

func (c *childPlan) bind(pipes *[3]pipeEnds, barrier pipeEnds) {
	c.barrier = barrier.child
	c.barrierRead = barrier.parent
	c.nextfd = max(3, barrier.child+1, barrier.parent+1)
	for i := range pipes {
		c.child[i] = pipes[i].child
		c.parent[i] = pipes[i].parent
		c.nextfd = max(c.nextfd, pipes[i].child+1, pipes[i].parent+1)
	}
}

// spawnProcess opens the requested pipes and the exec barrier, forks, and
// waits on the barrier until the child has exec'd or died. Every
// descriptor it opens is either returned in the Result or closed.
func spawnProcess(req *Request) (res Result, err error) {
	plan, err := newChildPlan(req)
	if err != nil {
		return absentResult(), err
	}

	pipes := [3]pipeEnds{noPipe(), noPipe(), noPipe()}
	barrier := noPipe()
	pid := -1

	defer func() {
		for i := range pipes {
			closeFD(&pipes[i].child)
		}
		closeFD(&barrier.child)
		if err == nil && barrier.parent >= 0 {
			if errno, reported := awaitExec(barrier.parent); reported && req.ReportExecFailure {
				_, _, _ = WaitPid(pid, 0)
				err = &ExecError{Path: req.Path, Pid: pid, Err: errno}
			}
		}
		closeFD(&barrier.parent)

		if err != nil {
			for i := range pipes {
				closeFD(&pipes[i].parent)
			}
			_ = res.Close()
			res = absentResult()
		}
	}()

	redirect := [3]bool{req.RedirectStdin, req.RedirectStdout, req.RedirectStderr}
	for i, on := range redirect {
		if !on {
			continue
		}
		if pipes[i], err = newStreamPipe(i); err != nil {
			return absentResult(), &SpawnError{Op: "pipe", Err: toErrno(err)}
		}
	}
	barrier = newBarrier()

	plan.bind(&pipes, barrier)
	pid, errno := forkChild(plan)
	runtime.KeepAlive(plan)
	if errno != 0 {
		return absentResult(), &SpawnError{Op: "fork", Err: errno}
	}
	return parentContinue(pid, &pipes), nil
}

// parentContinue runs in the parent once the child exists and hands the
// parent ends of the pipes over to the result.
func parentContinue(pid int, pipes *[3]pipeEnds) Result {
	return Result{
		Pid:    pid,
		Stdin:  pipes[stdinIdx].take(streamNames[stdinIdx]),
		Stdout: pipes[stdoutIdx].take(streamNames[stdoutIdx]),
		Stderr: pipes[stderrIdx].take(streamNames[stderrIdx]),
	}
}

// awaitExec blocks until the barrier's last write end is gone. A child
// that fails before or during exec writes its errno first.
func awaitExec(fd int) (syscall.Errno, bool) {
	var buf [4]byte
	n := 0
	for n < len(buf) {
		m, err := unix.Read(fd, buf[n:])
		if err == unix.EINTR {
			continue
		}
		if err != nil || m <= 0 {
			break
		}
		n += m
	}
	if n < len(buf) {
		return 0, false
	}
	return syscall.Errno(binary.NativeEndian.Uint32(buf[:])), true
}

func toErrno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EINVAL
}
