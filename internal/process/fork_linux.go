//go:build linux && !s390x

package process

import (
	"syscall"
	"unsafe"
)

// The runtime must be told about a fork so it can block signals and stop
// stack growth around it. These are the hooks package syscall uses.

//go:linkname runtimeBeforeFork syscall.runtime_BeforeFork
func runtimeBeforeFork()

//go:linkname runtimeAfterFork syscall.runtime_AfterFork
func runtimeAfterFork()

//go:linkname runtimeAfterForkInChild syscall.runtime_AfterForkInChild
func runtimeAfterForkInChild()

// Everything between runtimeBeforeFork and runtimeAfterFork or
// childEntry runs with stack growth disabled, so each function on that
// path must be nosplit whether or not it is inlined.

// sysFork issues clone with only SIGCHLD, which behaves like fork.
//
//go:norace
//go:nosplit
func sysFork() (uintptr, syscall.Errno) {
	pid, _, errno := syscall.RawSyscall6(syscall.SYS_CLONE, uintptr(syscall.SIGCHLD), 0, 0, 0, 0, 0)
	return pid, errno
}

// forkExecChild forks under syscall.ForkLock. In the parent it returns the
// child's pid; the child continues in childEntry and never returns.
//
//go:norace
func forkExecChild(c *childPlan) (int, syscall.Errno) {
	syscall.ForkLock.Lock()
	runtimeBeforeFork()
	pid, errno := sysFork()
	if errno != 0 || pid != 0 {
		runtimeAfterFork()
		syscall.ForkLock.Unlock()
		if errno != 0 {
			return -1, errno
		}
		return int(pid), 0
	}

	runtimeAfterForkInChild()
	childEntry(c)
	return 0, 0
}

// childEntry rewires the standard streams, changes directory and execs.
// It runs in the forked child where stack growth and allocation are not
// allowed, so only raw system calls are made.
//
//go:norace
//go:nosplit
func childEntry(c *childPlan) {
	for i := 0; i < 3; i++ {
		if c.parent[i] >= 0 {
			syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(c.parent[i]), 0, 0)
		}
	}
	if c.barrierRead >= 0 {
		syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(c.barrierRead), 0, 0)
	}

	// Anything sitting on 0-2 would be clobbered by the dup3 pass below.
	next := c.nextfd
	if c.barrier >= 0 && c.barrier < 3 {
		_, _, e := syscall.RawSyscall(syscall.SYS_DUP3, uintptr(c.barrier), uintptr(next), syscall.O_CLOEXEC)
		if e != 0 {
			childExit(c, e)
		}
		syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(c.barrier), 0, 0)
		c.barrier = next
		next++
	}
	for i := 0; i < 3; i++ {
		fd := c.child[i]
		if fd < 0 || fd >= 3 {
			continue
		}
		_, _, e := syscall.RawSyscall(syscall.SYS_DUP3, uintptr(fd), uintptr(next), syscall.O_CLOEXEC)
		if e != 0 {
			childExit(c, e)
		}
		syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(fd), 0, 0)
		c.child[i] = next
		next++
	}

	// dup3 without flags leaves 0-2 inheritable across exec.
	for i := 0; i < 3; i++ {
		if c.child[i] < 0 {
			continue
		}
		_, _, e := syscall.RawSyscall(syscall.SYS_DUP3, uintptr(c.child[i]), uintptr(i), 0)
		if e != 0 {
			childExit(c, e)
		}
	}
	for i := 0; i < 3; i++ {
		if c.child[i] >= 0 {
			syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(c.child[i]), 0, 0)
		}
	}

	if c.dir != nil {
		_, _, e := syscall.RawSyscall(syscall.SYS_CHDIR, uintptr(unsafe.Pointer(c.dir)), 0, 0)
		if e != 0 {
			childExit(c, e)
		}
	}

	_, _, e := syscall.RawSyscall(syscall.SYS_EXECVE, uintptr(unsafe.Pointer(c.path)), c.argvp, c.envvp)
	childExit(c, e)
}

// childExit reports errno through the barrier and terminates the child
// with errno as its exit status.
//
//go:norace
//go:nosplit
func childExit(c *childPlan, e syscall.Errno) {
	code := uintptr(e)
	if code == 0 {
		code = 1
	}
	if c.barrier >= 0 {
		c.errno = uint32(code)
		syscall.RawSyscall(syscall.SYS_WRITE, uintptr(c.barrier), uintptr(unsafe.Pointer(&c.errno)), unsafe.Sizeof(c.errno))
	}
	for {
		syscall.RawSyscall(syscall.SYS_EXIT, code, 0, 0)
	}
}
