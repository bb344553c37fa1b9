package process

import "golang.org/x/sys/unix"

// WaitExited is not available; callers reap with WaitPid directly.
func WaitExited(pid int) error {
	return unix.ENOSYS
}
