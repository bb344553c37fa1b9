package process

import "golang.org/x/sys/unix"

// WaitExited blocks until pid has terminated but leaves it unreaped, so
// the pid cannot be reused until WaitPid collects it. Interrupted waits
// are retried.
func WaitExited(pid int) error {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
