//go:build linux || darwin

package process

import "golang.org/x/sys/unix"

// WaitOptions is a waitpid options bitmask.
type WaitOptions int

const (
	WNoHang   WaitOptions = unix.WNOHANG
	WUntraced WaitOptions = unix.WUNTRACED
)

// WaitStatus is the raw status word filled in by waitpid. The methods
// decode it the way the POSIX W* macros do.
type WaitStatus int32

func (s WaitStatus) Exited() bool   { return s&0x7f == 0 }
func (s WaitStatus) Signaled() bool { return s&0x7f != 0x7f && s&0x7f != 0 }
func (s WaitStatus) Stopped() bool  { return s&0xff == 0x7f }
func (s WaitStatus) CoreDump() bool { return s.Signaled() && s&0x80 != 0 }

// ExitStatus returns the exit code, or -1 if the child did not exit.
func (s WaitStatus) ExitStatus() int {
	if !s.Exited() {
		return -1
	}
	return int(s>>8) & 0xff
}

// TermSig returns the terminating signal, or -1 if not signaled.
func (s WaitStatus) TermSig() Signal {
	if !s.Signaled() {
		return -1
	}
	return Signal(s & 0x7f)
}

// StopSignal returns the signal that stopped the child, or -1.
func (s WaitStatus) StopSignal() Signal {
	if !s.Stopped() {
		return -1
	}
	return Signal(s>>8) & 0xff
}

// WaitPid waits for pid (or a group, per waitpid(2) pid rules) to change
// state. Interrupted waits are retried. With WNoHang and no change, the
// returned pid is 0.
func WaitPid(pid int, opts WaitOptions) (int, WaitStatus, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, int(opts), nil)
		if err == unix.EINTR {
			continue
		}
		return wpid, WaitStatus(ws), err
	}
}
