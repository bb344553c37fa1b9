//go:build linux || darwin

package process

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Signal is a signal number. The named values are the platform's own.
type Signal int

const (
	SigHup  = Signal(unix.SIGHUP)
	SigInt  = Signal(unix.SIGINT)
	SigQuit = Signal(unix.SIGQUIT)
	SigKill = Signal(unix.SIGKILL)
	SigUsr1 = Signal(unix.SIGUSR1)
	SigUsr2 = Signal(unix.SIGUSR2)
	SigTerm = Signal(unix.SIGTERM)
	SigCont = Signal(unix.SIGCONT)
	SigStop = Signal(unix.SIGSTOP)
)

// maxSignal bounds the accepted range. Signal 0 only checks for existence.
const maxSignal = 64

func (s Signal) String() string {
	if name := unix.SignalName(syscall.Signal(s)); name != "" {
		return name
	}
	return "signal " + strconv.Itoa(int(s))
}

// ParseSignal accepts "TERM", "SIGTERM" or a decimal number.
func ParseSignal(s string) (Signal, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > maxSignal {
			return 0, fmt.Errorf("signal %d out of range", n)
		}
		return Signal(n), nil
	}
	if !strings.HasPrefix(s, "SIG") {
		s = "SIG" + s
	}
	sig := unix.SignalNum(s)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", s)
	}
	return Signal(sig), nil
}

// Kill sends sig to pid with the usual kill(2) pid semantics.
func Kill(pid int, sig Signal) error {
	if sig < 0 || sig > maxSignal {
		return syscall.EINVAL
	}
	return unix.Kill(pid, syscall.Signal(sig))
}

// Getpid returns the calling process id.
func Getpid() int { return unix.Getpid() }

// Getsid returns the session id of pid (0 for the caller).
func Getsid(pid int) (int, error) { return unix.Getsid(pid) }
