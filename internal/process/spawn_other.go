//go:build !linux || s390x

package process

import "syscall"

// spawnProcess is only implemented on Linux, where the child can be driven
// with raw clone, dup3 and execve calls.
func spawnProcess(req *Request) (Result, error) {
	return absentResult(), &SpawnError{Op: "fork", Err: syscall.ENOSYS}
}
