//go:build linux || darwin

package process

import (
	"bytes"
	"syscall"

	"golang.org/x/sys/unix"
)

// Getcwd writes the working directory into the first size bytes of buf
// and returns it. A buffer too small for the path fails with ERANGE.
func Getcwd(buf []byte, size int) (string, error) {
	if size < 0 || size > len(buf) {
		return "", syscall.EINVAL
	}
	if size == 0 {
		return "", syscall.ERANGE
	}
	if _, err := unix.Getcwd(buf[:size]); err != nil {
		return "", err
	}
	if i := bytes.IndexByte(buf[:size], 0); i >= 0 {
		return string(buf[:i]), nil
	}
	return string(buf[:size]), nil
}
