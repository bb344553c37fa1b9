//go:build !linux

package runner

import "errors"

func setAffinity(pid int, cpus []int) error {
	return errors.New("cpu affinity is not supported on this platform")
}
