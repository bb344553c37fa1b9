package runner

import "github.com/kahiteam/forkexec/internal/process"

func setAffinity(pid int, cpus []int) error {
	mask, err := process.NewCPUMask(cpus...)
	if err != nil {
		return err
	}
	return process.SetAffinity(pid, mask)
}
