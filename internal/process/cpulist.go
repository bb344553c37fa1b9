package process

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxCPUs is the number of CPUs a CPUMask can address, the kernel's
// CPU_SETSIZE.
const MaxCPUs = 1024

// ParseCPUList parses a kernel-style CPU list such as "0,2,4-7".
func ParseCPUList(s string) ([]int, error) {
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid cpu %q", part)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(hi); err != nil || last < first {
				return nil, fmt.Errorf("invalid cpu range %q", part)
			}
		}
		if first < 0 || last >= MaxCPUs {
			return nil, fmt.Errorf("cpu %q out of range 0-%d", part, MaxCPUs-1)
		}
		for cpu := first; cpu <= last; cpu++ {
			cpus = append(cpus, cpu)
		}
	}
	sort.Ints(cpus)
	return cpus, nil
}
