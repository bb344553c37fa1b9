package process

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// CPUMask is a fixed-capacity CPU set. Bit i set means CPU i is included.
type CPUMask struct {
	set unix.CPUSet
}

// NewCPUMask returns a mask with the given CPUs set.
func NewCPUMask(cpus ...int) (CPUMask, error) {
	var m CPUMask
	for _, cpu := range cpus {
		if err := m.Set(cpu); err != nil {
			return CPUMask{}, err
		}
	}
	return m, nil
}

// CPUMaskFromBits builds a mask from a 64-bit word, CPU i from bit i.
func CPUMaskFromBits(bits uint64) CPUMask {
	var m CPUMask
	for cpu := 0; cpu < 64; cpu++ {
		if bits&(1<<cpu) != 0 {
			m.set.Set(cpu)
		}
	}
	return m
}

// Bits returns CPUs 0-63 as a word. Higher CPUs are not represented.
func (m CPUMask) Bits() uint64 {
	var bits uint64
	for cpu := 0; cpu < 64; cpu++ {
		if m.set.IsSet(cpu) {
			bits |= 1 << cpu
		}
	}
	return bits
}

// Set adds cpu to the mask. CPUs outside 0..MaxCPUs-1 return EINVAL.
func (m *CPUMask) Set(cpu int) error {
	if cpu < 0 || cpu >= MaxCPUs {
		return syscall.EINVAL
	}
	m.set.Set(cpu)
	return nil
}

// Clear removes cpu from the mask; out-of-range CPUs are ignored.
func (m *CPUMask) Clear(cpu int) {
	if cpu >= 0 && cpu < MaxCPUs {
		m.set.Clear(cpu)
	}
}

// IsSet reports whether cpu is in the mask.
func (m CPUMask) IsSet(cpu int) bool {
	return cpu >= 0 && cpu < MaxCPUs && m.set.IsSet(cpu)
}

// Count returns the number of CPUs in the mask.
func (m CPUMask) Count() int { return m.set.Count() }

// List returns the set CPUs in ascending order.
func (m CPUMask) List() []int {
	var cpus []int
	for cpu := 0; cpu < MaxCPUs; cpu++ {
		if m.set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus
}

// String formats the mask as a kernel-style CPU list ("0-3,5").
func (m CPUMask) String() string {
	cpus := m.List()
	var parts []string
	for i := 0; i < len(cpus); {
		j := i
		for j+1 < len(cpus) && cpus[j+1] == cpus[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, strconv.Itoa(cpus[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", cpus[i], cpus[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

// SetAffinity restricts pid (0 for the calling thread) to the CPUs in m.
func SetAffinity(pid int, m CPUMask) error {
	return unix.SchedSetaffinity(pid, &m.set)
}

// GetAffinity returns the CPUs pid (0 for the calling thread) may run on.
func GetAffinity(pid int) (CPUMask, error) {
	var m CPUMask
	if err := unix.SchedGetaffinity(pid, &m.set); err != nil {
		return CPUMask{}, err
	}
	return m, nil
}
