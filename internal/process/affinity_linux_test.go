package process

import (
	"reflect"
	"syscall"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

func TestCPUMaskCapacityMatchesKernelSet(t *testing.T) {
	var set unix.CPUSet
	if bits := int(unsafe.Sizeof(set)) * 8; bits != MaxCPUs {
		t.Fatalf("unix.CPUSet holds %d CPUs, MaxCPUs = %d", bits, MaxCPUs)
	}
}

func TestCPUMaskSetAndClear(t *testing.T) {
	m, err := NewCPUMask(0, 2, 5, MaxCPUs-1)
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", m.Count())
	}
	if !m.IsSet(MaxCPUs - 1) {
		t.Fatal("highest CPU not set")
	}
	m.Clear(2)
	if m.IsSet(2) {
		t.Fatal("CPU 2 still set after Clear")
	}
	if got := m.List(); !reflect.DeepEqual(got, []int{0, 5, MaxCPUs - 1}) {
		t.Fatalf("List() = %v", got)
	}
}

func TestCPUMaskRejectsOutOfRange(t *testing.T) {
	if _, err := NewCPUMask(MaxCPUs); err != syscall.EINVAL {
		t.Fatalf("NewCPUMask(MaxCPUs) = %v, want EINVAL", err)
	}
	if _, err := NewCPUMask(-1); err != syscall.EINVAL {
		t.Fatalf("NewCPUMask(-1) = %v, want EINVAL", err)
	}
	var m CPUMask
	if m.IsSet(-1) || m.IsSet(MaxCPUs) {
		t.Fatal("IsSet out of range must be false")
	}
}

func TestCPUMaskBitsRoundTrip(t *testing.T) {
	for _, bits := range []uint64{0, 1, 0b100101, 1 << 63, ^uint64(0)} {
		if got := CPUMaskFromBits(bits).Bits(); got != bits {
			t.Fatalf("round trip of %#x = %#x", bits, got)
		}
	}
}

func TestCPUMaskString(t *testing.T) {
	m, _ := NewCPUMask(0, 1, 2, 3, 5, 7, 8)
	if got := m.String(); got != "0-3,5,7-8" {
		t.Fatalf("String() = %q", got)
	}
	var empty CPUMask
	if got := empty.String(); got != "" {
		t.Fatalf("empty String() = %q", got)
	}
}

func TestGetAffinitySelf(t *testing.T) {
	m, err := GetAffinity(0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() == 0 {
		t.Fatal("calling thread has an empty affinity mask")
	}
}
