package process

import "syscall"

// Platform-specific RLIMIT constants for darwin. RLIMIT_RSS is an alias of
// RLIMIT_AS there.
var nativeResources = [...]int{
	RLimitCPU:     0,
	RLimitFSize:   1,
	RLimitData:    2,
	RLimitStack:   3,
	RLimitCore:    4,
	RLimitAS:      5,
	RLimitRSS:     5,
	RLimitMemlock: 6,
	RLimitNProc:   7,
	RLimitNOFile:  8,
}

// RLIM_INFINITY on darwin is 2^63-1, not 2^64-1.
const nativeRLimInfinity = 1<<63 - 1

// GetProcessRLimit reads the limit of the calling process. Darwin has no
// prlimit, so any other pid is rejected.
func GetProcessRLimit(pid int, r Resource) (RLimit, error) {
	if pid != 0 && pid != Getpid() {
		return RLimit{}, syscall.ENOSYS
	}
	return GetRLimit(r)
}

// SetProcessRLimit sets the limit of the calling process only.
func SetProcessRLimit(pid int, r Resource, l RLimit) error {
	if pid != 0 && pid != Getpid() {
		return syscall.ENOSYS
	}
	return SetRLimit(r, l)
}
