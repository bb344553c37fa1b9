package process

import "golang.org/x/sys/unix"

// Indexed by Resource.
var nativeResources = [...]int{
	RLimitCPU:     unix.RLIMIT_CPU,
	RLimitFSize:   unix.RLIMIT_FSIZE,
	RLimitData:    unix.RLIMIT_DATA,
	RLimitStack:   unix.RLIMIT_STACK,
	RLimitCore:    unix.RLIMIT_CORE,
	RLimitAS:      unix.RLIMIT_AS,
	RLimitRSS:     unix.RLIMIT_RSS,
	RLimitMemlock: unix.RLIMIT_MEMLOCK,
	RLimitNProc:   unix.RLIMIT_NPROC,
	RLimitNOFile:  unix.RLIMIT_NOFILE,
}

const nativeRLimInfinity = ^uint64(0)

// GetProcessRLimit reads pid's limit for r with prlimit(2). Pid 0 means
// the calling process.
func GetProcessRLimit(pid int, r Resource) (RLimit, error) {
	res, ok := r.native()
	if !ok {
		return RLimit{}, unix.EINVAL
	}
	var lim unix.Rlimit
	if err := unix.Prlimit(pid, res, nil, &lim); err != nil {
		return RLimit{}, err
	}
	return RLimit{Cur: fromNativeLimit(lim.Cur), Max: fromNativeLimit(lim.Max)}, nil
}

// SetProcessRLimit sets pid's limit for r with prlimit(2).
func SetProcessRLimit(pid int, r Resource, l RLimit) error {
	res, ok := r.native()
	if !ok {
		return unix.EINVAL
	}
	lim := unix.Rlimit{Cur: toNativeLimit(l.Cur), Max: toNativeLimit(l.Max)}
	return unix.Prlimit(pid, res, &lim, nil)
}
