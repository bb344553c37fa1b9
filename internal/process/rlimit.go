//go:build linux || darwin

package process

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Resource names a resource limit independently of the platform numbering.
type Resource int

const (
	RLimitCPU Resource = iota
	RLimitFSize
	RLimitData
	RLimitStack
	RLimitCore
	RLimitAS
	RLimitRSS
	RLimitMemlock
	RLimitNProc
	RLimitNOFile
)

var resourceNames = map[string]Resource{
	"cpu":     RLimitCPU,
	"fsize":   RLimitFSize,
	"data":    RLimitData,
	"stack":   RLimitStack,
	"core":    RLimitCore,
	"as":      RLimitAS,
	"rss":     RLimitRSS,
	"memlock": RLimitMemlock,
	"nproc":   RLimitNProc,
	"nofile":  RLimitNOFile,
}

// Resources lists every known resource in order.
func Resources() []Resource {
	return []Resource{
		RLimitCPU, RLimitFSize, RLimitData, RLimitStack, RLimitCore,
		RLimitAS, RLimitRSS, RLimitMemlock, RLimitNProc, RLimitNOFile,
	}
}

func (r Resource) String() string {
	for name, res := range resourceNames {
		if res == r {
			return name
		}
	}
	return "Resource(" + strconv.Itoa(int(r)) + ")"
}

// native returns the platform RLIMIT_* value for r.
func (r Resource) native() (int, bool) {
	if r < 0 || int(r) >= len(nativeResources) {
		return -1, false
	}
	return nativeResources[r], true
}

// ParseResource accepts "nofile", "NOFILE" or "RLIMIT_NOFILE".
func ParseResource(s string) (Resource, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "rlimit_")
	r, ok := resourceNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown resource limit %q", s)
	}
	return r, nil
}

// RLimInfinity is the portable "unlimited" value. It is translated to the
// platform's RLIM_INFINITY, which is not the same everywhere.
const RLimInfinity = math.MaxUint64

// RLimit is a soft/hard limit pair.
type RLimit struct {
	Cur uint64 // soft limit
	Max uint64 // hard limit
}

// Limit binds an RLimit to the resource it applies to.
type Limit struct {
	Resource Resource
	RLimit
}

func toNativeLimit(v uint64) uint64 {
	if v == RLimInfinity || v >= nativeRLimInfinity {
		return nativeRLimInfinity
	}
	return v
}

func fromNativeLimit(v uint64) uint64 {
	if v >= nativeRLimInfinity {
		return RLimInfinity
	}
	return v
}

// GetRLimit reads the calling process's limit for r.
func GetRLimit(r Resource) (RLimit, error) {
	res, ok := r.native()
	if !ok {
		return RLimit{}, syscall.EINVAL
	}
	var lim unix.Rlimit
	if err := unix.Getrlimit(res, &lim); err != nil {
		return RLimit{}, err
	}
	return RLimit{Cur: fromNativeLimit(lim.Cur), Max: fromNativeLimit(lim.Max)}, nil
}

// SetRLimit sets the calling process's limit for r. Children spawned
// afterwards inherit it.
func SetRLimit(r Resource, l RLimit) error {
	res, ok := r.native()
	if !ok {
		return syscall.EINVAL
	}
	lim := unix.Rlimit{Cur: toNativeLimit(l.Cur), Max: toNativeLimit(l.Max)}
	return unix.Setrlimit(res, &lim)
}

// ApplyRLimits sets each limit on the calling process.
func ApplyRLimits(limits []Limit) error {
	for _, l := range limits {
		if err := SetRLimit(l.Resource, l.RLimit); err != nil {
			return fmt.Errorf("setrlimit %s: %w", l.Resource, err)
		}
	}
	return nil
}

// ParseLimits converts a name -> "soft:hard" map into limits, sorted by
// resource so the order of application is stable.
func ParseLimits(m map[string]string) ([]Limit, error) {
	limits := make([]Limit, 0, len(m))
	for name, v := range m {
		res, err := ParseResource(name)
		if err != nil {
			return nil, err
		}
		rl, err := ParseRLimit(v)
		if err != nil {
			return nil, fmt.Errorf("rlimit %s: %w", name, err)
		}
		limits = append(limits, Limit{Resource: res, RLimit: rl})
	}
	sort.Slice(limits, func(i, j int) bool { return limits[i].Resource < limits[j].Resource })
	return limits, nil
}

// ParseRLimit parses "soft:hard" or "value" into a limit pair.
func ParseRLimit(s string) (RLimit, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) == 2 {
		c, err := parseLimitValue(parts[0])
		if err != nil {
			return RLimit{}, err
		}
		m, err := parseLimitValue(parts[1])
		if err != nil {
			return RLimit{}, err
		}
		return RLimit{Cur: c, Max: m}, nil
	}

	val, err := parseLimitValue(parts[0])
	if err != nil {
		return RLimit{}, err
	}
	return RLimit{Cur: val, Max: val}, nil
}

func parseLimitValue(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "unlimited") || strings.EqualFold(s, "infinity") || s == "-1" {
		return RLimInfinity, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid limit value %q", s)
	}
	return v, nil
}

// FormatLimitValue renders a limit the way ParseRLimit reads it.
func FormatLimitValue(v uint64) string {
	if v == RLimInfinity {
		return "unlimited"
	}
	return strconv.FormatUint(v, 10)
}
