package process

// libc getpriority already returns the nice value. A -1 here may carry a
// stale errno from libc; there is no way to reset errno from Go.
func niceFromRaw(raw int) int { return raw }
