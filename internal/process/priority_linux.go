package process

// The raw getpriority syscall returns 20-nice so that it is never negative.
func niceFromRaw(raw int) int { return 20 - raw }
