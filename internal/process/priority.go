//go:build linux || darwin

package process

import "golang.org/x/sys/unix"

// PriorityWhich selects what the who argument of Get/SetPriority names.
type PriorityWhich int

const (
	PrioProcess PriorityWhich = unix.PRIO_PROCESS
	PrioGroup   PriorityWhich = unix.PRIO_PGRP
	PrioUser    PriorityWhich = unix.PRIO_USER
)

// GetPriority returns the nice value (-20..19) of the target. The error is
// returned separately from the value, so a nice value of -1 is a valid
// result and not a failure indicator.
func GetPriority(which PriorityWhich, who int) (int, error) {
	raw, err := unix.Getpriority(int(which), who)
	if err != nil {
		return 0, err
	}
	return niceFromRaw(raw), nil
}

// SetPriority sets the nice value of the target. Lowering it needs
// privileges.
func SetPriority(which PriorityWhich, who, nice int) error {
	return unix.Setpriority(int(which), who, nice)
}
