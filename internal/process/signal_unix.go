//go:build !windows

package process

import (
	"errors"
	"syscall"
)

// terminate delivers SIGTERM to the process group (falling back to the
// single pid), asking for a graceful exit.
func terminate(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

// kill delivers SIGKILL to the process group.
func kill(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

// signalGroup signals -pid first so children spawned by a shell wrapper go
// down with the leader. A process that is already gone is not an error.
func signalGroup(pid int, sig syscall.Signal) error {
	err := syscall.Kill(-pid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		if err != nil {
			// Group gone; try the pid directly in case it was re-parented.
			if e := syscall.Kill(pid, sig); e != nil && !errors.Is(e, syscall.ESRCH) {
				return e
			}
		}
		return nil
	}
	if e := syscall.Kill(pid, sig); e != nil && !errors.Is(e, syscall.ESRCH) {
		return e
	}
	return nil
}
