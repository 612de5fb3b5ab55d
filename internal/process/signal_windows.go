//go:build windows

package process

import "os"

// Windows has no SIGTERM delivery for unrelated processes; both paths kill.

func terminate(pid int) error { return kill(pid) }

func kill(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	_ = p.Kill()
	return nil
}
