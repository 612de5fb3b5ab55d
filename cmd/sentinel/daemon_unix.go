//go:build !windows

package main

import "syscall"

// daemonSysProcAttr detaches the daemon into its own session so it survives
// the terminal that launched it.
func daemonSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

func terminateDaemon(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}
