//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setSessionAttrs makes the child the leader of a new session so that the
// supervisor's own termination or terminal closure does not propagate to it.
func setSessionAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
