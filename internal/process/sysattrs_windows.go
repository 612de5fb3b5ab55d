//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// setSessionAttrs detaches the child from the invoking console.
func setSessionAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | 0x08000000, // CREATE_NO_WINDOW
	}
}
