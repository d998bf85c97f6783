//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr creates the child in its own process group so
// group-wide termination has something to address.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
