//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// tryReap performs a non-blocking wait on the child to detect an exit.
// It returns the exit code and true once the child has been reaped. Each
// child is reaped exactly once; callers record the result in the table.
// Signal-induced deaths report the negative signal number.
func tryReap(cmd *exec.Cmd) (int, bool) {
	if cmd == nil || cmd.Process == nil {
		return 0, false
	}
	var ws syscall.WaitStatus
	pid, err := syscall.Wait4(cmd.Process.Pid, &ws, syscall.WNOHANG, nil)
	if err != nil || pid == 0 {
		return 0, false
	}
	if ws.Signaled() {
		return -int(ws.Signal()), true
	}
	return ws.ExitStatus(), true
}
