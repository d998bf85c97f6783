//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// tryReap probes the child without blocking. Windows has no wait4, so the
// exit code is read from the process object once it is no longer active.
func tryReap(cmd *exec.Cmd) (int, bool) {
	if cmd == nil || cmd.Process == nil {
		return 0, false
	}
	p, err := syscall.OpenProcess(syscall.PROCESS_QUERY_INFORMATION, false, uint32(cmd.Process.Pid))
	if err != nil {
		// Process object is gone entirely.
		return 0, true
	}
	defer func() { _ = syscall.CloseHandle(p) }()
	var code uint32
	if err := syscall.GetExitCodeProcess(p, &code); err != nil {
		return 0, false
	}
	const stillActive = 259
	if code == stillActive {
		return 0, false
	}
	return int(code), true
}
