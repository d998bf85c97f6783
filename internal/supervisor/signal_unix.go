//go:build !windows

package supervisor

import "syscall"

const (
	sigTerminate = syscall.SIGTERM
	sigKill      = syscall.SIGKILL
)

// signalGroup delivers sig to the whole process group of pid. A group that
// has already vanished counts as success so stops stay idempotent.
func signalGroup(pid int, sig syscall.Signal) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		if err == syscall.ESRCH {
			return nil
		}
		return err
	}
	if err := syscall.Kill(-pgid, sig); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}
