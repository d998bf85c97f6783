//go:build windows

package instance

import "os"

// pidAlive is a best-effort probe; Windows has no signal 0, so finding the
// process is taken as alive.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	defer func() { _ = p.Release() }()
	return true
}

func terminatePID(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	defer func() { _ = p.Release() }()
	return p.Kill()
}

func killPID(pid int) error {
	return terminatePID(pid)
}
