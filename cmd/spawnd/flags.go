package main

// GlobalFlags holds the persistent flags shared by every subcommand.
// Instance identity is the (instance, base-dir) pair.
type GlobalFlags struct {
	Instance   string
	BaseDir    string
	ConfigPath string
}

// DaemonFlags holds flags for the daemon subcommand.
type DaemonFlags struct {
	Foreground bool
}

// StartFlags holds flags for the start subcommand.
type StartFlags struct {
	Name    string
	WorkDir string
}

// StopFlags holds flags for the stop subcommand.
type StopFlags struct {
	Force bool
}

// LogFlags holds flags for the log subcommand.
type LogFlags struct {
	Lines  int
	Follow bool
}
