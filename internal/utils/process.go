package utils

// ProcessInfo is one entry of the system process table: the pid and the full
// command line the process was started with.
type ProcessInfo struct {
	Pid     int
	Command string
}
