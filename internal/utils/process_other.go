//go:build !windows && !unix && !linux && !darwin

package utils

import (
	"os/exec"
)

// Default implementations for unsupported build targets.

func SetNewPG(cmd *exec.Cmd) {
}

func ShellCommand(command string) *exec.Cmd {
	panic("ShellCommand not implemented for this platform")
}

func ListProcesses() ([]ProcessInfo, error) {
	panic("ListProcesses not implemented for this platform")
}

func IsProcessRunning(pid int) (bool, error) {
	panic("IsProcessRunning not implemented for this platform")
}

func KillProcessByPID(pid int) error {
	panic("KillProcessByPID not implemented for this platform")
}
