//go:build unix || linux || darwin

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// SetNewPG puts the child in its own process group so it keeps running after
// the parent exits.
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// ShellCommand builds a command that runs the given command line through the
// shell. Tunnel launches go through the shell because the command string may
// carry a credential-injection wrapper prefix.
func ShellCommand(command string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", command)
}

/**
 * List all running processes with their command lines
 * @returns {[]ProcessInfo} Process table entries
 * @returns {error} Returns error if process enumeration fails
 * @description
 * - Uses ps output format compatible with both Linux and Darwin
 * - The command field is used instead of comm to avoid truncated names
 * - Skips the header line and unparsable rows
 */
func ListProcesses() ([]ProcessInfo, error) {
	cmd := exec.Command("ps", "-e", "-o", "pid,command")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var procs []ProcessInfo
	lines := strings.Split(string(output), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "PID") {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		procs = append(procs, ProcessInfo{
			Pid:     pid,
			Command: strings.TrimSpace(fields[1]),
		})
	}
	return procs, nil
}

// IsProcessRunning checks process existence with signal 0.
func IsProcessRunning(pid int) (bool, error) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("failed to find process with PID %d: %w", pid, err)
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false, nil
	}
	return true, nil
}

/**
 * Kill process by PID, gracefully when possible
 * @param {int} pid - Process ID to kill
 * @returns {error} Returns error if the process could not be terminated
 * @description
 * - Sends SIGTERM first and polls up to one second for the process to exit
 * - Falls back to SIGKILL when the process ignores SIGTERM
 */
func KillProcessByPID(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process with PID %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err == nil {
		for i := 0; i < 10; i++ {
			if err := process.Signal(syscall.Signal(0)); err != nil {
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}
	}

	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process with PID %d: %w", pid, err)
	}
	return nil
}
