//go:build windows

package utils

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"unsafe"
)

const (
	PROCESS_TERMINATE         = 0x0001
	PROCESS_QUERY_INFORMATION = 0x0400
	STILL_ACTIVE              = 259
)

var (
	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess        = kernel32.NewProc("OpenProcess")
	procCloseHandle        = kernel32.NewProc("CloseHandle")
	procTerminateProcess   = kernel32.NewProc("TerminateProcess")
	procGetExitCodeProcess = kernel32.NewProc("GetExitCodeProcess")
)

// SetNewPG detaches the child into its own process group so it survives the
// parent exiting.
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// ShellCommand builds a command that runs the given command line through the
// shell.
func ShellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/C", command)
}

/**
 * List all running processes with their command lines
 * @returns {[]ProcessInfo} Process table entries
 * @returns {error} Returns error if process enumeration fails
 * @description
 * - Uses wmic CSV output: Node,CommandLine,ProcessId
 * - The command line may itself contain commas, so the pid is taken from the
 *   last field and the command from everything between the first and last
 */
func ListProcesses() ([]ProcessInfo, error) {
	cmd := exec.Command("wmic", "process", "get", "CommandLine,ProcessId", "/format:csv")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var procs []ProcessInfo
	lines := strings.Split(string(output), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Node,") {
			continue
		}
		first := strings.Index(line, ",")
		last := strings.LastIndex(line, ",")
		if first < 0 || last <= first {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(line[last+1:]))
		if err != nil {
			continue
		}
		procs = append(procs, ProcessInfo{
			Pid:     pid,
			Command: strings.TrimSpace(line[first+1 : last]),
		})
	}
	return procs, nil
}

// IsProcessRunning checks the process exit code via the Windows API.
func IsProcessRunning(pid int) (bool, error) {
	handle, _, _ := procOpenProcess.Call(
		uintptr(PROCESS_QUERY_INFORMATION),
		uintptr(0),
		uintptr(pid),
	)
	if handle == 0 {
		return false, nil
	}
	defer procCloseHandle.Call(handle)

	var exitCode uint32
	ret, _, err := procGetExitCodeProcess.Call(handle, uintptr(unsafe.Pointer(&exitCode)))
	if ret == 0 {
		return false, fmt.Errorf("failed to query process with PID %d: %v", pid, err)
	}
	return exitCode == STILL_ACTIVE, nil
}

// KillProcessByPID terminates the process with the given pid.
func KillProcessByPID(pid int) error {
	handle, _, err := procOpenProcess.Call(
		uintptr(PROCESS_TERMINATE),
		uintptr(0),
		uintptr(pid),
	)
	if handle == 0 {
		return fmt.Errorf("failed to open process with PID %d: %v", pid, err)
	}
	defer procCloseHandle.Call(handle)

	ret, _, err := procTerminateProcess.Call(handle, uintptr(1))
	if ret == 0 {
		return fmt.Errorf("failed to terminate process with PID %d: %v", pid, err)
	}
	return nil
}
