package services

import (
	"bytes"
	"errors"
	"os/exec"
	"sync/atomic"

	"tunman/internal/utils"
)

// ProcessHandle is one OS process spawned by a supervisor. The handle is only
// the direct child: when the launch command re-executes itself through a
// wrapper the real tunnel process must be rediscovered through the
// ProcessRegistry.
type ProcessHandle interface {
	// Pid of the direct child.
	Pid() int
	// Exited polls for exit without blocking.
	Exited() bool
	// Kill terminates the direct child.
	Kill() error
	// Output returns the captured stdout/stderr of an exited process.
	Output() (stdout, stderr string, err error)
}

// ProcessSpawner launches a shell command line asynchronously.
type ProcessSpawner interface {
	Spawn(command string) (ProcessHandle, error)
}

type shellSpawner struct{}

// NewShellSpawner returns the production spawner: the command line runs
// through the shell in its own process group, stdout/stderr are captured for
// launch-failure diagnostics.
func NewShellSpawner() ProcessSpawner {
	return shellSpawner{}
}

func (shellSpawner) Spawn(command string) (ProcessHandle, error) {
	cmd := utils.ShellCommand(command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	utils.SetNewPG(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	h := &shellHandle{cmd: cmd, stdout: &stdout, stderr: &stderr}
	go func() {
		cmd.Wait()
		h.exited.Store(true)
	}()
	return h, nil
}

type shellHandle struct {
	cmd    *exec.Cmd
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	exited atomic.Bool
}

func (h *shellHandle) Pid() int {
	return h.cmd.Process.Pid
}

func (h *shellHandle) Exited() bool {
	return h.exited.Load()
}

func (h *shellHandle) Kill() error {
	return h.cmd.Process.Kill()
}

// Output is valid only after exit; the buffers are still being written while
// the process runs.
func (h *shellHandle) Output() (string, string, error) {
	if !h.exited.Load() {
		return "", "", errors.New("process has not exited")
	}
	return h.stdout.String(), h.stderr.String(), nil
}
