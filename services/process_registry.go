package services

import (
	"os"
	"strings"

	"tunman/internal/logger"
	"tunman/internal/utils"
)

// SupervisedProcess pairs a spawned process handle with the forwarding
// signature it was launched for. Only handles spawned by this supervisor end
// up in the registry's process list.
type SupervisedProcess struct {
	Signature string
	Handle    ProcessHandle
}

/**
 * ProcessRegistry identifies tunnel processes in the OS process table.
 * @description
 * - Identity is a substring match on the command line: the forwarding
 *   signature plus the tunnel binary marker. The direct child handle is not
 *   trusted because the launch command may re-execute the tunnel through a
 *   credential-injection wrapper, so the real process has to be rediscovered.
 * - The process lister and the kill primitive are injectable for tests.
 */
type ProcessRegistry struct {
	binary string
	list   func() ([]utils.ProcessInfo, error)
	kill   func(pid int) error
	log    logger.Logger
}

// NewProcessRegistry creates a registry recognising processes of the given
// tunnel binary.
func NewProcessRegistry(binary string, log logger.Logger) *ProcessRegistry {
	return &ProcessRegistry{
		binary: binary,
		list:   utils.ListProcesses,
		kill:   utils.KillProcessByPID,
		log:    log,
	}
}

// Binary returns the tunnel binary marker.
func (pr *ProcessRegistry) Binary() string {
	return pr.binary
}

/**
 * Find the canonical tunnel process for a signature
 * @param {string} signature - Forwarding signature to look for
 * @returns {*utils.ProcessInfo} First process whose command line contains both
 *          the signature and the tunnel binary marker, nil when none runs
 * @description
 * - No match is a normal outcome, not an error; enumeration failures are
 *   logged and also reported as no match
 */
func (pr *ProcessRegistry) FindBySignature(signature string) *utils.ProcessInfo {
	procs, err := pr.list()
	if err != nil {
		pr.log.Error("failed to enumerate processes: " + err.Error())
		return nil
	}
	for i := range procs {
		if strings.Contains(procs[i].Command, signature) && strings.Contains(procs[i].Command, pr.binary) {
			return &procs[i]
		}
	}
	return nil
}

// CountMatching counts every running process whose command line contains the
// signature.
func (pr *ProcessRegistry) CountMatching(signature string) int {
	procs, err := pr.list()
	if err != nil {
		return 0
	}
	count := 0
	for i := range procs {
		if strings.Contains(procs[i].Command, signature) {
			count++
		}
	}
	return count
}

/**
 * Kill every process matching a signature
 * @param {string} signature - Forwarding signature to sweep for
 * @returns {int} Number of processes killed
 * @description
 * - Sweeps the whole process table, not only processes this supervisor
 *   spawned, so orphans and externally started duplicates are cleaned up too
 * - Kill failures are logged and skipped; a target that already exited is
 *   expected during cleanup
 */
func (pr *ProcessRegistry) KillAllMatching(signature string) int {
	procs, err := pr.list()
	if err != nil {
		pr.log.Error("failed to enumerate processes: " + err.Error())
		return 0
	}
	self := os.Getpid()
	killed := 0
	for i := range procs {
		if procs[i].Pid == self || !strings.Contains(procs[i].Command, signature) {
			continue
		}
		if err := pr.kill(procs[i].Pid); err != nil {
			pr.log.Debug("kill target already gone: " + err.Error())
			continue
		}
		killed++
	}
	return killed
}

// KillPid kills one process by pid; absence is not an error.
func (pr *ProcessRegistry) KillPid(pid int) error {
	return pr.kill(pid)
}

/**
 * Drop handles whose process has already exited
 * @param {[]*SupervisedProcess} handles - Caller-supplied handle list
 * @returns {[]*SupervisedProcess} The list without dead handles
 * @description
 * - Memory hygiene only: frees bookkeeping for processes that are gone so
 *   shutdown does not try to kill them again
 * - A handle removed concurrently is simply absent from the result
 */
func (pr *ProcessRegistry) ReapDeadHandles(handles []*SupervisedProcess) []*SupervisedProcess {
	alive := handles[:0]
	for _, h := range handles {
		if h == nil || h.Handle == nil {
			continue
		}
		if h.Handle.Exited() {
			pr.log.Debug("reaped dead process handle for " + h.Signature)
			continue
		}
		alive = append(alive, h)
	}
	return alive
}
