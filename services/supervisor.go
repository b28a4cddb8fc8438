package services

import (
	"fmt"
	"strings"
	"time"

	"tunman/internal/models"
)

// supervisorState drives the per-tunnel lifecycle. Transitions happen in one
// flat loop; the launch and monitor steps never call each other, so sustained
// instability cannot grow the call stack.
type supervisorState int

const (
	stateLaunching supervisorState = iota
	stateVerifying
	stateMonitoring
	stateRestarting
	stateTerminated
)

/**
 * TunnelSupervisor owns one tunnel's full lifecycle.
 * @description
 * - BUILDING happens at construction: SSH options and the launch command are
 *   assembled once, the definition and config never change afterwards
 * - run() walks LAUNCHING -> VERIFYING -> MONITORING, looping back to
 *   LAUNCHING on failure and to RESTARTING when a monitored tunnel dies
 * - One instance runs per tunnel on its own goroutine; blocking in any state
 *   only stalls this tunnel
 */
type TunnelSupervisor struct {
	reg *SupervisorRegistry
	def models.TunnelDefinition
	cfg *models.HostConnectionConfig

	signature  string
	forwarding string // ssh options + forwarding signature
	command    string // full shell command line
	handle     *SupervisedProcess
}

// newTunnelSupervisor performs the BUILDING step. The identity-file option is
// appended only when no custom options were configured; a configured password
// prepends the sshpass wrapper, which is why process identity later has to be
// re-established by signature instead of by child handle.
func newTunnelSupervisor(reg *SupervisorRegistry, def models.TunnelDefinition, cfg *models.HostConnectionConfig) *TunnelSupervisor {
	ts := &TunnelSupervisor{
		reg:       reg,
		def:       def,
		cfg:       cfg,
		signature: def.Signature(),
	}

	opts := cfg.SSHOpts
	if opts == "" && cfg.RemoteKey != "" {
		opts = "-i " + cfg.RemoteKey
	}
	ts.forwarding = strings.TrimSpace(opts + " " + ts.signature)

	command := ""
	if cfg.RemotePassword != "" {
		command = fmt.Sprintf("sshpass -p %q ", cfg.RemotePassword)
	}
	command += fmt.Sprintf("%s -M 0 -N -f %s -p %d %s@%s",
		reg.procRegistry.Binary(), ts.forwarding, cfg.RemotePort, cfg.RemoteUser, cfg.RemoteHost)
	ts.command = command

	return ts
}

// run drives the state machine until termination. The termination flag is
// re-read between states, so an in-flight launch or probe completes once and
// nothing further runs after it.
func (ts *TunnelSupervisor) run() {
	state := stateLaunching
	for {
		if ts.reg.IsTerminating() {
			state = stateTerminated
		}
		switch state {
		case stateLaunching:
			state = ts.launch()
		case stateVerifying:
			state = ts.verify()
		case stateMonitoring:
			state = ts.monitor()
		case stateRestarting:
			// A relaunch out of monitoring is a restart: it appends a
			// starts-history entry. Retries inside verification do not.
			if err := ts.reg.recordStart(ts.def, ts.signature, false); err != nil {
				ts.reg.log.Error(fmt.Sprintf("Abandoning supervision of %q: %v", ts.signature, err))
				return
			}
			IncrementRestart(ts.signature)
			state = stateLaunching
		case stateTerminated:
			return
		}
	}
}

// launch spawns the external process, tracks its handle and waits the fixed
// settle interval so the tunnel either reaches a stable state or fails
// visibly before verification.
func (ts *TunnelSupervisor) launch() supervisorState {
	ts.reg.log.Info("Spawning " + ts.command)

	handle, err := ts.reg.spawner.Spawn(ts.command)
	if err != nil {
		IncrementLaunchFailure(ts.signature)
		ts.reg.log.Error(fmt.Sprintf("Cannot spawn %s: %v", ts.command, err))
		time.Sleep(ts.reg.RetryBackoff)
		return stateLaunching
	}

	ts.handle = &SupervisedProcess{Signature: ts.signature, Handle: handle}
	if err := ts.reg.registerHandle(ts.handle); err != nil {
		// Lock timeout: continuing could leave an untracked process behind a
		// second spawn, so this supervisor aborts.
		ts.reg.log.Error(fmt.Sprintf("Abandoning supervision of %q: %v", ts.signature, err))
		return stateTerminated
	}

	time.Sleep(ts.reg.SettleDelay)
	return stateVerifying
}

// verify checks that the launched process survived the settle window. A dead
// process means launch failure: capture diagnostics, back off and retry
// indefinitely, since a transient blip at boot should eventually heal.
func (ts *TunnelSupervisor) verify() supervisorState {
	if !ts.reg.checker.IsProcessAlive(ts.signature) {
		stdout, stderr := ts.captureOutput()
		IncrementLaunchFailure(ts.signature)
		ts.reg.log.Error(fmt.Sprintf("Cannot spawn %s, stdout=%s, stderr=%s", ts.command, stdout, stderr))
		time.Sleep(ts.reg.RetryBackoff)
		return stateLaunching
	}

	pid := 0
	if proc := ts.reg.procRegistry.FindBySignature(ts.signature); proc != nil {
		pid = proc.Pid
	}
	ts.reg.log.Info(fmt.Sprintf("Process for %q survived initialization, got pid=%d", ts.signature, pid))
	return stateMonitoring
}

// captureOutput reads the dead child's streams for diagnostics. Best effort:
// capture errors are swallowed and replaced by empty output.
func (ts *TunnelSupervisor) captureOutput() (string, string) {
	if ts.handle == nil || ts.handle.Handle == nil {
		return "", ""
	}
	stdout, stderr, err := ts.handle.Handle.Output()
	if err != nil {
		return "", ""
	}
	return stdout, stderr
}

/**
 * monitor runs the periodic health loop
 * @returns {supervisorState} Next state: RESTARTING or TERMINATED
 * @description
 * - Each iteration sleeps the configured interval one tick at a time,
 *   checking the termination flag between ticks
 * - A dead OS process relaunches immediately with no extra delay
 * - A failed logical probe gets one grace re-check: if the tunnel healed in
 *   the meantime monitoring continues without a restart, otherwise the
 *   process is optionally killed and a relaunch begins
 */
func (ts *TunnelSupervisor) monitor() supervisorState {
	for {
		if !ts.carefulSleep(ts.cfg.Validate.Interval) {
			return stateTerminated
		}

		ts.reg.log.Debug(fmt.Sprintf("Running checks for signature %q", ts.signature))

		if !ts.reg.checker.IsProcessAlive(ts.signature) {
			ts.reg.log.Error(fmt.Sprintf("The tunnel process exited for signature %q", ts.signature))
			return stateRestarting
		}

		if ts.reg.checker.CheckTunnelAlive(ts.def, ts.cfg) {
			continue
		}

		IncrementHealthCheckFailure(ts.signature)
		ts.reg.log.Error(fmt.Sprintf("The health check %q failed for signature %q",
			ts.cfg.Validate.Method, ts.signature))

		grace := ts.cfg.Validate.WaitBeforeRestart
		time.Sleep(time.Duration(grace) * ts.reg.Tick)

		// A short blip may heal itself within the grace period.
		if grace > 0 && ts.reg.checker.CheckTunnelAlive(ts.def, ts.cfg) {
			ts.reg.log.Info(fmt.Sprintf("Tunnel %q recovered within the grace period", ts.signature))
			continue
		}

		if ts.cfg.Validate.KillOnFailure {
			if proc := ts.reg.procRegistry.FindBySignature(ts.signature); proc != nil {
				if err := ts.reg.procRegistry.KillPid(proc.Pid); err != nil {
					ts.reg.log.Debug(fmt.Sprintf("Kill of %d failed, proceeding with relaunch: %v", proc.Pid, err))
				}
			}
		}
		return stateRestarting
	}
}

// carefulSleep sleeps the given number of ticks, abandoning the wait as soon
// as termination is requested.
func (ts *TunnelSupervisor) carefulSleep(ticks int) bool {
	for i := 0; i < ticks; i++ {
		if ts.reg.IsTerminating() {
			ts.reg.log.Debug("Careful sleep: got termination signal")
			return false
		}
		time.Sleep(ts.reg.Tick)
	}
	return !ts.reg.IsTerminating()
}
