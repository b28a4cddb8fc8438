package services

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tunman/internal/logger"
	"tunman/internal/models"
)

// DefaultLockTimeout bounds how long any operation may wait for the shared
// registry lock. Blocking longer means the whole supervision fleet is stuck,
// so the wait surfaces as a fatal error instead of deadlocking.
const DefaultLockTimeout = 60 * time.Second

// ErrLockTimeout is returned when the registry lock cannot be acquired
// within the budget.
var ErrLockTimeout = errors.New("timed out waiting for registry lock")

/**
 * SupervisorRegistry coordinates all tunnel supervisors.
 * @description
 * - Owns the shared mutable state: known signatures, spawned process handles
 *   and the per-definition restart history
 * - All three collections are mutated only under one bounded-wait lock; the
 *   critical sections are short appends/lookups, never blocking calls
 * - The termination flag is read lock-free at every supervisor sleep point;
 *   at worst one extra iteration runs before a supervisor observes it
 * - Timing knobs are exported so tests can compress time; production uses
 *   the defaults (10s settle, 15s retry back-off, 1s tick)
 */
type SupervisorRegistry struct {
	SettleDelay  time.Duration // fixed wait between launch and verification
	RetryBackoff time.Duration // wait between failed launch attempts
	Tick         time.Duration // one unit of the cancellable sleep
	LockTimeout  time.Duration

	procRegistry *ProcessRegistry
	checker      HealthChecker
	spawner      ProcessSpawner
	log          logger.Logger

	lock          chan struct{} // 1-slot semaphore, acquisition bounded by LockTimeout
	signatures    []string
	procs         []*SupervisedProcess
	startsHistory map[models.TunnelDefinition][]time.Time
	terminating   atomic.Bool
	wg            sync.WaitGroup
}

// NewSupervisorRegistry wires the registry to its collaborators. The
// supervisors it spawns share the process registry, health checker, spawner
// and logger.
func NewSupervisorRegistry(procs *ProcessRegistry, checker HealthChecker, spawner ProcessSpawner, log logger.Logger) *SupervisorRegistry {
	return &SupervisorRegistry{
		SettleDelay:   10 * time.Second,
		RetryBackoff:  15 * time.Second,
		Tick:          time.Second,
		LockTimeout:   DefaultLockTimeout,
		procRegistry:  procs,
		checker:       checker,
		spawner:       spawner,
		log:           log,
		lock:          make(chan struct{}, 1),
		startsHistory: make(map[models.TunnelDefinition][]time.Time),
	}
}

func (sr *SupervisorRegistry) acquire() error {
	select {
	case sr.lock <- struct{}{}:
		return nil
	case <-time.After(sr.LockTimeout):
		return ErrLockTimeout
	}
}

func (sr *SupervisorRegistry) release() {
	<-sr.lock
}

// IsTerminating reports whether the global shutdown sequence has begun.
func (sr *SupervisorRegistry) IsTerminating() bool {
	return sr.terminating.Load()
}

/**
 * Spawn starts supervising one tunnel definition
 * @param {models.TunnelDefinition} def - Forwarding to supervise
 * @param {*models.HostConnectionConfig} cfg - Host connection settings
 * @returns {error} Lock-timeout error; launching itself never fails here
 * @description
 * - Builds the launch signature and command, registers the signature and the
 *   first starts-history entry under the lock, then hands off to the
 *   supervisor loop on its own goroutine outside the lock
 * - Launch failures are handled inside the loop by indefinite retry; they
 *   never surface through Spawn
 */
func (sr *SupervisorRegistry) Spawn(def models.TunnelDefinition, cfg *models.HostConnectionConfig) error {
	sup := newTunnelSupervisor(sr, def, cfg)
	sr.log.Info("Created SSH args: " + sup.forwarding)

	if err := sr.recordStart(def, sup.signature, true); err != nil {
		return err
	}

	sr.wg.Add(1)
	go func() {
		defer sr.wg.Done()
		sup.run()
	}()
	return nil
}

// recordStart appends a spawn timestamp for the definition; withSignature
// also registers the signature, which happens once per Spawn. Relaunches
// from the monitoring loop append history only, launch retries inside
// verification append nothing.
func (sr *SupervisorRegistry) recordStart(def models.TunnelDefinition, signature string, withSignature bool) error {
	if err := sr.acquire(); err != nil {
		return fmt.Errorf("cannot record start of %q: %w", signature, err)
	}
	defer sr.release()

	if withSignature {
		sr.signatures = append(sr.signatures, signature)
	}
	sr.startsHistory[def] = append(sr.startsHistory[def], time.Now())
	return nil
}

// registerHandle tracks a freshly spawned process; dead handles are reaped
// in the same critical section to keep the list from growing.
func (sr *SupervisorRegistry) registerHandle(h *SupervisedProcess) error {
	if err := sr.acquire(); err != nil {
		return fmt.Errorf("cannot register process handle of %q: %w", h.Signature, err)
	}
	defer sr.release()

	sr.procs = sr.procRegistry.ReapDeadHandles(sr.procs)
	sr.procs = append(sr.procs, h)
	return nil
}

/**
 * GetStats returns a status snapshot for the given definitions
 * @param {[]models.TunnelDefinition} definitions - Definitions to report on
 * @returns {*models.TunnelStats} Per-definition and global status
 * @returns {error} Lock-timeout error
 * @description
 * - Histories and counters are copied under the lock; the per-definition
 *   process lookup scans the OS process table outside the lock because it
 *   blocks
 * - restarts_count is max(len(starts_history)-1, 0): the first spawn is not
 *   a restart
 * - Safe to call concurrently with spawns and shutdown
 */
func (sr *SupervisorRegistry) GetStats(definitions []models.TunnelDefinition) (*models.TunnelStats, error) {
	if err := sr.acquire(); err != nil {
		return nil, fmt.Errorf("cannot snapshot registry state: %w", err)
	}
	signatures := append([]string(nil), sr.signatures...)
	procsCount := len(sr.procs)
	histories := make(map[models.TunnelDefinition][]time.Time, len(definitions))
	for _, def := range definitions {
		histories[def] = append([]time.Time(nil), sr.startsHistory[def]...)
	}
	sr.release()

	status := make(map[string]models.DefinitionStatus, len(definitions))
	for _, def := range definitions {
		signature := def.Signature()
		history := histories[def]
		restarts := len(history) - 1
		if restarts < 0 {
			restarts = 0
		}

		entry := models.DefinitionStatus{
			StartsHistory: history,
			RestartsCount: restarts,
		}
		if proc := sr.procRegistry.FindBySignature(signature); proc != nil {
			entry.Pid = proc.Pid
			entry.IsAlive = true
		}
		status[signature] = entry
	}

	return &models.TunnelStats{
		Signatures:    signatures,
		Status:        status,
		ProcsCount:    procsCount,
		IsTerminating: sr.terminating.Load(),
	}, nil
}

/**
 * Shutdown terminates the whole supervision fleet
 * @returns {error} Lock-timeout error
 * @description
 * - Sets the termination flag first so every supervisor abandons its loop at
 *   the next cancellable-sleep tick
 * - For every known signature kills the canonical process, then sweeps the
 *   whole process table for signature matches to cover duplicates and
 *   orphans, then kills every remaining tracked handle directly
 * - Idempotent: processes already gone are expected and not an error
 */
func (sr *SupervisorRegistry) Shutdown() error {
	sr.terminating.Store(true)

	if err := sr.acquire(); err != nil {
		return fmt.Errorf("cannot snapshot registry state for shutdown: %w", err)
	}
	signatures := append([]string(nil), sr.signatures...)
	handles := sr.procs
	sr.procs = nil
	sr.release()

	for _, signature := range signatures {
		if proc := sr.procRegistry.FindBySignature(signature); proc != nil {
			sr.log.Info(fmt.Sprintf("Killing %d (%s)", proc.Pid, signature))
			if err := sr.procRegistry.KillPid(proc.Pid); err != nil {
				sr.log.Debug("shutdown kill target already gone: " + err.Error())
			}
		}
		sr.procRegistry.KillAllMatching(signature)
	}

	for _, h := range handles {
		if h.Handle == nil || h.Handle.Exited() {
			continue
		}
		sr.log.Info(fmt.Sprintf("Killing %d", h.Handle.Pid()))
		if err := h.Handle.Kill(); err != nil {
			sr.log.Debug("handle already dead: " + err.Error())
		}
	}
	return nil
}

// Wait blocks until every supervisor goroutine has observed termination and
// returned.
func (sr *SupervisorRegistry) Wait() {
	sr.wg.Wait()
}
