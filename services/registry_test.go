package services

import (
	"errors"
	"testing"
	"time"

	"tunman/internal/models"
)

func TestRestartCountMatchesHistory(t *testing.T) {
	env := newTestEnv()
	def := testDefinition(5432)
	signature := def.Signature()

	if err := env.reg.Spawn(def, testHostConfig()); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	stats, err := env.reg.GetStats([]models.TunnelDefinition{def})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	entry := stats.Status[signature]
	if len(entry.StartsHistory) != 1 {
		t.Fatalf("expected 1 history entry after spawn, got %d", len(entry.StartsHistory))
	}
	if entry.RestartsCount != 0 {
		t.Errorf("the first spawn is not a restart, got count %d", entry.RestartsCount)
	}

	// Relaunches out of monitoring append history without re-registering the
	// signature.
	for i := 0; i < 2; i++ {
		if err := env.reg.recordStart(def, signature, false); err != nil {
			t.Fatalf("recordStart failed: %v", err)
		}
	}

	stats, err = env.reg.GetStats([]models.TunnelDefinition{def})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	entry = stats.Status[signature]
	if entry.RestartsCount != len(entry.StartsHistory)-1 {
		t.Errorf("restarts_count %d does not match history length %d",
			entry.RestartsCount, len(entry.StartsHistory))
	}
	if entry.RestartsCount != 2 {
		t.Errorf("expected 2 restarts, got %d", entry.RestartsCount)
	}
	if len(stats.Signatures) != 1 {
		t.Errorf("expected 1 registered signature, got %d", len(stats.Signatures))
	}

	env.reg.Shutdown()
	env.reg.Wait()
}

func TestGetStatsForUnknownDefinition(t *testing.T) {
	env := newTestEnv()
	def := testDefinition(5432)

	stats, err := env.reg.GetStats([]models.TunnelDefinition{def})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	entry := stats.Status[def.Signature()]
	if entry.IsAlive {
		t.Error("unknown definition reported alive")
	}
	if entry.RestartsCount != 0 {
		t.Errorf("empty history must report 0 restarts, got %d", entry.RestartsCount)
	}
	if len(entry.StartsHistory) != 0 {
		t.Errorf("expected empty history, got %d entries", len(entry.StartsHistory))
	}
}

func TestIndependentHistoriesPerDefinition(t *testing.T) {
	env := newTestEnv()
	// Two forwardings sharing a host, differing only in the remote port.
	first := testDefinition(5432)
	second := testDefinition(5433)

	if first.Signature() == second.Signature() {
		t.Fatal("definitions with different remote ports must have distinct signatures")
	}

	cfg := testHostConfig()
	if err := env.reg.Spawn(first, cfg); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	if err := env.reg.Spawn(second, cfg); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	if err := env.reg.recordStart(first, first.Signature(), false); err != nil {
		t.Fatalf("recordStart failed: %v", err)
	}

	stats, err := env.reg.GetStats([]models.TunnelDefinition{first, second})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if got := stats.Status[first.Signature()].RestartsCount; got != 1 {
		t.Errorf("first definition: expected 1 restart, got %d", got)
	}
	if got := stats.Status[second.Signature()].RestartsCount; got != 0 {
		t.Errorf("second definition: expected 0 restarts, got %d", got)
	}
	if len(stats.Signatures) != 2 {
		t.Errorf("expected 2 signatures, got %d", len(stats.Signatures))
	}

	env.reg.Shutdown()
	env.reg.Wait()
}

func TestLockAcquisitionTimesOut(t *testing.T) {
	env := newTestEnv()
	env.reg.LockTimeout = 10 * time.Millisecond

	// Hold the lock so every operation runs into the budget.
	env.reg.lock <- struct{}{}
	defer func() { <-env.reg.lock }()

	def := testDefinition(5432)
	if err := env.reg.recordStart(def, def.Signature(), true); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout from recordStart, got %v", err)
	}
	if _, err := env.reg.GetStats([]models.TunnelDefinition{def}); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout from GetStats, got %v", err)
	}
	if err := env.reg.Shutdown(); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout from Shutdown, got %v", err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	env := newTestEnv()
	def := testDefinition(5432)
	signature := def.Signature()

	// A canonical process plus an orphaned duplicate are both swept.
	env.addProcess(4242, signature)
	env.addProcess(4243, signature)

	if err := env.reg.Spawn(def, testHostConfig()); err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return env.spawner.count() >= 1 }, "tunnel spawned")

	if err := env.reg.Shutdown(); err != nil {
		t.Fatalf("first shutdown failed: %v", err)
	}
	if err := env.reg.Shutdown(); err != nil {
		t.Fatalf("second shutdown failed: %v", err)
	}
	env.reg.Wait()

	killed := env.killedPids()
	found := map[int]bool{}
	for _, pid := range killed {
		found[pid] = true
	}
	if !found[4242] || !found[4243] {
		t.Errorf("expected both matching processes killed, killed=%v", killed)
	}

	stats, err := env.reg.GetStats([]models.TunnelDefinition{def})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ProcsCount != 0 {
		t.Errorf("expected no tracked handles after shutdown, got %d", stats.ProcsCount)
	}
	if !stats.IsTerminating {
		t.Error("termination flag not set after shutdown")
	}
}
