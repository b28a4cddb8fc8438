package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tunman/internal/models"
	"tunman/internal/utils"
)

// recordingLogger captures everything the supervision core emits so tests
// can assert on failure and recovery messages.
type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	debugs []string
	errors []string
}

func (l *recordingLogger) Info(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, message)
}

func (l *recordingLogger) Debug(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, message)
}

func (l *recordingLogger) Error(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, message)
}

func (l *recordingLogger) countInfos(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, m := range l.infos {
		if strings.Contains(m, substr) {
			count++
		}
	}
	return count
}

func (l *recordingLogger) countErrors(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, m := range l.errors {
		if strings.Contains(m, substr) {
			count++
		}
	}
	return count
}

type fakeHandle struct {
	pid    int
	exited atomic.Bool
	killed atomic.Bool
	stdout string
	stderr string
}

func (h *fakeHandle) Pid() int     { return h.pid }
func (h *fakeHandle) Exited() bool { return h.exited.Load() }

func (h *fakeHandle) Kill() error {
	h.killed.Store(true)
	h.exited.Store(true)
	return nil
}

func (h *fakeHandle) Output() (string, string, error) {
	if !h.exited.Load() {
		return "", "", errors.New("process has not exited")
	}
	return h.stdout, h.stderr, nil
}

type fakeSpawner struct {
	mu      sync.Mutex
	nextPid int
	spawned []*fakeHandle
	err     error
}

func (s *fakeSpawner) Spawn(command string) (ProcessHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.nextPid++
	h := &fakeHandle{pid: 1000 + s.nextPid}
	s.spawned = append(s.spawned, h)
	return h, nil
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spawned)
}

// fakeChecker pops scripted results per probe; once a queue is exhausted the
// default answer sticks.
type fakeChecker struct {
	mu            sync.Mutex
	procResults   []bool
	procDefault   bool
	tunnelResults []bool
	tunnelDefault bool
	procCalls     int
	tunnelCalls   int
}

func (c *fakeChecker) IsProcessAlive(signature string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.procCalls++
	if len(c.procResults) > 0 {
		result := c.procResults[0]
		c.procResults = c.procResults[1:]
		return result
	}
	return c.procDefault
}

func (c *fakeChecker) CheckTunnelAlive(def models.TunnelDefinition, cfg *models.HostConnectionConfig) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tunnelCalls++
	if len(c.tunnelResults) > 0 {
		result := c.tunnelResults[0]
		c.tunnelResults = c.tunnelResults[1:]
		return result
	}
	return c.tunnelDefault
}

func (c *fakeChecker) probeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tunnelCalls
}

// testEnv bundles a registry wired to fakes with compressed timing.
type testEnv struct {
	log     *recordingLogger
	spawner *fakeSpawner
	checker *fakeChecker
	procs   *ProcessRegistry
	reg     *SupervisorRegistry

	mu        sync.Mutex
	procTable []utils.ProcessInfo
	killed    []int
}

func newTestEnv() *testEnv {
	env := &testEnv{
		log:     &recordingLogger{},
		spawner: &fakeSpawner{},
		checker: &fakeChecker{procDefault: true, tunnelDefault: true},
	}
	env.procs = NewProcessRegistry("autossh", env.log)
	env.procs.list = func() ([]utils.ProcessInfo, error) {
		env.mu.Lock()
		defer env.mu.Unlock()
		return append([]utils.ProcessInfo(nil), env.procTable...), nil
	}
	env.procs.kill = func(pid int) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.killed = append(env.killed, pid)
		return nil
	}

	env.reg = NewSupervisorRegistry(env.procs, env.checker, env.spawner, env.log)
	env.reg.SettleDelay = 2 * time.Millisecond
	env.reg.RetryBackoff = 2 * time.Millisecond
	env.reg.Tick = time.Millisecond
	env.reg.LockTimeout = 250 * time.Millisecond
	return env
}

// addProcess publishes a fake process table entry for a signature.
func (env *testEnv) addProcess(pid int, signature string) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.procTable = append(env.procTable, utils.ProcessInfo{
		Pid:     pid,
		Command: fmt.Sprintf("autossh -M 0 -N -f %s -p 22 user@host", signature),
	})
}

func (env *testEnv) killedPids() []int {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]int(nil), env.killed...)
}

func testDefinition(remotePort int) models.TunnelDefinition {
	return models.TunnelDefinition{
		LocalHost:  "127.0.0.1",
		LocalPort:  8080,
		RemoteHost: "db.internal",
		RemotePort: remotePort,
		Direction:  models.DirectionLocal,
	}
}

func testHostConfig() *models.HostConnectionConfig {
	return &models.HostConnectionConfig{
		RemoteUser: "deploy",
		RemoteHost: "bastion.example.com",
		RemotePort: 22,
		Validate: models.ValidationPolicy{
			Method:            "local_port_ping",
			Interval:          2,
			WaitBeforeRestart: 1,
		},
	}
}

// waitFor polls a condition until it holds or the timeout trips.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
