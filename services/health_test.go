package services

import (
	"net"
	"testing"
	"time"

	"tunman/internal/models"
)

func portPingConfig() *models.HostConnectionConfig {
	cfg := testHostConfig()
	cfg.Validate.Method = "local_port_ping"
	return cfg
}

func TestLocalPortPingAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("cannot open test listener: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	def := testDefinition(5432)
	def.LocalPort = ln.Addr().(*net.TCPAddr).Port

	env := newTestEnv()
	checker := NewHealthChecker(env.procs).(*probeChecker)
	checker.dialTimeout = 500 * time.Millisecond

	if !checker.CheckTunnelAlive(def, portPingConfig()) {
		t.Error("probe failed against a live listener")
	}

	ln.Close()
	if checker.CheckTunnelAlive(def, portPingConfig()) {
		t.Error("probe passed against a closed listener")
	}
}

// "none" and unknown methods never fail the tunnel.
func TestNonPingMethodsAlwaysPass(t *testing.T) {
	env := newTestEnv()
	checker := NewHealthChecker(env.procs)
	def := testDefinition(5432)
	def.LocalPort = 1 // nothing listens here

	for _, method := range []string{"none", "", "typo_method"} {
		cfg := testHostConfig()
		cfg.Validate.Method = method
		if !checker.CheckTunnelAlive(def, cfg) {
			t.Errorf("method %q failed a tunnel it should never probe", method)
		}
	}
}

func TestIsProcessAliveUsesSignatureLookup(t *testing.T) {
	env := newTestEnv()
	checker := NewHealthChecker(env.procs)
	def := testDefinition(5432)

	if checker.IsProcessAlive(def.Signature()) {
		t.Error("reported alive with an empty process table")
	}
	env.addProcess(777, def.Signature())
	if !checker.IsProcessAlive(def.Signature()) {
		t.Error("reported dead despite a matching process")
	}
}
