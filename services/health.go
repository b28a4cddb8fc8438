package services

import (
	"fmt"
	"net"
	"time"

	"tunman/internal/models"
)

// HealthChecker answers the two liveness questions a supervisor asks: is the
// OS process still there, and does the forwarding logically work. Probe
// implementations are pluggable; supervisors only consume the booleans.
type HealthChecker interface {
	IsProcessAlive(signature string) bool
	CheckTunnelAlive(def models.TunnelDefinition, cfg *models.HostConnectionConfig) bool
}

type probeChecker struct {
	procs       *ProcessRegistry
	dialTimeout time.Duration
}

// NewHealthChecker builds the default checker: process liveness through the
// process registry, logical probes per the host's validation method.
func NewHealthChecker(procs *ProcessRegistry) HealthChecker {
	return &probeChecker{
		procs:       procs,
		dialTimeout: 5 * time.Second,
	}
}

func (pc *probeChecker) IsProcessAlive(signature string) bool {
	return pc.procs.FindBySignature(signature) != nil
}

/**
 * Run the logical health probe for a forwarding
 * @param {models.TunnelDefinition} def - Forwarding to probe
 * @param {*models.HostConnectionConfig} cfg - Host carrying the probe method
 * @returns {bool} True when the tunnel is considered healthy
 * @description
 * - "none" (or empty) never fails, for tunnels without a probeable endpoint
 * - "local_port_ping" dials the local side of the forwarding over TCP
 * - Unknown methods are treated as "none" so a config typo cannot put a
 *   tunnel into a restart loop
 */
func (pc *probeChecker) CheckTunnelAlive(def models.TunnelDefinition, cfg *models.HostConnectionConfig) bool {
	switch cfg.Validate.Method {
	case "local_port_ping":
		addr := net.JoinHostPort(def.LocalHost, fmt.Sprintf("%d", def.LocalPort))
		conn, err := net.DialTimeout("tcp", addr, pc.dialTimeout)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	default:
		return true
	}
}
