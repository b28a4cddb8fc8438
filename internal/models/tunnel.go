package models

import "fmt"

// Direction tells which side of the SSH connection opens the listening socket.
type Direction string

const (
	// DirectionLocal forwards a local port to a remote address (ssh -L).
	DirectionLocal Direction = "local"
	// DirectionRemote exposes a local service on the remote side (ssh -R).
	DirectionRemote Direction = "remote"
)

/**
 * TunnelDefinition describes one SSH port forwarding.
 * @property {string} localHost - Bind address on the local side
 * @property {int} localPort - Port on the local side
 * @property {string} remoteHost - Host on the remote side
 * @property {int} remotePort - Port on the remote side
 * @property {Direction} direction - local (-L) or remote (-R) forwarding
 * @description
 * - Immutable once created; all fields are comparable values so the
 *   definition can be used directly as a map key
 * - Signature() derives the forwarding spec used for process identification
 */
type TunnelDefinition struct {
	LocalHost  string    `json:"localHost"`
	LocalPort  int       `json:"localPort"`
	RemoteHost string    `json:"remoteHost"`
	RemotePort int       `json:"remotePort"`
	Direction  Direction `json:"direction"`
}

// Signature returns the SSH forwarding spec for this definition. The string
// doubles as the identity of the tunnel: it is matched against process
// command lines and used as the stable key in status payloads, so two
// definitions with equal forwarding parameters produce equal signatures.
func (d TunnelDefinition) Signature() string {
	if d.Direction == DirectionRemote {
		return fmt.Sprintf("-R %s:%d:%s:%d", d.RemoteHost, d.RemotePort, d.LocalHost, d.LocalPort)
	}
	return fmt.Sprintf("-L %s:%d:%s:%d", d.LocalHost, d.LocalPort, d.RemoteHost, d.RemotePort)
}

func (d TunnelDefinition) String() string {
	return d.Signature()
}

/**
 * ValidationPolicy controls how a running tunnel is health checked.
 * @property {string} method - Probe method: "none" or "local_port_ping"
 * @property {int} interval - Ticks between monitoring iterations
 * @property {int} waitBeforeRestart - Grace ticks before the probe is re-run
 * @property {bool} killOnFailure - Kill the matching process before relaunch
 */
type ValidationPolicy struct {
	Method            string `json:"method"`
	Interval          int    `json:"interval"`
	WaitBeforeRestart int    `json:"waitBeforeRestart"`
	KillOnFailure     bool   `json:"killOnFailure"`
}

// HostConnectionConfig carries the per-host SSH settings shared read-only by
// every supervisor targeting that host.
type HostConnectionConfig struct {
	RemoteUser     string           `json:"remoteUser"`
	RemoteHost     string           `json:"remoteHost"`
	RemotePort     int              `json:"remotePort"`
	RemoteKey      string           `json:"remoteKey"`
	RemotePassword string           `json:"-"`
	SSHOpts        string           `json:"sshOpts"`
	Validate       ValidationPolicy `json:"validate"`
}
