package models

import "time"

// DefinitionStatus is the observable state of one supervised forwarding.
type DefinitionStatus struct {
	Pid           int         `json:"pid,omitempty"`  // pid of the live tunnel process, 0 when dead
	IsAlive       bool        `json:"is_alive"`       // a matching process is currently running
	StartsHistory []time.Time `json:"starts_history"` // one timestamp per (re)spawn
	RestartsCount int         `json:"restarts_count"` // max(len(starts_history)-1, 0)
}

// TunnelStats is the aggregated snapshot returned by the stats query.
// Status is keyed by forwarding signature, which identifies a definition
// one-to-one.
type TunnelStats struct {
	Signatures    []string                    `json:"signatures"`
	Status        map[string]DefinitionStatus `json:"status"`
	ProcsCount    int                         `json:"procs_count"`
	IsTerminating bool                        `json:"is_terminating"`
}

// HealthResponse is the healthz payload of the daemon.
type HealthResponse struct {
	Status        string `json:"status"`
	TotalRequests int64  `json:"total_requests"`
	ErrorRequests int64  `json:"error_requests"`
	IsTerminating bool   `json:"is_terminating"`
}

// ErrorResponse defines API error response format
type ErrorResponse struct {
	Error string `json:"error"`
}

// TunnelResponse defines tunnel operation success response format
type TunnelResponse struct {
	Signature string `json:"signature"` // forwarding signature
	Status    string `json:"status"`    // operation status
	Message   string `json:"message"`   // response message
}
