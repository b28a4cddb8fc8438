package config

import (
	"testing"

	"tunman/internal/models"
)

func sampleHost() HostConfig {
	return HostConfig{
		User: "deploy",
		Host: "bastion.example.com",
		Validate: ValidateConfig{
			Method:            "local_port_ping",
			Interval:          30,
			WaitBeforeRestart: 5,
			KillOnFailure:     true,
		},
		Forwardings: []ForwardingConfig{
			{LocalPort: 8080, RemoteHost: "db.internal", RemotePort: 5432},
			{LocalHost: "0.0.0.0", LocalPort: 3000, RemoteHost: "web.internal", RemotePort: 9000, Direction: "remote"},
		},
	}
}

func TestCollectConfigDefaults(t *testing.T) {
	cfg := &AppConfig{Hosts: []HostConfig{{User: "deploy", Host: "h", Forwardings: []ForwardingConfig{
		{LocalPort: 8080, RemoteHost: "db.internal", RemotePort: 5432},
	}}}}
	collectConfig(cfg)

	if cfg.Server.Address != "127.0.0.1:8787" {
		t.Errorf("server address default = %q", cfg.Server.Address)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("server mode default = %q", cfg.Server.Mode)
	}
	if cfg.Tunnel.Binary != "autossh" {
		t.Errorf("tunnel binary default = %q", cfg.Tunnel.Binary)
	}

	host := cfg.Hosts[0]
	if host.Port != 22 {
		t.Errorf("host port default = %d", host.Port)
	}
	if host.Validate.Method != "none" {
		t.Errorf("validate method default = %q", host.Validate.Method)
	}
	if host.Validate.Interval != 60 {
		t.Errorf("validate interval default = %d", host.Validate.Interval)
	}
	fwd := host.Forwardings[0]
	if fwd.LocalHost != "127.0.0.1" {
		t.Errorf("forwarding local host default = %q", fwd.LocalHost)
	}
	if fwd.Direction != string(models.DirectionLocal) {
		t.Errorf("forwarding direction default = %q", fwd.Direction)
	}
}

func TestCollectConfigKeepsExplicitValues(t *testing.T) {
	cfg := &AppConfig{
		Server: ServerConfig{Address: "0.0.0.0:9090", Mode: "debug"},
		Tunnel: TunnelConfig{Binary: "ssh"},
		Hosts:  []HostConfig{sampleHost()},
	}
	cfg.Hosts[0].Port = 2222
	collectConfig(cfg)

	if cfg.Server.Address != "0.0.0.0:9090" || cfg.Server.Mode != "debug" {
		t.Errorf("explicit server config overwritten: %+v", cfg.Server)
	}
	if cfg.Tunnel.Binary != "ssh" {
		t.Errorf("explicit binary overwritten: %q", cfg.Tunnel.Binary)
	}
	if cfg.Hosts[0].Port != 2222 {
		t.Errorf("explicit host port overwritten: %d", cfg.Hosts[0].Port)
	}
	if cfg.Hosts[0].Validate.Interval != 30 {
		t.Errorf("explicit interval overwritten: %d", cfg.Hosts[0].Validate.Interval)
	}
}

func TestConnectionConfigConversion(t *testing.T) {
	host := sampleHost()
	host.Port = 2222
	host.Key = "/home/deploy/.ssh/id_ed25519"
	host.Password = "hunter2"
	host.Opts = "-o StrictHostKeyChecking=no"

	cc := host.ConnectionConfig()
	if cc.RemoteUser != "deploy" || cc.RemoteHost != "bastion.example.com" || cc.RemotePort != 2222 {
		t.Errorf("connection endpoint mismatch: %+v", cc)
	}
	if cc.RemoteKey != host.Key || cc.RemotePassword != "hunter2" || cc.SSHOpts != host.Opts {
		t.Errorf("credentials/options mismatch: %+v", cc)
	}
	want := models.ValidationPolicy{Method: "local_port_ping", Interval: 30, WaitBeforeRestart: 5, KillOnFailure: true}
	if cc.Validate != want {
		t.Errorf("validation policy = %+v, want %+v", cc.Validate, want)
	}
}

func TestDefinitionsConversion(t *testing.T) {
	cfg := &AppConfig{Hosts: []HostConfig{sampleHost()}}
	collectConfig(cfg)

	defs := cfg.Hosts[0].Definitions()
	if len(defs) != 2 {
		t.Fatalf("definitions count = %d, want 2", len(defs))
	}
	if defs[0].LocalHost != "127.0.0.1" {
		t.Errorf("defaulted local host not carried over: %q", defs[0].LocalHost)
	}
	if defs[1].Direction != models.DirectionRemote {
		t.Errorf("second forwarding direction = %q, want remote", defs[1].Direction)
	}
	if defs[1].LocalHost != "0.0.0.0" || defs[1].RemotePort != 9000 {
		t.Errorf("second forwarding fields mismatch: %+v", defs[1])
	}
}

func TestAllDefinitionsFlattensHosts(t *testing.T) {
	cfg := &AppConfig{Hosts: []HostConfig{sampleHost(), sampleHost()}}
	cfg.Hosts[1].Forwardings = cfg.Hosts[1].Forwardings[:1]

	defs := cfg.AllDefinitions()
	if len(defs) != 3 {
		t.Errorf("flattened definitions = %d, want 3", len(defs))
	}
}

func TestValidateRejectsIncompleteEntries(t *testing.T) {
	missingUser := &AppConfig{Hosts: []HostConfig{{Host: "h"}}}
	if err := missingUser.Validate(); err == nil {
		t.Error("expected error for host without user")
	}

	badForwarding := &AppConfig{Hosts: []HostConfig{{User: "u", Host: "h", Forwardings: []ForwardingConfig{
		{LocalPort: 8080, RemotePort: 5432}, // no remote host
	}}}}
	if err := badForwarding.Validate(); err == nil {
		t.Error("expected error for forwarding without remote host")
	}

	valid := &AppConfig{Hosts: []HostConfig{sampleHost()}}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
