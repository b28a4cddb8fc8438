package config

import (
	"fmt"

	"tunman/internal/models"

	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - HTTP API listening address (e.g. "127.0.0.1:8787")
 * @property {string} mode - Application mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" for stdout
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// TunnelConfig selects the external tunnel binary. The binary name is also
// the marker used to recognise tunnel processes in the process table.
type TunnelConfig struct {
	Binary string `mapstructure:"binary"`
}

// ForwardingConfig is one port forwarding under a host.
type ForwardingConfig struct {
	LocalHost  string `mapstructure:"local_host"`
	LocalPort  int    `mapstructure:"local_port"`
	RemoteHost string `mapstructure:"remote_host"`
	RemotePort int    `mapstructure:"remote_port"`
	Direction  string `mapstructure:"direction"`
}

// ValidateConfig is the health-check policy of a host.
type ValidateConfig struct {
	Method            string `mapstructure:"method"`
	Interval          int    `mapstructure:"interval"`
	WaitBeforeRestart int    `mapstructure:"wait_time_before_restart"`
	KillOnFailure     bool   `mapstructure:"kill_existing_tunnel_on_failure"`
}

/**
 * Per-remote-host connection settings with its forwardings
 * @property {string} user - Remote SSH user
 * @property {string} host - Remote SSH host
 * @property {int} port - Remote SSH port
 * @property {string} key - Identity file path, used only when opts is empty
 * @property {string} password - Password injected through sshpass when set
 * @property {string} opts - Custom SSH options, overrides the key option
 */
type HostConfig struct {
	User        string             `mapstructure:"user"`
	Host        string             `mapstructure:"host"`
	Port        int                `mapstructure:"port"`
	Key         string             `mapstructure:"key"`
	Password    string             `mapstructure:"password"`
	Opts        string             `mapstructure:"opts"`
	Validate    ValidateConfig     `mapstructure:"validate"`
	Forwardings []ForwardingConfig `mapstructure:"forwardings"`
}

type AppConfig struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Tunnel TunnelConfig `mapstructure:"tunnel"`
	Hosts  []HostConfig `mapstructure:"hosts"`
}

/**
 * Load application configuration from YAML file
 */
func LoadConfig() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/tunman")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1:8787"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Tunnel.Binary == "" {
		cfg.Tunnel.Binary = "autossh"
	}
	for i := range cfg.Hosts {
		host := &cfg.Hosts[i]
		if host.Port == 0 {
			host.Port = 22
		}
		if host.Validate.Method == "" {
			host.Validate.Method = "none"
		}
		if host.Validate.Interval == 0 {
			host.Validate.Interval = 60
		}
		for j := range host.Forwardings {
			fwd := &host.Forwardings[j]
			if fwd.LocalHost == "" {
				fwd.LocalHost = "127.0.0.1"
			}
			if fwd.Direction == "" {
				fwd.Direction = string(models.DirectionLocal)
			}
		}
	}
	return cfg
}

// ConnectionConfig converts the host entry into the model struct handed to
// supervisors.
func (h *HostConfig) ConnectionConfig() *models.HostConnectionConfig {
	return &models.HostConnectionConfig{
		RemoteUser:     h.User,
		RemoteHost:     h.Host,
		RemotePort:     h.Port,
		RemoteKey:      h.Key,
		RemotePassword: h.Password,
		SSHOpts:        h.Opts,
		Validate: models.ValidationPolicy{
			Method:            h.Validate.Method,
			Interval:          h.Validate.Interval,
			WaitBeforeRestart: h.Validate.WaitBeforeRestart,
			KillOnFailure:     h.Validate.KillOnFailure,
		},
	}
}

// Definitions converts the host's forwardings into tunnel definitions.
func (h *HostConfig) Definitions() []models.TunnelDefinition {
	defs := make([]models.TunnelDefinition, 0, len(h.Forwardings))
	for _, fwd := range h.Forwardings {
		defs = append(defs, models.TunnelDefinition{
			LocalHost:  fwd.LocalHost,
			LocalPort:  fwd.LocalPort,
			RemoteHost: fwd.RemoteHost,
			RemotePort: fwd.RemotePort,
			Direction:  models.Direction(fwd.Direction),
		})
	}
	return defs
}

// AllDefinitions flattens the definitions of every configured host.
func (c *AppConfig) AllDefinitions() []models.TunnelDefinition {
	var defs []models.TunnelDefinition
	for i := range c.Hosts {
		defs = append(defs, c.Hosts[i].Definitions()...)
	}
	return defs
}

// Validate rejects entries the supervision core cannot work with.
func (c *AppConfig) Validate() error {
	for i := range c.Hosts {
		host := &c.Hosts[i]
		if host.Host == "" || host.User == "" {
			return fmt.Errorf("host entry %d: user and host are required", i)
		}
		for _, fwd := range host.Forwardings {
			if fwd.LocalPort == 0 || fwd.RemotePort == 0 || fwd.RemoteHost == "" {
				return fmt.Errorf("host %s: forwarding needs local_port, remote_host and remote_port", host.Host)
			}
		}
	}
	return nil
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}
