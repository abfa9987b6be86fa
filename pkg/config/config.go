// Package config loads the newtflow daemon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/newtflow/pkg/audit"
	"github.com/newtron-network/newtflow/pkg/datastore"
	"github.com/newtron-network/newtflow/pkg/topology"
	"github.com/newtron-network/newtflow/pkg/util"
)

// DefaultPath is read when no -c flag is given.
const DefaultPath = "/etc/newtflow/newtflow.yaml"

// Config is the daemon configuration file.
type Config struct {
	Redis      RedisConfig `yaml:"redis"`
	SSH        SSHConfig   `yaml:"ssh,omitempty"`
	TopologyID string      `yaml:"topology_id"`
	Watch      WatchConfig `yaml:"watch"`
	Log        LogConfig   `yaml:"log"`
	Audit      AuditConfig `yaml:"audit"`
}

// RedisConfig locates the controller's store.
type RedisConfig struct {
	Addr                 string `yaml:"addr"`
	Password             string `yaml:"password,omitempty"`
	OperationalDB        int    `yaml:"operational_db"`
	ConfigurationDB      int    `yaml:"configuration_db"`
	EnableKeyspaceEvents bool   `yaml:"enable_keyspace_events"`
}

// SSHConfig tunnels Redis connections through an SSH host. Unused when Host
// is empty.
type SSHConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	User       string `yaml:"user,omitempty"`
	Password   string `yaml:"password,omitempty"`
	RemoteAddr string `yaml:"remote_addr,omitempty"`
	KnownHosts string `yaml:"known_hosts,omitempty"`
}

// WatchConfig tunes notification batching.
type WatchConfig struct {
	BatchWindow time.Duration `yaml:"batch_window"`
	BatchSize   int           `yaml:"batch_size"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuditConfig locates the flow audit log. An empty Path disables auditing.
type AuditConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Redis: RedisConfig{
			Addr:            "127.0.0.1:6379",
			OperationalDB:   datastore.OperationalDB,
			ConfigurationDB: datastore.ConfigurationDB,
		},
		TopologyID: topology.DefaultTopologyID,
		Watch: WatchConfig{
			BatchWindow: datastore.DefaultBatchWindow,
			BatchSize:   datastore.DefaultBatchSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Audit: AuditConfig{
			Path:       "/var/log/newtflow/audit.log",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 10,
		},
	}
}

// Load reads the configuration from DefaultPath.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath)
}

// LoadFrom reads the configuration at path over the defaults. A missing file
// yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", util.ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "fatal": true, "panic": true,
}

var logFormats = map[string]bool{"text": true, "json": true, "auto": true}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	vb := &util.ValidationBuilder{}

	vb.Add(c.Redis.Addr != "", "redis.addr is required")
	if !validDB(c.Redis.OperationalDB) {
		vb.AddErrorf("redis.operational_db %d out of range", c.Redis.OperationalDB)
	}
	if !validDB(c.Redis.ConfigurationDB) {
		vb.AddErrorf("redis.configuration_db %d out of range", c.Redis.ConfigurationDB)
	}
	vb.Add(c.Redis.OperationalDB != c.Redis.ConfigurationDB,
		"redis.operational_db and redis.configuration_db must differ")

	if c.SSH.Host != "" {
		vb.Add(c.SSH.User != "", "ssh.user is required when ssh.host is set")
		if c.SSH.Port < 0 || c.SSH.Port > 65535 {
			vb.AddErrorf("ssh.port %d out of range", c.SSH.Port)
		}
	}

	vb.Add(c.TopologyID != "", "topology_id is required")
	if strings.Contains(c.TopologyID, topology.KeySeparator) {
		vb.AddErrorf("topology_id %q must not contain %q", c.TopologyID, topology.KeySeparator)
	}

	if c.Watch.BatchWindow < 0 {
		vb.AddErrorf("watch.batch_window %s is negative", c.Watch.BatchWindow)
	}
	if c.Watch.BatchSize <= 0 {
		vb.AddErrorf("watch.batch_size %d must be positive", c.Watch.BatchSize)
	}

	if !logLevels[strings.ToLower(c.Log.Level)] {
		vb.AddErrorf("log.level %q is not a log level", c.Log.Level)
	}
	if c.Log.Format != "" && !logFormats[c.Log.Format] {
		vb.AddErrorf("log.format %q is not one of text, json, auto", c.Log.Format)
	}

	if c.Audit.MaxSize < 0 || c.Audit.MaxBackups < 0 {
		vb.AddErrorf("audit.max_size and audit.max_backups must not be negative")
	}

	return vb.Build()
}

func validDB(n int) bool {
	return n >= 0 && n <= 15
}

// StoreOptions converts the Redis and SSH sections for datastore.Open.
func (c *Config) StoreOptions() datastore.Options {
	opts := datastore.Options{
		Addr:            c.Redis.Addr,
		Password:        c.Redis.Password,
		OperationalDB:   c.Redis.OperationalDB,
		ConfigurationDB: c.Redis.ConfigurationDB,
	}
	if c.SSH.Host != "" {
		opts.Tunnel = &datastore.TunnelConfig{
			Host:       c.SSH.Host,
			Port:       c.SSH.Port,
			User:       c.SSH.User,
			Password:   c.SSH.Password,
			RemoteAddr: c.SSH.RemoteAddr,
			KnownHosts: c.SSH.KnownHosts,
		}
	}
	return opts
}

// AuditRotation converts the audit section for audit.NewFileLogger.
func (c *Config) AuditRotation() audit.RotationConfig {
	return audit.RotationConfig{MaxSize: c.Audit.MaxSize, MaxBackups: c.Audit.MaxBackups}
}

// WatchOptions converts the watch section for datastore.NewSubscriber.
func (c *Config) WatchOptions() []datastore.SubscriberOption {
	return []datastore.SubscriberOption{
		datastore.WithBatchWindow(c.Watch.BatchWindow),
		datastore.WithBatchSize(c.Watch.BatchSize),
	}
}
