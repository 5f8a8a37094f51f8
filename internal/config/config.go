package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Replication ReplicationConfig `mapstructure:"replication"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Log         LogConfig         `mapstructure:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`

	v *viper.Viper
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	RateLimit       int           `mapstructure:"rate_limit"`       // commands per second per connection, 0 disables
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // how long to wait for clients on shutdown
}

// ReplicationConfig holds the replica-of target. It only changes the reported role
type ReplicationConfig struct {
	ReplicaOf string `mapstructure:"replicaof"` // "<host> <port>", empty for a master
}

// StorageConfig defines the internal structure of the storage engine
type StorageConfig struct {
	Shards uint `mapstructure:"shards"`
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Endpoint is a host and port pair
type Endpoint struct {
	Host string
	Port string
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// Master parses the replicaof setting. ok is false when the server is a master
func (r ReplicationConfig) Master() (master Endpoint, ok bool, err error) {
	if strings.TrimSpace(r.ReplicaOf) == "" {
		return Endpoint{}, false, nil
	}

	fields := strings.Fields(r.ReplicaOf)
	if len(fields) != 2 {
		return Endpoint{}, false, fmt.Errorf("replicaof %q: want \"<host> <port>\"", r.ReplicaOf)
	}

	if err := validatePort(fields[1]); err != nil {
		return Endpoint{}, false, fmt.Errorf("replicaof %q: %w", r.ReplicaOf, err)
	}

	return Endpoint{Host: fields[0], Port: fields[1]}, true, nil
}

// Validate checks values viper cannot check by itself
func (c *Config) Validate() error {
	if err := validatePort(c.Server.Port); err != nil {
		return fmt.Errorf("server.port: %w", err)
	}
	if _, _, err := c.Replication.Master(); err != nil {
		return err
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	return nil
}

// Load reads the configuration from a file and overrides it with environment variables.
// overrides (usually command line flags) take precedence over both
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("STARLIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	for key, val := range overrides {
		v.Set(key, val)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// OnChange calls fn with the reloaded configuration every time the config file changes.
// Invalid reloads are passed to onError and otherwise ignored.
// Without a config file there is nothing to watch and OnChange does nothing
func (c *Config) OnChange(fn func(*Config), onError func(error)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		next, err := decode(c.v)
		if err == nil {
			err = next.Validate()
		}
		if err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}

		fn(next)
	})
	c.v.WatchConfig()
}

// FileUsed returns the config file that was read, or "" when running on defaults
func (c *Config) FileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.v = v
	return &cfg, nil
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "6379")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.shutdown_timeout", "5s")

	// Replication
	v.SetDefault("replication.replicaof", "")

	// Storage
	v.SetDefault("storage.shards", 16)

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Metrics
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9121")
}
