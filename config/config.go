package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendBolt      = "bolt"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	// MessageRate is the per-client message budget per second; 0 disables
	// limiting.
	MessageRate  float64 `yaml:"message_rate"`
	MessageBurst int     `yaml:"message_burst"`
}

type StoreConfig struct {
	Backend          string        `yaml:"backend"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
	BoltPath         string        `yaml:"bolt_path"`
	PostgresDSN      string        `yaml:"postgres_dsn"`
	FirestoreProject string        `yaml:"firestore_project"`
}

type RelayConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RedisAddr string `yaml:"redis_addr"`
}

type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
}

type LogConfig struct {
	Verbosity int `yaml:"verbosity"`
}

type ReplicaConfig struct {
	// ID is the replica ID of documents the server creates. Clients must
	// use other IDs.
	ID uint32 `yaml:"id"`
}

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Relay     RelayConfig     `yaml:"relay"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Log       LogConfig       `yaml:"log"`
	Replica   ReplicaConfig   `yaml:"replica"`

	// Path is the file the configuration was loaded from, if any.
	Path string `yaml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			MessageRate:  50,
			MessageBurst: 100,
		},
		Store: StoreConfig{
			Backend:       BackendMemory,
			FlushInterval: 5 * time.Second,
			BoltPath:      "blocktext.db",
		},
		Relay: RelayConfig{
			RedisAddr: "localhost:6379",
		},
		Discovery: DiscoveryConfig{
			Instance: "blocktext",
		},
	}
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendBolt:
		if c.Store.BoltPath == "" {
			return errors.New("store.bolt_path is required for the bolt backend")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres backend")
		}
	case BackendFirestore:
		if c.Store.FirestoreProject == "" {
			return errors.New("store.firestore_project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.FlushInterval <= 0 {
		return fmt.Errorf("store.flush_interval must be positive, got %s", c.Store.FlushInterval)
	}
	if c.Relay.Enabled && c.Relay.RedisAddr == "" {
		return errors.New("relay.redis_addr is required when the relay is enabled")
	}
	if c.Server.MessageRate < 0 {
		return fmt.Errorf("server.message_rate must not be negative, got %v", c.Server.MessageRate)
	}
	return nil
}

// ParseFlags parses args, loads the configuration file they name and
// applies the flag overrides.
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	path := fs.String("config", "blocktext.yml", "Path to configuration file")
	generate := fs.Bool("generate-config", false, "Write a default configuration file to -config and exit")

	// Simple flags for overriding config file
	addr := fs.String("addr", "", "HTTP listen address (overrides config)")
	backend := fs.String("store", "", "Store backend: memory, bolt, postgres or firestore (overrides config)")
	verbosity := fs.Int("v", -1, "Log verbosity (overrides config)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *generate {
		if err := SaveDefault(*path); err != nil {
			return nil, err
		}
		return nil, ErrGenerated
	}

	cfg, err := Load(*path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return nil, err
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	return cfg, cfg.Validate()
}

// ErrGenerated is returned by ParseFlags after writing a default file.
var ErrGenerated = errors.New("default configuration generated")
