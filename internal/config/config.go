package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_reel/internal/logger"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Config is the full application configuration.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Relay  RelayConfig
	Misc   MiscConfig
}

type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	CORSAllowedOrigins string
	UIDir              string
}

type StoreConfig struct {
	Backend string
	Mongo   MongoConfig
	Memory  MemoryConfig
}

type MongoConfig struct {
	URI                    string
	Database               string
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
	RetryInterval          time.Duration
	MaxConnectAttempts     int
	ResyncInterval         time.Duration
}

type MemoryConfig struct {
	SnapshotPath    string
	PersistInterval time.Duration
	SeedSamples     bool
}

type RelayConfig struct {
	Enabled      bool
	WriteTimeout time.Duration
}

type MiscConfig struct {
	GinMode           string
	LogLevel          string
	LogFormat         string
	HoneybadgerAPIKey string
	Environment       string
}

// LoadConfig reads .env, the optional config.yaml and GO_REEL_* environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables always win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithComponent("config").Warnf("cannot read .env file: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnvOrDefault("GO_REEL_CONFIG_PATH", "./config"))

	setDefaults(v)

	v.SetEnvPrefix("GO_REEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		logger.WithComponent("config").Debug("no config file found, using defaults and env vars")
	}

	port, err := getEnvOrViperPort(v, "PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        v.GetDuration("server.read_timeout"),
			WriteTimeout:       v.GetDuration("server.write_timeout"),
			IdleTimeout:        v.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    v.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     v.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: v.GetString("server.cors_allowed_origins"),
			UIDir:              v.GetString("server.ui_dir"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("store.backend"))),
			Mongo: MongoConfig{
				URI:                    v.GetString("store.mongo.uri"),
				Database:               v.GetString("store.mongo.database"),
				ConnectTimeout:         v.GetDuration("store.mongo.connect_timeout"),
				ServerSelectionTimeout: v.GetDuration("store.mongo.server_selection_timeout"),
				SocketTimeout:          v.GetDuration("store.mongo.socket_timeout"),
				RetryInterval:          v.GetDuration("store.mongo.retry_interval"),
				MaxConnectAttempts:     v.GetInt("store.mongo.max_connect_attempts"),
				ResyncInterval:         v.GetDuration("store.mongo.resync_interval"),
			},
			Memory: MemoryConfig{
				SnapshotPath:    v.GetString("store.memory.snapshot_path"),
				PersistInterval: v.GetDuration("store.memory.persist_interval"),
				SeedSamples:     v.GetBool("store.memory.seed_samples"),
			},
		},
		Relay: RelayConfig{
			Enabled:      v.GetBool("relay.enabled"),
			WriteTimeout: v.GetDuration("relay.write_timeout"),
		},
		Misc: MiscConfig{
			GinMode:           v.GetString("misc.gin_mode"),
			LogLevel:          v.GetString("misc.log_level"),
			LogFormat:         v.GetString("misc.log_format"),
			HoneybadgerAPIKey: v.GetString("misc.honeybadger_api_key"),
			Environment:       v.GetString("misc.environment"),
		},
	}

	// MONGODB_URI is the conventional variable in hosted MongoDB setups.
	if uri := os.Getenv("MONGODB_URI"); uri != "" && os.Getenv("GO_REEL_STORE_MONGO_URI") == "" {
		cfg.Store.Mongo.URI = uri
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.cors_allowed_origins", "*")
	v.SetDefault("server.ui_dir", "./ui/dist")

	v.SetDefault("store.backend", BackendMongo)
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "moviesDB")
	v.SetDefault("store.mongo.connect_timeout", 10*time.Second)
	v.SetDefault("store.mongo.server_selection_timeout", 5*time.Second)
	v.SetDefault("store.mongo.socket_timeout", 45*time.Second)
	v.SetDefault("store.mongo.retry_interval", 5*time.Second)
	v.SetDefault("store.mongo.max_connect_attempts", 0)
	v.SetDefault("store.mongo.resync_interval", 0)

	v.SetDefault("store.memory.snapshot_path", "")
	v.SetDefault("store.memory.persist_interval", 5*time.Second)
	v.SetDefault("store.memory.seed_samples", true)

	v.SetDefault("relay.enabled", true)
	v.SetDefault("relay.write_timeout", 5*time.Second)

	v.SetDefault("misc.gin_mode", "release")
	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.log_format", "text")
	v.SetDefault("misc.environment", "production")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return errors.New("server read/write/idle timeouts must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return errors.New("server shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server request timeout must be positive")
	}

	switch c.Store.Backend {
	case BackendMongo:
		if strings.TrimSpace(c.Store.Mongo.URI) == "" {
			return errors.New("store.mongo.uri is required for the mongo backend")
		}
		if strings.TrimSpace(c.Store.Mongo.Database) == "" {
			return errors.New("store.mongo.database is required for the mongo backend")
		}
		if c.Store.Mongo.RetryInterval <= 0 {
			return errors.New("store.mongo.retry_interval must be positive")
		}
		if c.Store.Mongo.MaxConnectAttempts < 0 {
			return errors.New("store.mongo.max_connect_attempts cannot be negative")
		}
		if c.Store.Mongo.ResyncInterval < 0 {
			return errors.New("store.mongo.resync_interval cannot be negative")
		}
	case BackendMemory:
		if c.Store.Memory.SnapshotPath != "" && c.Store.Memory.PersistInterval <= 0 {
			return errors.New("store.memory.persist_interval must be positive when a snapshot path is set")
		}
	default:
		return fmt.Errorf("unknown store backend %q (supported: %s, %s)", c.Store.Backend, BackendMongo, BackendMemory)
	}

	if c.Relay.Enabled && c.Relay.WriteTimeout <= 0 {
		return errors.New("relay.write_timeout must be positive")
	}

	if c.Misc.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.Misc.LogLevel); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvOrViperPort(v *viper.Viper, envKey, viperKey string) (int, error) {
	if raw := os.Getenv(envKey); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", envKey, raw, err)
		}
		return port, nil
	}
	return v.GetInt(viperKey), nil
}
