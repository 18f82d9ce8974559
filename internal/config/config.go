package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joshdurbin/tinylink/internal/logger"
	"github.com/joshdurbin/tinylink/internal/shortener"
)

// EnvPrefix prefixes every environment override, e.g. TINYLINK_SERVER_PORT
const EnvPrefix = "TINYLINK"

// Store backends
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Store     StoreConfig      `mapstructure:"store"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Clicks    ClicksConfig     `mapstructure:"clicks"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Shortener shortener.Config `mapstructure:"shortener"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ServerURL       string        `mapstructure:"server_url"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the repository backend
type StoreConfig struct {
	Type string `mapstructure:"type"`
}

// DatabaseConfig holds SQLite configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// ClicksConfig controls how resolve clicks reach the store. A zero
// FlushInterval writes every click directly.
type ClicksConfig struct {
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Verbose bool   `mapstructure:"verbose"`
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"port":             "server.port",
	"server-url":       "server.server_url",
	"cors-origin":      "server.cors_origin",
	"shutdown-timeout": "server.shutdown_timeout",
	"store":            "store.type",
	"db-path":          "database.path",
	"redis-addr":       "redis.address",
	"redis-password":   "redis.password",
	"redis-db":         "redis.db",
	"flush-interval":   "clicks.flush_interval",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"verbose":          "logging.verbose",
	"generator":        "shortener.type",
	"code-length":      "shortener.code_length",
	"max-attempts":     "shortener.max_attempts",
	"counter-step":     "shortener.counter_step",
}

// RegisterFlags adds the server flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")
	fs.StringP("port", "p", "8080", "Server port")
	fs.String("server-url", "http://localhost:8080", "Public base URL used for short links and QR codes")
	fs.String("cors-origin", "*", "Access-Control-Allow-Origin value")
	fs.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	fs.String("store", StoreSQLite, "Link store backend (sqlite or redis)")
	fs.String("db-path", "tinylink.db", "SQLite database file path")
	fs.String("redis-addr", "localhost:6379", "Redis address")
	fs.String("redis-password", "", "Redis password")
	fs.Int("redis-db", 0, "Redis database number")
	fs.Duration("flush-interval", 0, "Buffer clicks and flush them on this interval (0 writes every click directly)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", logger.FormatConsole, "Log format (console or json)")
	fs.BoolP("verbose", "v", false, "Enable verbose logging (HTTP requests/responses and error details)")
	fs.String("generator", shortener.TypeRandom, "Code generator (random or counter)")
	fs.Int("code-length", shortener.DefaultCodeLength, "Generated code length")
	fs.Int("max-attempts", shortener.DefaultMaxAttempts, "Generated code attempts before giving up")
	fs.Int64("counter-step", 100, "Counter reservation step for the counter generator")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.server_url", "http://localhost:8080")
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("store.type", StoreSQLite)
	v.SetDefault("database.path", "tinylink.db")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.key_prefix", "tinylink:")

	v.SetDefault("clicks.flush_interval", time.Duration(0))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logger.FormatConsole)
	v.SetDefault("logging.verbose", false)

	v.SetDefault("shortener.type", shortener.TypeRandom)
	v.SetDefault("shortener.code_length", shortener.DefaultCodeLength)
	v.SetDefault("shortener.max_attempts", shortener.DefaultMaxAttempts)
	v.SetDefault("shortener.counter_step", 100)
}

// LoadDotEnv loads environment variables from .env files; missing files are ignored
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load resolves the configuration from defaults, an optional config file,
// TINYLINK_* environment variables and flags, in increasing precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	configFile := v.GetString("config")
	if flags != nil {
		if flag := flags.Lookup("config"); flag != nil && flag.Value.String() != "" {
			configFile = flag.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// validate validates the configuration values
func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.Server.ServerURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}

	switch c.Store.Type {
	case StoreSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path cannot be empty")
		}
	case StoreRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
	default:
		return fmt.Errorf("unknown store type: %s", c.Store.Type)
	}

	if c.Clicks.FlushInterval < 0 {
		return fmt.Errorf("click flush interval cannot be negative, got: %v", c.Clicks.FlushInterval)
	}

	switch c.Shortener.Type {
	case shortener.TypeRandom, shortener.TypeCounter:
	default:
		return fmt.Errorf("unknown generator type: %s", c.Shortener.Type)
	}

	if c.Shortener.CodeLength < 1 || c.Shortener.CodeLength > shortener.MaxCodeLength {
		return fmt.Errorf("code length must be between 1 and %d, got: %d", shortener.MaxCodeLength, c.Shortener.CodeLength)
	}

	if c.Shortener.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got: %d", c.Shortener.MaxAttempts)
	}

	if c.Shortener.Type == shortener.TypeCounter && c.Shortener.CounterStep < 1 {
		return fmt.Errorf("counter step must be at least 1, got: %d", c.Shortener.CounterStep)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("unknown log format: %s", c.Logging.Format)
	}

	return nil
}

// Buffered reports whether resolve clicks go through the in-memory buffer
func (c *Config) Buffered() bool {
	return c.Clicks.FlushInterval > 0
}
