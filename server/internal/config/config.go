package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort        = 8080
	DefaultDataPath        = "q-vercel-latency.json"
	DefaultMaxBodyBytes    = 1 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
)

// Config holds the configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the query API listens on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// DataPath is the telemetry dataset file, .json or .parquet.
	// It is read once at startup; changing it requires a restart.
	DataPath string `yaml:"data_path"`

	// MaxBodyBytes caps the size of a query request body (default 1 MiB).
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	// Zero waits for them indefinitely.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	CORS CORSConfig `yaml:"cors"`
	Log  LogConfig  `yaml:"log"`
}

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API. "*" allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowCredentials sets Access-Control-Allow-Credentials. When true the
	// request origin is echoed back instead of "*".
	AllowCredentials bool `yaml:"allow_credentials"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of: debug | info | warn | error. Hot-reloadable.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// SlogLevel returns Level as a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        DefaultHTTPPort,
			DataPath:        DefaultDataPath,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			ShutdownTimeout: DefaultShutdownTimeout,
			CORS: CORSConfig{
				AllowedOrigins:   []string{"*"},
				AllowCredentials: true,
			},
			Log: LogConfig{
				Level:  DefaultLogLevel,
				Format: DefaultLogFormat,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if strings.TrimSpace(s.DataPath) == "" {
		return fmt.Errorf("server.data_path must not be empty")
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log.level %q unknown: want debug|info|warn|error", s.Log.Level)
	}
	switch s.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("server.log.format %q unknown: want json|text", s.Log.Format)
	}
	return nil
}
