package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "dataclean/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Jobs      JobsConfig      `yaml:"jobs" envconfig:"JOBS"`
	Tracing   TracingConfig   `yaml:"tracing" envconfig:"TRACING"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"104857600"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// StorageConfig contains file storage configuration
type StorageConfig struct {
	UploadDir string `yaml:"upload_dir" envconfig:"UPLOAD_DIR" default:"data/uploads"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"data/outputs"`
	SchemaDir string `yaml:"schema_dir" envconfig:"SCHEMA_DIR" default:"data/schemas"`
}

// JobsConfig contains job orchestration configuration
type JobsConfig struct {
	Workers   int           `yaml:"workers" envconfig:"WORKERS" default:"4"`
	QueueSize int           `yaml:"queue_size" envconfig:"QUEUE_SIZE" default:"64"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"10m"`
	Store     string        `yaml:"store" envconfig:"STORE" default:"memory"`
	SQLitePath string       `yaml:"sqlite_path" envconfig:"SQLITE_PATH" default:"data/jobs.db"`
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"dataclean"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("DATACLEAN", &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).WithContext("path", configFile)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}

	// Ensure storage directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, apperrors.NewConfigError("failed to ensure directories", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.Storage.UploadDir == "" {
		envConfig.Storage.UploadDir = fileConfig.Storage.UploadDir
	}
	if envConfig.Storage.OutputDir == "" {
		envConfig.Storage.OutputDir = fileConfig.Storage.OutputDir
	}
	if envConfig.Storage.SchemaDir == "" {
		envConfig.Storage.SchemaDir = fileConfig.Storage.SchemaDir
	}
	if envConfig.Jobs.Workers == 0 {
		envConfig.Jobs.Workers = fileConfig.Jobs.Workers
	}
	if envConfig.Jobs.QueueSize == 0 {
		envConfig.Jobs.QueueSize = fileConfig.Jobs.QueueSize
	}
	if envConfig.Jobs.Timeout == 0 {
		envConfig.Jobs.Timeout = fileConfig.Jobs.Timeout
	}
	if envConfig.Jobs.Store == "" {
		envConfig.Jobs.Store = fileConfig.Jobs.Store
	}

	return envConfig
}

// EnsureDirectories creates the storage and log directories when missing
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.UploadDir,
		c.Storage.OutputDir,
		c.Storage.SchemaDir,
		filepath.Dir(c.Logging.FilePath),
	}
	if c.Jobs.Store == "sqlite" {
		dirs = append(dirs, filepath.Dir(c.Jobs.SQLitePath))
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs workers must be positive, got %d", c.Jobs.Workers)
	}

	if c.Jobs.QueueSize <= 0 {
		return fmt.Errorf("jobs queue size must be positive, got %d", c.Jobs.QueueSize)
	}

	if c.Jobs.Timeout <= 0 {
		return fmt.Errorf("jobs timeout must be positive")
	}

	if c.Jobs.Store != "memory" && c.Jobs.Store != "sqlite" {
		return fmt.Errorf("unknown jobs store %q (want memory or sqlite)", c.Jobs.Store)
	}

	if c.Logging.Format != "json" {
		// Always JSON; text output is not supported.
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  100 << 20, // 100MB
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Storage: StorageConfig{
			UploadDir: "data/uploads",
			OutputDir: "data/outputs",
			SchemaDir: "data/schemas",
		},
		Jobs: JobsConfig{
			Workers:    4,
			QueueSize:  64,
			Timeout:    10 * time.Minute,
			Store:      "memory",
			SQLitePath: "data/jobs.db",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "dataclean",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
