package config

import (
	"time"
)

// SensitiveString is a string that redacts itself when printed.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Config is the complete runtime configuration for Lustra.
type Config struct {
	Engine  EngineConfig  `koanf:"engine"  validate:"required"`
	Auth    AuthConfig    `koanf:"auth"    validate:"required"`
	Blob    BlobConfig    `koanf:"blob"`
	Server  ServerConfig  `koanf:"server"`
	Runtime RuntimeConfig `koanf:"runtime"`
	CLI     CLIConfig     `koanf:"cli"`
}

// EngineConfig points at the remote workflow engine.
type EngineConfig struct {
	BaseURL      string        `koanf:"base_url"      validate:"required,url" env:"ENGINE_BASE_URL"`
	Timeout      time.Duration `koanf:"timeout"                               env:"ENGINE_TIMEOUT"`
	PollInterval time.Duration `koanf:"poll_interval" validate:"min=0"        env:"ENGINE_POLL_INTERVAL"`
	PollTimeout  time.Duration `koanf:"poll_timeout"  validate:"min=0"        env:"ENGINE_POLL_TIMEOUT"`
}

// AuthConfig points at the auth service.
type AuthConfig struct {
	BaseURL string          `koanf:"base_url" validate:"required,url" env:"AUTH_BASE_URL"`
	Token   SensitiveString `koanf:"token"                            env:"AUTH_TOKEN"    sensitive:"true"`
	Timeout time.Duration   `koanf:"timeout"                          env:"AUTH_TIMEOUT"`
}

// BlobConfig holds the blob-store endpoint and signing material.
type BlobConfig struct {
	Endpoint   string          `koanf:"endpoint"    validate:"omitempty,url" env:"BLOB_ENDPOINT"`
	Container  string          `koanf:"container"                            env:"BLOB_CONTAINER"`
	AccountKey SensitiveString `koanf:"account_key"                          env:"BLOB_ACCOUNT_KEY" sensitive:"true"`
	SASExpiry  time.Duration   `koanf:"sas_expiry"                           env:"BLOB_SAS_EXPIRY"`
}

// ServerConfig configures the edge proxy server.
type ServerConfig struct {
	Host          string        `koanf:"host"            validate:"required"        env:"SERVER_HOST"`
	Port          int           `koanf:"port"            validate:"min=1,max=65535" env:"SERVER_PORT"`
	RateLimit     int64         `koanf:"rate_limit"      validate:"min=0"           env:"SERVER_RATE_LIMIT"`
	RatePeriod    time.Duration `koanf:"rate_period"                                env:"SERVER_RATE_PERIOD"`
	MaxUploadSize int64         `koanf:"max_upload_size" validate:"min=0"           env:"SERVER_MAX_UPLOAD_SIZE"`
}

// RuntimeConfig contains process-wide runtime settings.
type RuntimeConfig struct {
	LogLevel  string `koanf:"log_level" validate:"oneof=debug info warn error" env:"RUNTIME_LOG_LEVEL"`
	LogJSON   bool   `koanf:"log_json"                                         env:"RUNTIME_LOG_JSON"`
	LogSource bool   `koanf:"log_source"                                       env:"RUNTIME_LOG_SOURCE"`
}

// CLIConfig contains CLI-only settings.
type CLIConfig struct {
	Timeout   time.Duration `koanf:"timeout"    env:"CLI_TIMEOUT"`
	OutputDir string        `koanf:"output_dir" env:"CLI_OUTPUT_DIR"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			BaseURL:      "http://localhost:8188",
			Timeout:      30 * time.Second,
			PollInterval: 2 * time.Second,
			PollTimeout:  5 * time.Minute,
		},
		Auth: AuthConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Blob: BlobConfig{
			Endpoint:  "http://localhost:10000",
			Container: "uploads",
			SASExpiry: 15 * time.Minute,
		},
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          5055,
			RateLimit:     100,
			RatePeriod:    time.Minute,
			MaxUploadSize: 32 << 20,
		},
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
		CLI: CLIConfig{
			Timeout:   30 * time.Second,
			OutputDir: "outputs",
		},
	}
}
