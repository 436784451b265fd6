package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the client settings, read from CIPHERGROUP_* variables
// (CIPHERGROUP_HOME, CIPHERGROUP_RELAY_URL and so on).
type Config struct {
	Home         string        `split_words:"true" validate:"required"`
	RelayURL     string        `split_words:"true" default:"http://127.0.0.1:8080" validate:"required,url"`
	RelayTimeout time.Duration `split_words:"true" default:"10s" validate:"gt=0"`
	PollInterval time.Duration `split_words:"true" default:"3s" validate:"gt=0"`
	ReplayWindow time.Duration `split_words:"true" default:"300s" validate:"gt=0"`
	LogLevel     string        `split_words:"true" default:"info" validate:"oneof=trace debug info warn warning error"`
}

// RelayConfig holds the relay server settings, read from RELAY_* variables.
type RelayConfig struct {
	Addr        string        `split_words:"true" default:":8080" validate:"required"`
	DatabaseURL string        `split_words:"true"`
	Retention   time.Duration `split_words:"true" default:"0s" validate:"gte=0"`
	TLSCert     string        `split_words:"true" validate:"required_with=TLSKey"`
	TLSKey      string        `split_words:"true" validate:"required_with=TLSCert"`
	LogLevel    string        `split_words:"true" default:"info" validate:"oneof=trace debug info warn warning error"`
}

var validate = validator.New()

// LoadConfig reads the client configuration. A .env file in the working
// directory is applied first when present; real environment variables win.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ciphergroup", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		cfg.Home = filepath.Join(dir, ".ciphergroup")
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadRelayConfig reads and validates the relay configuration.
func LoadRelayConfig() (RelayConfig, error) {
	_ = godotenv.Load()

	var cfg RelayConfig
	if err := envconfig.Process("relay", &cfg); err != nil {
		return RelayConfig{}, fmt.Errorf("load relay config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return RelayConfig{}, fmt.Errorf("invalid relay config: %w", err)
	}
	return cfg, nil
}

// TLS reports whether the relay should serve HTTPS.
func (c RelayConfig) TLS() bool { return c.TLSCert != "" && c.TLSKey != "" }
