package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		Prometheus struct {
			Enabled bool   `mapstructure:"enabled"`
			Port    string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Store struct {
		Backend string `mapstructure:"backend"`
		Seed    bool   `mapstructure:"seed"`
		Cache   struct {
			Enabled         bool          `mapstructure:"enabled"`
			TTL             time.Duration `mapstructure:"ttl"`
			CleanupInterval time.Duration `mapstructure:"cleanupInterval"`
		} `mapstructure:"cache"`
	} `mapstructure:"store"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
			MaxConns int32  `mapstructure:"maxConns"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort     string        `mapstructure:"HTTPPort"`
		Timeout      time.Duration `mapstructure:"HTTPTimeout"`
		ReadTimeout  time.Duration `mapstructure:"readTimeout"`
		WriteTimeout time.Duration `mapstructure:"writeTimeout"`
		IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
	} `mapstructure:"server"`
	RateLimit struct {
		Enabled           bool `mapstructure:"enabled"`
		RequestsPerMinute int  `mapstructure:"requestsPerMinute"`
	} `mapstructure:"rateLimit"`
}

// InitConfig loads config.yml from the usual locations, falling back to the
// embedded copy. Environment variables override file values, with dots
// replaced by underscores (server.HTTPPort -> SERVER_HTTPPORT).
func InitConfig() (Config, error) {
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	return decode(v)
}

// Load reads configuration from yml content only. Used by tests and tools
// that must not depend on the working directory.
func Load(content []byte) (Config, error) {
	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return decode(v)
}

// Embedded returns the configuration compiled into the binary.
func Embedded() (Config, error) {
	return Load(embeddedConfig)
}

func decode(v *viper.Viper) (Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendMemory, StoreBackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q (want %q or %q)", c.Store.Backend, StoreBackendMemory, StoreBackendPostgres)
	}
	if c.Server.HTTPPort == "" {
		return fmt.Errorf("server.HTTPPort must be set")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rateLimit.requestsPerMinute must be positive when rate limiting is enabled")
	}
	return nil
}
