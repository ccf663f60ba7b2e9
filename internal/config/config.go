package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nulzo/bifrost/pkg/api"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Store     StoreConfig      `mapstructure:"store"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Auth      AuthConfig       `mapstructure:"auth"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Tracing   TracingConfig    `mapstructure:"tracing"`
	Providers []ProviderConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type StoreConfig struct {
	// SQLite DSN, e.g. "file:bifrost.db?_journal_mode=WAL&_busy_timeout=5000"
	DSN string `mapstructure:"dsn"`
}

type CacheConfig struct {
	// "memory" or "redis"
	Type     string `mapstructure:"type"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	// RejectInvalidKeys hard-fails requests carrying an unknown or inactive
	// virtual key with 403. When false such requests are treated exactly
	// like requests with no credential: unrestricted, never a partial filter.
	RejectInvalidKeys bool `mapstructure:"reject_invalid_keys"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ProviderConfig represents the configuration for a single upstream provider.
// Name doubles as the public model prefix (`<name>/<model>`).
type ProviderConfig struct {
	Name    string                `mapstructure:"name" json:"name"`
	Type    string                `mapstructure:"type" json:"type"` // adapter type: "openai", "anthropic"
	APIKey  string                `mapstructure:"api_key" json:"-" validate:"required"`
	BaseURL string                `mapstructure:"base_url" json:"base_url"`
	Models  []api.ModelDefinition `mapstructure:"models" json:"models"`
	Config  map[string]string     `mapstructure:"config" json:"config"`
	Enabled bool                  `mapstructure:"enabled" json:"enabled"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Default Values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("store.dsn", "file:bifrost.db?_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("cache.type", "memory")
	v.SetDefault("auth.reject_invalid_keys", false)
	v.SetDefault("rate_limit.requests_per_second", 50.0)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("tracing.enabled", false)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Resolve API Keys
	for i, p := range cfg.Providers {
		if strings.HasPrefix(p.APIKey, "ENV:") {
			envVar := strings.TrimPrefix(p.APIKey, "ENV:")
			val := os.Getenv(envVar)
			if val == "" {
				val = v.GetString(envVar)
			}
			cfg.Providers[i].APIKey = val
		}
	}

	return &cfg, nil
}
