package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Checkout  CheckoutConfig  `yaml:"checkout" mapstructure:"checkout"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	// ConnectAttempts bounds retries while the database is unreachable.
	ConnectAttempts int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// PricingConfig selects where base prices come from.
type PricingConfig struct {
	// Source is "static", "file" or "store".
	Source        string `yaml:"source" mapstructure:"source"`
	MatrixPath    string `yaml:"matrix_path" mapstructure:"matrix_path"`
	MatrixSheet   string `yaml:"matrix_sheet" mapstructure:"matrix_sheet"`
	FallbackPrice int    `yaml:"fallback_price" mapstructure:"fallback_price"`
}

// CheckoutConfig holds eligibility limits applied before an order is accepted.
type CheckoutConfig struct {
	MaxMileage  int `yaml:"max_mileage" mapstructure:"max_mileage"`
	MaxAgeYears int `yaml:"max_age_years" mapstructure:"max_age_years"`
}

// ServerConfig configures the quote API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RateLimitConfig configures the per-client token bucket on the API.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	// TrustedProxies is how many reverse proxies append to X-Forwarded-For.
	// 0 means clients connect directly and the header is ignored.
	TrustedProxies int `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, a config file and the environment.
// An empty path searches the working directory for an optional config.yaml;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("WARRANTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "warranty.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.connect_attempts", 5)
	v.SetDefault("pricing.source", "static")
	v.SetDefault("pricing.matrix_path", "")
	v.SetDefault("pricing.matrix_sheet", "")
	v.SetDefault("pricing.fallback_price", 467)
	v.SetDefault("checkout.max_mileage", 150000)
	v.SetDefault("checkout.max_age_years", 15)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"https://buyawarranty.co.uk", "https://www.buyawarranty.co.uk"})
	v.SetDefault("ratelimit.requests_per_second", 10.0)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.trusted_proxies", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	switch c.Pricing.Source {
	case "static", "store":
	case "file":
		if c.Pricing.MatrixPath == "" {
			return eris.New("config: pricing.matrix_path is required when pricing.source is file")
		}
	default:
		return eris.Errorf("config: unsupported pricing source %q", c.Pricing.Source)
	}
	if c.Pricing.FallbackPrice <= 0 {
		return eris.New("config: pricing.fallback_price must be positive")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 || c.RateLimit.TrustedProxies < 0 {
		return eris.New("config: ratelimit values must not be negative")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
