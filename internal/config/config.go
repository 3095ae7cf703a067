package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr        string
		CORSOrigins []string
	}
	Log struct {
		Level  string
		Format string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
		BcryptCost      int
	}
	Products struct {
		Path         string
		FallbackPath string
	}
	Database struct {
		Path         string
		FallbackPath string
	}
	Postgres struct {
		DSN            string
		ConnectTimeout time.Duration
		MaxConns       int32
	}
}

// TokenTTL is the lifetime of issued access tokens.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// Load reads configuration from environment variables and optional config files.
// Variables use the INVOICING_ prefix, e.g. INVOICING_POSTGRES_DSN.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional; existing env vars win

	v := viper.New()
	v.SetEnvPrefix("INVOICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fallbackRoot := filepath.Join(os.TempDir(), "invoicing-api")

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.corsorigins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 60)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("products.path", "data/products.json")
	v.SetDefault("products.fallbackpath", filepath.Join(fallbackRoot, "products.json"))
	v.SetDefault("database.path", "data/invoicing.db")
	v.SetDefault("database.fallbackpath", filepath.Join(fallbackRoot, "invoicing.db"))
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.connecttimeout", "5s")
	v.SetDefault("postgres.maxconns", 4)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return Config{}, fmt.Errorf("auth jwt secret is required (INVOICING_AUTH_JWTSECRET)")
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		return Config{}, fmt.Errorf("auth token ttl must be positive, got %d", cfg.Auth.TokenTTLMinutes)
	}

	return cfg, nil
}
