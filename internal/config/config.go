package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration loaded from the environment,
// an optional .env file and an optional config file.
type Config struct {
	ServerPort  string
	SwaggerHost string

	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int
	DBMaxIdleConns int
	ResetDB        bool

	RedisAddr        string
	RedisPass        string
	RedisDB          int
	CacheAbsoluteTTL time.Duration
	CacheSlidingTTL  time.Duration

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	LogLevel  string
	LogFormat string

	CORSAllowedOrigins []string
	AuthRateLimit      float64
	AuthRateBurst      int

	ReconcileSchedule string
	SeedFile          string
}

const defaultMySQLDSN = "user:password@tcp(localhost:3306)/carrental?charset=utf8mb4&parseTime=True&loc=UTC"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("swagger_host", "")
	v.SetDefault("db_driver", "mysql")
	v.SetDefault("db_dsn", defaultMySQLDSN)
	v.SetDefault("db_max_open_conns", 50)
	v.SetDefault("db_max_idle_conns", 10)
	v.SetDefault("reset_db", false)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_absolute_ttl", "10m")
	v.SetDefault("cache_sliding_ttl", "5m")
	v.SetDefault("jwt_secret", "change-me")
	v.SetDefault("jwt_issuer", "carrental")
	v.SetDefault("access_token_ttl", "15m")
	v.SetDefault("refresh_token_ttl", "168h")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("auth_rate_limit", 5.0)
	v.SetDefault("auth_rate_burst", 10)
	v.SetDefault("reconcile_schedule", "0 */15 * * * *")
	v.SetDefault("seed_file", "seed.json")
}

// Load builds Config with sensible defaults. Real environment variables win
// over .env entries, which win over the config file.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional .env, never overrides the environment

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:        v.GetString("server_port"),
		SwaggerHost:       v.GetString("swagger_host"),
		DBDriver:          strings.ToLower(v.GetString("db_driver")),
		DBDSN:             v.GetString("db_dsn"),
		DBMaxOpenConns:    v.GetInt("db_max_open_conns"),
		DBMaxIdleConns:    v.GetInt("db_max_idle_conns"),
		ResetDB:           v.GetBool("reset_db"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPass:         v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		CacheAbsoluteTTL:  v.GetDuration("cache_absolute_ttl"),
		CacheSlidingTTL:   v.GetDuration("cache_sliding_ttl"),
		JWTSecret:         v.GetString("jwt_secret"),
		JWTIssuer:         v.GetString("jwt_issuer"),
		AccessTokenTTL:    v.GetDuration("access_token_ttl"),
		RefreshTokenTTL:   v.GetDuration("refresh_token_ttl"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		AuthRateLimit:     v.GetFloat64("auth_rate_limit"),
		AuthRateBurst:     v.GetInt("auth_rate_burst"),
		ReconcileSchedule: v.GetString("reconcile_schedule"),
		SeedFile:          v.GetString("seed_file"),
	}
	cfg.CORSAllowedOrigins = splitList(v.GetString("cors_allowed_origins"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.CacheAbsoluteTTL <= 0 || c.CacheSlidingTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
