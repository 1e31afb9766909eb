package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Broadcast transports.
const (
	TransportPusher = "pusher"
	TransportRedis  = "redis"
)

// Cache stores.
const (
	CacheStoreMemory = "memory"
	CacheStoreRedis  = "redis"
)

// Config holds all listener configuration.
type Config struct {
	// Environment Configuration
	Environment EnvironmentConfig

	// Server Configuration
	HTTPServer HTTPServerConfig
	Logger     LoggerConfig

	// Redis Configuration
	Redis RedisConfig

	// Broadcast Configuration
	Broadcast BroadcastConfig
	Reverb    ReverbConfig

	// DogeOW API Configuration
	API     APIConfig
	Session SessionConfig
	Cache   CacheConfig

	// Authentication & Security Configuration
	JWT JWTConfig
}

// EnvironmentConfig is the configuration for the deployment environment.
type EnvironmentConfig struct {
	Name string `env:"ENV" envDefault:"production"`
}

// HTTPServerConfig is the configuration for the health server.
// Port 0 disables it.
type HTTPServerConfig struct {
	Port int `env:"HTTP_PORT" envDefault:"8081"`
}

// LoggerConfig is the configuration for the logger
type LoggerConfig struct {
	Level        string `env:"LOGGER_LEVEL" envDefault:"info"`
	Mode         string `env:"LOGGER_MODE" envDefault:"production"`
	Encoding     string `env:"LOGGER_ENCODING" envDefault:"json"`
	ColorEnabled bool   `env:"LOGGER_COLOR_ENABLED" envDefault:"false"`
}

// RedisConfig is the configuration for Redis.
// Redis is optional unless the redis transport or cache store is selected.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	UseTLS   bool   `env:"REDIS_USE_TLS" envDefault:"false"`

	// Connection pool settings
	MaxRetries      int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	MinIdleConns    int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	PoolSize        int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	PoolTimeout     time.Duration `env:"REDIS_POOL_TIMEOUT" envDefault:"4s"`
	ConnMaxIdleTime time.Duration `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// Enabled reports whether a Redis host is configured.
func (c RedisConfig) Enabled() bool { return strings.TrimSpace(c.Host) != "" }

// BroadcastConfig selects how broadcasts reach the listener.
type BroadcastConfig struct {
	Transport string `env:"BROADCAST_TRANSPORT" envDefault:"pusher"`
	// RedisPrefix is the key prefix of the Laravel Redis broadcaster.
	RedisPrefix string `env:"BROADCAST_REDIS_PREFIX" envDefault:"laravel_database_"`
}

// ReverbConfig is the configuration for the Reverb websocket server.
type ReverbConfig struct {
	Host            string        `env:"REVERB_HOST" envDefault:"localhost"`
	Port            int           `env:"REVERB_PORT" envDefault:"8080"`
	Scheme          string        `env:"REVERB_SCHEME" envDefault:"http"`
	AppKey          string        `env:"REVERB_APP_KEY"`
	AuthEndpoint    string        `env:"REVERB_AUTH_ENDPOINT"`
	ActivityTimeout time.Duration `env:"REVERB_ACTIVITY_TIMEOUT" envDefault:"30s"`
	InitialBackoff  time.Duration `env:"REVERB_INITIAL_BACKOFF" envDefault:"1s"`
	MaxBackoff      time.Duration `env:"REVERB_MAX_BACKOFF" envDefault:"30s"`
}

// Secure reports whether the websocket should use TLS.
func (c ReverbConfig) Secure() bool { return c.Scheme == "https" }

// APIConfig is the configuration for the DogeOW HTTP API.
type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
}

// AuthEndpoint is the broadcasting auth route, unless overridden.
func (c *Config) AuthEndpoint() string {
	if c.Reverb.AuthEndpoint != "" {
		return c.Reverb.AuthEndpoint
	}
	return strings.TrimRight(c.API.BaseURL, "/") + "/broadcasting/auth"
}

// SessionConfig locates the session file written at login.
type SessionConfig struct {
	Path string `env:"SESSION_FILE" envDefault:".dogeow/session.json"`
}

// CacheConfig is the configuration for the query cache.
type CacheConfig struct {
	Store string        `env:"CACHE_STORE" envDefault:"memory"`
	TTL   time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	// RedisPrefix namespaces cache keys when Store is redis.
	RedisPrefix string `env:"CACHE_REDIS_PREFIX" envDefault:"dogeow:cache:"`
}

// JWTConfig is the configuration for the JWT.
// Only the token command signs tokens; listen never needs the secret.
type JWTConfig struct {
	SecretKey string        `env:"JWT_SECRET_KEY"`
	Issuer    string        `env:"JWT_ISSUER" envDefault:"dogeow"`
	TTL       time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	// Validate required fields
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Broadcast.Transport {
	case TransportPusher, TransportRedis:
	default:
		return fmt.Errorf("unknown BROADCAST_TRANSPORT %q", cfg.Broadcast.Transport)
	}

	// Validate cache store
	switch cfg.Cache.Store {
	case CacheStoreMemory:
	case CacheStoreRedis:
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("REDIS_HOST is required for the redis cache store")
		}
	default:
		return fmt.Errorf("unknown CACHE_STORE %q", cfg.Cache.Store)
	}

	// Validate Redis
	if cfg.Redis.Enabled() && (cfg.Redis.Port <= 0 || cfg.Redis.Port > 65535) {
		return fmt.Errorf("REDIS_PORT is invalid: %d", cfg.Redis.Port)
	}

	if strings.TrimSpace(cfg.Session.Path) == "" {
		return fmt.Errorf("SESSION_FILE is required")
	}

	return nil
}

// ValidateListen checks what the listener needs on top of Load's checks.
func (c *Config) ValidateListen() error {
	switch c.Broadcast.Transport {
	case TransportPusher:
		if c.Reverb.AppKey == "" {
			return fmt.Errorf("REVERB_APP_KEY is required for the pusher transport")
		}
		if c.Reverb.Host == "" {
			return fmt.Errorf("REVERB_HOST is required for the pusher transport")
		}
	case TransportRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("REDIS_HOST is required for the redis transport")
		}
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	return nil
}
