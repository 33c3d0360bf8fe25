package configs

import (
	"fmt"
	"time"

	"github.com/focusritual/collab/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Auth        AuthConfig        `koanf:"auth"`
	RateLimiter RateLimiterConfig `koanf:"rate_limiter"`
	Redis       RedisConfig       `koanf:"redis"`
	Rooms       RoomsConfig       `koanf:"rooms"`
	Uploads     UploadsConfig     `koanf:"uploads"`
	Timer       TimerConfig       `koanf:"timer"`
	Tracing     TracingConfig     `koanf:"tracing"`
	Logging     LoggingConfig     `koanf:"logging"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type AuthConfig struct {
	Secret      string `koanf:"secret"`
	AllowGuests bool   `koanf:"allow_guests"`
}

type RateLimiterConfig struct {
	Backend         string        `koanf:"backend"` // "memory" or "redis"
	Limit           int           `koanf:"limit"`
	Window          time.Duration `koanf:"window"`
	SourceHeaderKey string        `koanf:"source_header_key"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type RoomsConfig struct {
	Capacity   uint          `koanf:"capacity"`
	IdleExpiry time.Duration `koanf:"idle_expiry"`
}

type UploadsConfig struct {
	Dir          string   `koanf:"dir"`
	MaxBytes     int64    `koanf:"max_bytes"`
	AllowedTypes []string `koanf:"allowed_types"`
}

type TimerConfig struct {
	WorkSeconds  int `koanf:"work_seconds"`
	BreakSeconds int `koanf:"break_seconds"`
}

type TracingConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
}

type LoggingConfig struct {
	Logger   string `koanf:"logger"` // "zap" or "zerolog"
	Level    string `koanf:"level"`
	Encoding string `koanf:"encoding"`
	FilePath string `koanf:"file_path"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization"})

	setDefault(k, "auth.allow_guests", true)

	setDefault(k, "rate_limiter.backend", "memory")
	setDefault(k, "rate_limiter.limit", 20)
	setDefault(k, "rate_limiter.window", time.Second)
	setDefault(k, "rate_limiter.source_header_key", "X-Forwarded-For")

	setDefault(k, "redis.addr", "localhost:6379")
	setDefault(k, "redis.db", 0)

	setDefault(k, "rooms.capacity", 100)
	setDefault(k, "rooms.idle_expiry", time.Hour)

	setDefault(k, "uploads.dir", "./uploads")
	setDefault(k, "uploads.max_bytes", 10<<20)
	setDefault(k, "uploads.allowed_types", []string{
		"image/png", "image/jpeg", "image/gif", "application/pdf", "text/plain",
	})

	setDefault(k, "timer.work_seconds", 1500)
	setDefault(k, "timer.break_seconds", 300)

	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.endpoint", "http://localhost:4318")

	setDefault(k, "logging.logger", "zap")
	setDefault(k, "logging.level", "info")
	setDefault(k, "logging.encoding", "json")
	setDefault(k, "logging.file_path", "")
}

func applyEnvOverrides(k *koanf.Koanf) {
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if secret := env.GetString("AUTH_SECRET", ""); secret != "" {
		k.Set("auth.secret", secret)
	}
	k.Set("auth.allow_guests", env.GetBool("AUTH_ALLOW_GUESTS", k.Bool("auth.allow_guests")))
	if addr := env.GetString("REDIS_ADDR", ""); addr != "" {
		k.Set("redis.addr", addr)
	}
	if backend := env.GetString("RATE_LIMIT_BACKEND", ""); backend != "" {
		k.Set("rate_limiter.backend", backend)
	}
	if limit := env.GetInt("RATE_LIMIT_LIMIT", 0); limit > 0 {
		k.Set("rate_limiter.limit", limit)
	}
	if window := env.GetDuration("RATE_LIMIT_WINDOW", 0); window > 0 {
		k.Set("rate_limiter.window", window)
	}
	if dir := env.GetString("UPLOADS_DIR", ""); dir != "" {
		k.Set("uploads.dir", dir)
	}
	if maxBytes := env.GetInt("UPLOADS_MAX_BYTES", 0); maxBytes > 0 {
		k.Set("uploads.max_bytes", int64(maxBytes))
	}
	if endpoint := env.GetString("OTLP_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", true)
	}
	if logger := env.GetString("LOGGER", ""); logger != "" {
		k.Set("logging.logger", logger)
	}
	if level := env.GetString("LOG_LEVEL", ""); level != "" {
		k.Set("logging.level", level)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
