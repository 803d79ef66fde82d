package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

// Environments recognised by APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers recognised by STORE_DRIVER.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port        int    `env:"PORT,default=8001"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	AppEnv      string `env:"APP_ENV,default=development"`
	CORSOrigins string `env:"CORS_ORIGINS,default=*"`

	// Document store
	StoreDriver string `env:"STORE_DRIVER,default=mongo"`
	MongoURL    string `env:"MONGO_URL,default=mongodb://localhost:27017"`
	DBName      string `env:"DB_NAME,default=fuel_portal"`

	// Verification codes (empty = codes kept in the document store)
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	// JWT / Auth
	JWTSecret string        `env:"JWT_SECRET,default=fuel-portal-dev-secret-change-me"`
	JWTTTL    time.Duration `env:"JWT_TTL,default=24h"`

	// Email (SMTP)
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	// WhatsApp gateway (Z-API)
	ZAPIBaseURL       string        `env:"ZAPI_BASE_URL,default=https://api.z-api.io"`
	ZAPIInstanceID    string        `env:"ZAPI_INSTANCE_ID"`
	ZAPIToken         string        `env:"ZAPI_TOKEN"`
	ZAPISecurityToken string        `env:"ZAPI_SECURITY_TOKEN"`
	WhatsAppTimeout   time.Duration `env:"WHATSAPP_TIMEOUT,default=10s"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT,default=10s"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES,default=3"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF,default=100ms"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY,default=50"`

	// Cache
	CacheTTL time.Duration `env:"CACHE_TTL,default=30s"`

	// Observability
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return nil, fmt.Errorf("mapping env variables to config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q (want %s or %s)", c.StoreDriver, StoreMongo, StoreMemory)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	return nil
}

// IsProduction reports whether dev-only endpoints must be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, EnvProduction)
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// EmailConfigured reports whether SMTP delivery can be attempted.
func (c *Config) EmailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// WhatsAppConfigured reports whether the Z-API gateway can be called.
func (c *Config) WhatsAppConfigured() bool {
	return c.ZAPIInstanceID != "" && c.ZAPIToken != ""
}
