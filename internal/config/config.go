package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:"3001"`

	Store            string `env:"STORE" envDefault:"postgres"`
	DatabaseURL      string `env:"DATABASE_URL"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"chatdb"`

	RedisAddr    string        `env:"REDIS_ADDR"`
	ChatCacheTTL time.Duration `env:"CHAT_CACHE_TTL" envDefault:"30s"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"secret"`

	UploadDir      string `env:"UPLOAD_DIR" envDefault:"uploads"`
	BaseURL        string `env:"BASE_URL"`
	MaxUploadBytes int    `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	TypingWindow    time.Duration `env:"TYPING_WINDOW" envDefault:"3s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"text"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"*"`

	// SeedFile optionally names a JSON file of users and chats loaded at startup.
	SeedFile string `env:"SEED_FILE"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	// Ignore error if .env file doesn't exist (e.g. in production)
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE %q (want %q or %q)", c.Store, StorePostgres, StoreMemory)
	}
	if c.TypingWindow <= 0 {
		return fmt.Errorf("config: TYPING_WINDOW must be positive, got %s", c.TypingWindow)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// ConnString returns DATABASE_URL, falling back to the individual POSTGRES_* vars.
func (c Config) ConnString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "postgres://" + c.PostgresUser + ":" + c.PostgresPassword + "@" +
		c.PostgresHost + ":" + c.PostgresPort + "/" + c.PostgresDB + "?sslmode=disable"
}

// PublicURL prefixes a served path with BASE_URL when one is configured.
func (c Config) PublicURL(path string) string {
	if c.BaseURL == "" {
		return path
	}
	return strings.TrimRight(c.BaseURL, "/") + path
}
