package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"spystory-server/internal/utils"
)

// Config holds the configuration for the story engine server.
type Config struct {
	// Server settings
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PostgreSQL settings
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Secret field WITHOUT an envconfig tag, loaded from the secrets file.
	DBPassword string

	// Redis (session transition guard)
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	SessionGuardTTL time.Duration `envconfig:"SESSION_GUARD_TTL" default:"90s"`

	// RabbitMQ (client update fan-out)
	RabbitMQURL            string `envconfig:"RABBITMQ_URL" default:""`
	ClientUpdatesQueueName string `envconfig:"CLIENT_UPDATES_QUEUE_NAME" default:"client_updates"`

	// Generation collaborator
	GenerationBackend string        `envconfig:"GENERATION_BACKEND" default:"openai"` // openai or ollama
	GenerationModel   string        `envconfig:"GENERATION_MODEL" default:"gpt-4o-mini"`
	GenerationBaseURL string        `envconfig:"GENERATION_BASE_URL" default:""`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"60s"`
	OllamaHost        string        `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`
	// Secret field WITHOUT an envconfig tag.
	GenerationAPIKey string

	// JWT (user token verification in middleware)
	// Secret field WITHOUT an envconfig tag.
	JWTSecret string
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads configuration from environment variables and secret files.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	// The API key is only required for the hosted backend; ollama runs local.
	if cfg.GenerationBackend == "openai" {
		cfg.GenerationAPIKey, loadErr = utils.ReadSecret("generation_api_key")
		if loadErr != nil {
			return nil, loadErr
		}
	}

	return &cfg, nil
}
