package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev   bool   `env:"LOG_DEV" envDefault:"false"`

	DatabaseDSN string `env:"DATABASE_DSN,required"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Token verification. When KeycloakIssuer is set the service verifies
	// bearer tokens via OIDC discovery; otherwise TokenSigningKey is used
	// as a static HMAC key (local development only).
	KeycloakIssuer   string `env:"KEYCLOAK_ISSUER"`
	KeycloakClientID string `env:"KEYCLOAK_CLIENT_ID" envDefault:"identity-service"`
	TokenSigningKey  string `env:"TOKEN_SIGNING_KEY"`

	// Keycloak admin API.
	KeycloakBaseURL           string        `env:"KEYCLOAK_BASE_URL"`
	KeycloakRealm             string        `env:"KEYCLOAK_REALM" envDefault:"identity"`
	KeycloakAdminClientID     string        `env:"KEYCLOAK_ADMIN_CLIENT_ID" envDefault:"admin-cli"`
	KeycloakAdminClientSecret string        `env:"KEYCLOAK_ADMIN_CLIENT_SECRET"`
	KeycloakTimeout           time.Duration `env:"KEYCLOAK_TIMEOUT" envDefault:"5s"`

	// Downstream user-service lookup.
	UserServiceBaseURL string        `env:"USER_SERVICE_BASE_URL"`
	UserServiceTimeout time.Duration `env:"USER_SERVICE_TIMEOUT" envDefault:"3s"`

	// Circuit breaker guarding the downstream lookup.
	BreakerFailureThreshold uint32        `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	BreakerCooldown         time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
	BreakerHalfOpenCalls    uint32        `env:"BREAKER_HALF_OPEN_CALLS" envDefault:"2"`

	// Event pipeline.
	EventTopic          string        `env:"EVENT_TOPIC" envDefault:"user.events"`
	EventQueueSize      int           `env:"EVENT_QUEUE_SIZE" envDefault:"256"`
	EventWorkers        int           `env:"EVENT_WORKERS" envDefault:"2"`
	EventPublishTimeout time.Duration `env:"EVENT_PUBLISH_TIMEOUT" envDefault:"5s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
