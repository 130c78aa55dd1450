package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all environment backed configuration for inventory-api.
type Config struct {
	// HTTP Server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"inventory-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// AWS / DynamoDB
	AWSRegion       string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID  string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey    string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoEndpoint  string `env:"DYNAMODB_ENDPOINT"`
	TableName       string `env:"TABLE_NAME,notEmpty"`
	CognitoEndpoint string `env:"COGNITO_ENDPOINT"`

	// Cognito / Auth
	CognitoUserPoolID   string        `env:"COGNITO_USER_POOL_ID,notEmpty"`
	CognitoClientID     string        `env:"COGNITO_CLIENT_ID,notEmpty"`
	RefreshJWKSInterval time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"5m"`
	ClockSkew           time.Duration `env:"AUTH_CLOCK_SKEW" envDefault:"30s"`

	// Session cookies
	CrossSiteCookies bool `env:"CROSS_SITE_COOKIES"`

	// Features
	SeedDefaultRoles bool `env:"SEED_DEFAULT_ROLES" envDefault:"true"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if cfg.AWSRegion == "" {
		return nil, errors.New("AWS_REGION must not be empty")
	}
	if !strings.Contains(cfg.CognitoUserPoolID, "_") {
		return nil, fmt.Errorf("invalid COGNITO_USER_POOL_ID %q: expected <region>_<id>", cfg.CognitoUserPoolID)
	}

	// Browsers reject SameSite=None without Secure, so cross-site mode is
	// forced on in production where the frontend runs on another origin.
	if cfg.Environment == "production" {
		cfg.CrossSiteCookies = true
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// CognitoIssuer returns the expected token issuer for the configured user pool.
func (c *Config) CognitoIssuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.AWSRegion, c.CognitoUserPoolID)
}

// JWKSURL returns the JWKS endpoint published by the user pool.
func (c *Config) JWKSURL() string {
	return c.CognitoIssuer() + "/.well-known/jwks.json"
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
