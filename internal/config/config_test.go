package config

import (
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TABLE_NAME", "inventory-test")
	t.Setenv("COGNITO_USER_POOL_ID", "us-east-1_abc123")
	t.Setenv("COGNITO_CLIENT_ID", "client-abc")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.CrossSiteCookies {
		t.Errorf("CrossSiteCookies should default to false outside production")
	}
	if got := cfg.Addr(); got != ":8080" {
		t.Errorf("Addr() = %q, want :8080", got)
	}
}

func TestLoadMissingTableName(t *testing.T) {
	t.Setenv("TABLE_NAME", "")
	t.Setenv("COGNITO_USER_POOL_ID", "us-east-1_abc123")
	t.Setenv("COGNITO_CLIENT_ID", "client-abc")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for empty TABLE_NAME")
	}
}

func TestLoadInvalidUserPoolID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COGNITO_USER_POOL_ID", "not-a-pool-id")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for malformed pool id")
	}
}

func TestProductionForcesCrossSiteCookies(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "Production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.CrossSiteCookies {
		t.Error("CrossSiteCookies should be forced on in production")
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want lowercased production", cfg.Environment)
	}
}

func TestCognitoIssuerAndJWKSURL(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wantIssuer := "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_abc123"
	if got := cfg.CognitoIssuer(); got != wantIssuer {
		t.Errorf("CognitoIssuer() = %q, want %q", got, wantIssuer)
	}
	if got := cfg.JWKSURL(); got != wantIssuer+"/.well-known/jwks.json" {
		t.Errorf("JWKSURL() = %q", got)
	}
}
