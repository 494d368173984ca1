package config

import (
	"testing"
	"time"
)

func validConfig(env string) Config {
	return Config{
		App:   AppConfig{Env: env, Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "billing"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig("production")
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validConfig("local")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Billing.Locale != "es" {
		t.Fatalf("expected es locale default, got %q", c.Billing.Locale)
	}
	if c.Billing.TimeZone != "Local" {
		t.Fatalf("expected Local zone default, got %q", c.Billing.TimeZone)
	}
	if c.Billing.InvoiceLockTTL != 30*time.Second {
		t.Fatalf("expected 30s lock ttl, got %v", c.Billing.InvoiceLockTTL)
	}
}

func TestValidate_RejectsUnknownLocaleAndZone(t *testing.T) {
	c := validConfig("dev")
	c.Billing.Locale = "fr"
	c.Billing.TimeZone = "Mars/Olympus"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for bad locale and zone")
	}
}

func TestValidateStorage_DoesNotNeedAuth(t *testing.T) {
	c := validConfig("local")
	c.Auth = AuthConfig{}
	c.App.Port = 0
	if err := c.ValidateStorage(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "billing")
	t.Setenv("DB_NAME", "billing")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("BILLING_LOCALE", "EN")
	t.Setenv("BILLING_TIMEZONE", "UTC")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.Billing.Locale != "en" {
		t.Fatalf("expected lowercased locale, got %q", c.Billing.Locale)
	}
	if c.Location().String() != "UTC" {
		t.Fatalf("unexpected location %v", c.Location())
	}
	if c.RedisAddr() != "redis:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
}

func TestLoadStorage_IgnoresMissingPort(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "billing")
	t.Setenv("DB_NAME", "billing")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")

	if _, err := LoadStorage(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
