package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

func TestThatLoadFailsWithoutJWTSecret(t *testing.T) {
	t.Setenv("AGROSENSE_JWT_SECRET", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingJWTSecret) {
		t.Errorf("Expected ErrMissingJWTSecret, got %v", err)
	}
}

func TestThatLoadAppliesDefaults(t *testing.T) {
	t.Setenv("AGROSENSE_JWT_SECRET", "secret")
	t.Setenv("SERVICE_PORT", "")
	t.Setenv("AGROSENSE_HTTP_TIMEOUT", "")
	t.Setenv("AGROSENSE_EVAPO_CACHE_TTL", "")
	t.Setenv("AGROSENSE_DB_SSLMODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %s", err.Error())
	}

	if cfg.Port != "8880" {
		t.Errorf("Unexpected default port %s", cfg.Port)
	}

	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("Unexpected default http timeout %s", cfg.HTTPTimeout)
	}

	if cfg.EvapotranspirationCacheTTL != time.Hour {
		t.Errorf("Unexpected default cache ttl %s", cfg.EvapotranspirationCacheTTL)
	}

	if cfg.Database.SSLMode != "require" {
		t.Errorf("Unexpected default sslmode %s", cfg.Database.SSLMode)
	}
}

func TestThatLoadRejectsMalformedDurations(t *testing.T) {
	t.Setenv("AGROSENSE_JWT_SECRET", "secret")
	t.Setenv("AGROSENSE_HTTP_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Error("Expected an error for a malformed duration")
	}
}

func TestThatLoadRejectsZeroHTTPTimeout(t *testing.T) {
	t.Setenv("AGROSENSE_JWT_SECRET", "secret")
	t.Setenv("AGROSENSE_HTTP_TIMEOUT", "0s")

	if _, err := Load(); err == nil {
		t.Error("Expected an error for a zero http timeout")
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", User: "u", Name: "n", Password: "p", SSLMode: "disable"}
	expected := "host=h user=u dbname=n sslmode=disable password=p"

	if db.DSN() != expected {
		t.Errorf("DSN mismatch: %s != %s", db.DSN(), expected)
	}
}
