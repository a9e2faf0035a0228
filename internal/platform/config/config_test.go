package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_MODE", "dev")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.Port != "8080" || cfg.StorageBackend != StorageMemory || cfg.AuthMode != AuthModeDev {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Firebase.PlansCollection != "plans" || cfg.Firebase.UsersCollection != "users" {
		t.Fatalf("unexpected collection defaults: %+v", cfg.Firebase)
	}
	if cfg.ShutdownTimeout != 10*time.Second || cfg.MaintenanceEndpoints || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_FirebaseRequiresProject(t *testing.T) {
	t.Setenv("AUTH_MODE", "firebase")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "FIREBASE_PROJECT_ID") {
		t.Fatalf("err=%v, want FIREBASE_PROJECT_ID error", err)
	}

	t.Setenv("FIREBASE_PROJECT_ID", "demo")
	t.Setenv("FIREBASE_PLANS_COLLECTION", "trips")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.Firebase.ProjectID != "demo" || cfg.Firebase.PlansCollection != "trips" {
		t.Fatalf("unexpected firebase config: %+v", cfg.Firebase)
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("AUTH_MODE", "dev")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected DATABASE_URL error")
	}
}

func TestLoad_RejectsUnknownModes(t *testing.T) {
	t.Setenv("AUTH_MODE", "basic")
	if _, err := Load(); err == nil {
		t.Fatalf("expected AUTH_MODE error")
	}

	t.Setenv("AUTH_MODE", "dev")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatalf("expected STORAGE_BACKEND error")
	}
}

func TestLoadJWTConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_AUDIENCE", "aud")
	t.Setenv("JWT_JWKS_URL", "http://jwks")
	if _, err := LoadJWTConfigFromEnv(); err == nil {
		t.Fatalf("expected missing issuer error")
	}

	t.Setenv("JWT_ISSUER", "iss")
	t.Setenv("JWT_CLOCK_SKEW", "1m")
	cfg, err := LoadJWTConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadJWTConfigFromEnv() err=%v", err)
	}
	if cfg.ClockSkew != time.Minute || cfg.JWKSRefreshInterval != 5*time.Minute || cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}

	t.Setenv("JWT_CLOCK_SKEW", "soon")
	if _, err := LoadJWTConfigFromEnv(); err == nil {
		t.Fatalf("expected duration parse error")
	}
}
