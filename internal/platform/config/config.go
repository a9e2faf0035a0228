package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	AuthModeFirebase = "firebase"
	AuthModeJWT      = "jwt"
	AuthModeDev      = "dev"

	StorageMemory    = "memory"
	StoragePostgres  = "postgres"
	StorageFirestore = "firestore"
)

// FirebaseConfig locates the Firebase project backing auth and Firestore.
type FirebaseConfig struct {
	ProjectID       string `env:"PROJECT_ID"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`

	PlansCollection string `env:"PLANS_COLLECTION" envDefault:"plans"`
	UsersCollection string `env:"USERS_COLLECTION" envDefault:"users"`
}

// Config is the process configuration for cmd/api and cmd/repairmemberids.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	AuthMode   string `env:"AUTH_MODE" envDefault:"firebase"`
	DevSubject string `env:"DEV_SUBJECT"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	DatabaseURL    string `env:"DATABASE_URL"`

	Firebase FirebaseConfig `envPrefix:"FIREBASE_"`

	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	MaintenanceEndpoints bool          `env:"MAINTENANCE_ENDPOINTS" envDefault:"false"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// IdempotencyTTL is how long a stored success response is replayed for a retried key.
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

// Load parses the environment and validates cross-field requirements.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.AuthMode {
	case AuthModeFirebase, AuthModeJWT, AuthModeDev:
	default:
		return fmt.Errorf("AUTH_MODE must be one of firebase, jwt, dev (got %q)", c.AuthMode)
	}
	switch c.StorageBackend {
	case StorageMemory, StorageFirestore:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, postgres, firestore (got %q)", c.StorageBackend)
	}
	if c.NeedsFirebase() && c.Firebase.ProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required for AUTH_MODE=firebase or STORAGE_BACKEND=firestore")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.IdempotencyTTL < 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must not be negative")
	}
	return nil
}

// NeedsFirebase reports whether a Firebase project must be initialized.
func (c Config) NeedsFirebase() bool {
	return c.AuthMode == AuthModeFirebase || c.StorageBackend == StorageFirestore
}
