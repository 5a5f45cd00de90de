package seed

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"

	DefaultDisplayName = "Admin Utama"
	defaultTimeout     = 30 * time.Second
)

// Environment variables read by FromEnv.
const (
	EnvSupabaseURL     = "SUPABASE_URL"
	EnvViteSupabaseURL = "VITE_SUPABASE_URL"
	EnvServiceKey      = "SUPABASE_SERVICE_KEY"
	EnvAdminEmail      = "ADMIN_EMAIL"
	EnvAdminPassword   = "ADMIN_PASSWORD"
	EnvAdminName       = "ADMIN_NAME"
	EnvBackend         = "SEED_BACKEND"
	EnvDatabaseDSN     = "DATABASE_DSN"
	EnvJWTSecret       = "JWT_SECRET"
	EnvTimeout         = "SEED_TIMEOUT"
)

// AdminConfig is everything SeedAdmin needs. BackendURL and ServiceKey are
// the connection parameters and privileged credential of whichever backend
// the seeder talks to.
type AdminConfig struct {
	BackendURL  string
	ServiceKey  string
	Email       string
	Password    string
	DisplayName string
}

// Validate reports every missing required field at once.
func (c AdminConfig) Validate() error {
	var missing []string
	if c.BackendURL == "" {
		missing = append(missing, "backend URL")
	}
	if c.ServiceKey == "" {
		missing = append(missing, "service key")
	}
	if c.Email == "" {
		missing = append(missing, "admin email")
	}
	if c.Password == "" {
		missing = append(missing, "admin password")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

func (c AdminConfig) displayName() string {
	if c.DisplayName == "" {
		return DefaultDisplayName
	}
	return c.DisplayName
}

// Config is the seed tool's configuration as read from the environment.
type Config struct {
	Backend string
	Admin   AdminConfig
	Timeout time.Duration
}

// ConfigError names the settings that are absent or unusable.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

// LoadEnvFile loads variables from a dotenv file without overriding the
// ones already set. An empty path means ".env" in the working directory,
// which may be absent; an explicit path must exist.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv reads Config through getenv (os.Getenv in production) and
// validates it for the selected backend. Errors are *ConfigError naming
// the environment variables involved.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Backend: strings.ToLower(strings.TrimSpace(getenv(EnvBackend))),
		Timeout: defaultTimeout,
		Admin: AdminConfig{
			Email:       strings.TrimSpace(getenv(EnvAdminEmail)),
			Password:    getenv(EnvAdminPassword),
			DisplayName: strings.TrimSpace(getenv(EnvAdminName)),
		},
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendSupabase
	}

	cerr := &ConfigError{}

	switch cfg.Backend {
	case BackendSupabase:
		cfg.Admin.BackendURL = getenv(EnvSupabaseURL)
		if cfg.Admin.BackendURL == "" {
			cfg.Admin.BackendURL = getenv(EnvViteSupabaseURL)
		}
		cfg.Admin.ServiceKey = getenv(EnvServiceKey)
		if cfg.Admin.BackendURL == "" {
			cerr.Missing = append(cerr.Missing, EnvSupabaseURL)
		}
		if cfg.Admin.ServiceKey == "" {
			cerr.Missing = append(cerr.Missing, EnvServiceKey)
		}
	case BackendPostgres:
		cfg.Admin.BackendURL = getenv(EnvDatabaseDSN)
		cfg.Admin.ServiceKey = getenv(EnvJWTSecret)
		if cfg.Admin.BackendURL == "" {
			cerr.Missing = append(cerr.Missing, EnvDatabaseDSN)
		}
		if cfg.Admin.ServiceKey == "" {
			cerr.Missing = append(cerr.Missing, EnvJWTSecret)
		}
	default:
		cerr.Invalid = append(cerr.Invalid, EnvBackend)
	}

	if cfg.Admin.Email == "" {
		cerr.Missing = append(cerr.Missing, EnvAdminEmail)
	}
	if cfg.Admin.Password == "" {
		cerr.Missing = append(cerr.Missing, EnvAdminPassword)
	}

	if raw := getenv(EnvTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			cerr.Invalid = append(cerr.Invalid, EnvTimeout)
		} else {
			cfg.Timeout = d
		}
	}

	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return cfg, cerr
	}
	return cfg, nil
}
