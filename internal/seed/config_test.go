package seed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Supabase(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		EnvSupabaseURL:     "https://project.supabase.co",
		EnvViteSupabaseURL: "https://ignored.supabase.co",
		EnvServiceKey:      "service",
		EnvAdminEmail:      " admin@apotek.local ",
		EnvAdminPassword:   "rahasia",
		EnvAdminName:       "Kepala",
		EnvTimeout:         "5s",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendSupabase, cfg.Backend)
	assert.Equal(t, "https://project.supabase.co", cfg.Admin.BackendURL)
	assert.Equal(t, "service", cfg.Admin.ServiceKey)
	assert.Equal(t, "admin@apotek.local", cfg.Admin.Email)
	assert.Equal(t, "Kepala", cfg.Admin.DisplayName)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Admin.Validate())
}

func TestFromEnv_ViteURLFallback(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		EnvViteSupabaseURL: "https://vite.supabase.co",
		EnvServiceKey:      "service",
		EnvAdminEmail:      "admin@apotek.local",
		EnvAdminPassword:   "rahasia",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://vite.supabase.co", cfg.Admin.BackendURL)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultDisplayName, cfg.Admin.displayName())
}

func TestFromEnv_Postgres(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		EnvBackend:       "Postgres",
		EnvDatabaseDSN:   "postgres://localhost/apotek",
		EnvJWTSecret:     "secret",
		EnvAdminEmail:    "admin@apotek.local",
		EnvAdminPassword: "rahasia",
	}))
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "postgres://localhost/apotek", cfg.Admin.BackendURL)
	assert.Equal(t, "secret", cfg.Admin.ServiceKey)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		missing []string
		invalid []string
	}{
		{name: "nothing set", env: map[string]string{},
			missing: []string{EnvSupabaseURL, EnvServiceKey, EnvAdminEmail, EnvAdminPassword}},
		{name: "only password missing", env: map[string]string{
			EnvSupabaseURL: "https://p.supabase.co", EnvServiceKey: "k", EnvAdminEmail: "a@b",
		}, missing: []string{EnvAdminPassword}},
		{name: "postgres without dsn", env: map[string]string{
			EnvBackend: "postgres", EnvJWTSecret: "s", EnvAdminEmail: "a@b", EnvAdminPassword: "p",
		}, missing: []string{EnvDatabaseDSN}},
		{name: "unknown backend and bad timeout", env: map[string]string{
			EnvBackend: "mongo", EnvAdminEmail: "a@b", EnvAdminPassword: "p", EnvTimeout: "soon",
		}, invalid: []string{EnvBackend, EnvTimeout}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envOf(tt.env))

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.missing, cfgErr.Missing)
			assert.Equal(t, tt.invalid, cfgErr.Invalid)
			assert.Equal(t, ExitConfig, ExitCode(err))
		})
	}
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{Missing: []string{EnvAdminEmail, EnvAdminPassword}, Invalid: []string{EnvTimeout}}
	assert.Equal(t, "configuration error: missing ADMIN_EMAIL, ADMIN_PASSWORD; invalid SEED_TIMEOUT", err.Error())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.env")
	require.NoError(t, os.WriteFile(path, []byte("APOTEK_TEST_FROM_FILE=file\nAPOTEK_TEST_PRESET=file\n"), 0o600))

	t.Setenv("APOTEK_TEST_PRESET", "env")
	t.Setenv("APOTEK_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("APOTEK_TEST_FROM_FILE"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "file", os.Getenv("APOTEK_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("APOTEK_TEST_PRESET"), "existing variables win over the file")

	assert.Error(t, LoadEnvFile(filepath.Join(dir, "absent.env")))
}

func TestLoadEnvFile_DefaultMayBeAbsent(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NoError(t, LoadEnvFile(""))
}
