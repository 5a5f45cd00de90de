// Package cli is the command tree of the seed tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/apotek/internal/backend"
	"github.com/dmitrijs2005/apotek/internal/backend/postgres"
	"github.com/dmitrijs2005/apotek/internal/backend/postgres/repositories/repomanager"
	"github.com/dmitrijs2005/apotek/internal/backend/supabase"
	"github.com/dmitrijs2005/apotek/internal/logging"
	"github.com/dmitrijs2005/apotek/internal/seed"
	"github.com/spf13/cobra"
)

// Backend is what the seed tool needs from a backend.
type Backend interface {
	backend.UserAdmin
	backend.TableStore
}

// Opener connects to the backend described by cfg. The returned close
// function may be nil.
type Opener func(ctx context.Context, cfg seed.Config, migrate bool) (Backend, func() error, error)

// Deps are the collaborators of the command; zero fields get production
// defaults.
type Deps struct {
	Open   Opener
	Getenv func(string) string
	Logger logging.Logger
}

func (d *Deps) defaults(stderr io.Writer) {
	if d.Open == nil {
		d.Open = OpenBackend
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.Logger == nil {
		d.Logger = logging.New(stderr)
	}
}

// NewRootCmd builds the seed command. Output for the operator goes to the
// command's stdout; logs go to deps.Logger.
func NewRootCmd(deps Deps) *cobra.Command {
	var (
		envFile     string
		clearTables bool
		migrate     bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Ensure the apotek administrator account and its profile exist.",
		Long: `seed looks up the administrator by ADMIN_EMAIL and creates it, with a
confirmed email and a profile row, when it does not exist yet. Running it
again is safe: an existing administrator is left untouched.

Configuration comes from the environment, optionally loaded from a .env
file: SUPABASE_URL (or VITE_SUPABASE_URL), SUPABASE_SERVICE_KEY,
ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_NAME. With SEED_BACKEND=postgres the
self-hosted database is used instead, via DATABASE_DSN and JWT_SECRET.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps.defaults(cmd.ErrOrStderr())
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if err := seed.LoadEnvFile(envFile); err != nil {
				return &seed.ConfigError{Invalid: []string{"--env-file: " + err.Error()}}
			}

			cfg, err := seed.FromEnv(deps.Getenv)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()

			if migrate && cfg.Backend != seed.BackendPostgres {
				deps.Logger.Warn(ctx, "--migrate only applies to the postgres backend, ignoring")
			}

			b, closeFn, err := deps.Open(ctx, cfg, migrate)
			if err != nil {
				return fmt.Errorf("open backend: %w", err)
			}
			if closeFn != nil {
				defer func() {
					if err := closeFn(); err != nil {
						deps.Logger.Warn(ctx, "backend close error", "error", err)
					}
				}()
			}

			seeder := seed.NewSeeder(b, b, deps.Logger)

			res, err := seeder.SeedAdmin(ctx, cfg.Admin)
			if err != nil {
				return err
			}

			if clearTables {
				if err := seeder.ClearTables(ctx); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			switch res.Outcome {
			case seed.RaceLost:
				fmt.Fprintf(out, "admin user [%s] was created by a concurrent run, nothing to do\n", cfg.Admin.Email)
			default:
				fmt.Fprintf(out, "seeding admin user [%s] finished (%s)\n", res.User.Email, res.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load (default ./.env when present)")
	cmd.Flags().BoolVar(&clearTables, "clear-tables", false, "delete all rows of the operational tables after seeding")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations first (postgres backend only)")

	return cmd
}

// Execute runs the seed command with args and returns the process exit
// code. Failures are reported on stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, deps Deps) int {
	cmd := NewRootCmd(deps)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "seed failed: %v\n", err)
	}
	return seed.ExitCode(err)
}

// tokenTTL is irrelevant for seeding, which never signs in.
const tokenTTL = time.Hour

// OpenBackend is the production Opener.
func OpenBackend(ctx context.Context, cfg seed.Config, migrate bool) (Backend, func() error, error) {
	switch cfg.Backend {
	case seed.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Admin.BackendURL)
		if err != nil {
			return nil, nil, err
		}
		b := postgres.New(db, repomanager.NewPostgresRepositoryManager(), cfg.Admin.ServiceKey, tokenTTL)
		if migrate {
			if err := b.Migrate(ctx); err != nil {
				_ = b.Close()
				return nil, nil, err
			}
		}
		return b, b.Close, nil
	default:
		c, err := supabase.New(cfg.Admin.BackendURL, cfg.Admin.ServiceKey, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
}
