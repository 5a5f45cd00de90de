// Package seed bootstraps the administrator account and its profile row,
// and can wipe the operational tables. Every step is a single backend call
// with no retries; each failure ends the run.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/apotek/internal/backend"
	"github.com/dmitrijs2005/apotek/internal/logging"
)

type Outcome int

const (
	// Found means the admin already existed; nothing was written.
	Found Outcome = iota
	// Created means the user and its profile row were written.
	Created
	// RaceLost means another run created the user between lookup and
	// create; nothing was written by this run.
	RaceLost
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Created:
		return "created"
	case RaceLost:
		return "race_lost"
	default:
		return "unknown"
	}
}

// Result describes a successful seed. User is nil for RaceLost.
type Result struct {
	Outcome Outcome
	User    *backend.User
}

// DependentWriteError means the user exists but its profile row could not
// be written. The run does not undo the user; an operator has to add the
// profile row by hand, since a re-run finds the user and stops.
type DependentWriteError struct {
	UserID string
	Email  string
	Err    error
}

func (e *DependentWriteError) Error() string {
	return fmt.Sprintf("user %s (%s) created but profile row failed: %v", e.UserID, e.Email, e.Err)
}

func (e *DependentWriteError) Unwrap() error { return e.Err }

// ClearOrder lists the operational tables children first, so no delete
// hits a row that is still referenced.
var ClearOrder = []string{
	backend.TableSaleItems,
	backend.TableSales,
	backend.TablePurchaseItems,
	backend.TablePurchases,
	backend.TableMedicines,
	backend.TableSuppliers,
}

type Seeder struct {
	users  backend.UserAdmin
	tables backend.TableStore
	logger logging.Logger
}

func NewSeeder(users backend.UserAdmin, tables backend.TableStore, l logging.Logger) *Seeder {
	return &Seeder{users: users, tables: tables, logger: l.With("module", "seed")}
}

// SeedAdmin makes sure the admin user exists, creating it together with
// its profile row when it does not. An existing user's profile row is not
// checked.
func (s *Seeder) SeedAdmin(ctx context.Context, cfg AdminConfig) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	s.logger.Info(ctx, "checking admin user", "email", cfg.Email)

	users, err := s.users.ListUsers(ctx, cfg.Email)
	if err != nil {
		return Result{}, fmt.Errorf("look up admin user: %w", err)
	}
	if len(users) > 0 {
		u := users[0]
		s.logger.Info(ctx, "admin user already exists", "user_id", u.ID)
		return Result{Outcome: Found, User: &u}, nil
	}

	s.logger.Info(ctx, "admin user not found, creating")

	created, err := s.users.CreateUser(ctx, backend.CreateUserParams{
		Email:        cfg.Email,
		Password:     cfg.Password,
		EmailConfirm: true,
	})
	if err != nil {
		if errors.Is(err, backend.ErrUserAlreadyExists) {
			s.logger.Warn(ctx, "admin user was created concurrently, skipping", "email", cfg.Email)
			return Result{Outcome: RaceLost}, nil
		}
		return Result{}, fmt.Errorf("create admin user: %w", err)
	}

	if err := s.tables.Insert(ctx, backend.TableProfiles, backend.Row{
		"id":    created.ID,
		"name":  cfg.displayName(),
		"email": cfg.Email,
	}); err != nil {
		return Result{}, &DependentWriteError{UserID: created.ID, Email: cfg.Email, Err: err}
	}

	s.logger.Info(ctx, "admin user and profile created", "user_id", created.ID)
	return Result{Outcome: Created, User: created}, nil
}

// ClearTables deletes every row of the operational tables in ClearOrder.
// It stops at the first failure; later tables are left untouched.
func (s *Seeder) ClearTables(ctx context.Context) error {
	s.logger.Info(ctx, "clearing operational tables")

	for _, table := range ClearOrder {
		if err := s.tables.Delete(ctx, table, backend.Filter{Column: "id", Op: backend.OpNeq, Value: 0}); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		s.logger.Info(ctx, "table cleared", "table", table)
	}

	s.logger.Info(ctx, "operational tables cleared")
	return nil
}

// Exit codes of the seed command.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitConfig         = 2
	ExitDependentWrite = 3
)

// ExitCode maps a seed error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	var depErr *DependentWriteError
	if errors.As(err, &depErr) {
		return ExitDependentWrite
	}
	return ExitFailure
}
