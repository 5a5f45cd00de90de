// Package backend declares what apotek needs from its authentication and
// storage backend. The hosted implementation lives in backend/supabase, a
// self-hosted Postgres one in backend/postgres.
//
// Both the route guard and the seeding tool receive these interfaces
// explicitly; there is no process-wide client.
package backend

import (
	"context"
	"time"
)

// User is an identity record owned by the backend.
type User struct {
	ID               string
	Email            string
	EmailConfirmedAt *time.Time
	CreatedAt        time.Time
}

// Session is proof that a user is currently authenticated.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        User
}

// CreateUserParams describes a user to be created by an administrator.
// EmailConfirm marks the address as verified, bypassing confirmation mail.
type CreateUserParams struct {
	Email        string
	Password     string
	EmailConfirm bool
}

// Row is a generic table row payload keyed by column name.
type Row map[string]any

// Op is a comparison operator usable in a Filter.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
)

// Filter selects the rows a Delete applies to.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Table names known to the application. The self-hosted backend refuses
// any other name.
const (
	TableProfiles      = "profiles"
	TableSaleItems     = "sale_items"
	TableSales         = "sales"
	TablePurchaseItems = "purchase_items"
	TablePurchases     = "purchases"
	TableMedicines     = "medicines"
	TableSuppliers     = "suppliers"
)

// SessionReader answers "does a session exist for this token?".
// A missing, expired or rejected token yields (nil, nil); an error is
// returned only when the backend itself could not be asked.
type SessionReader interface {
	GetSession(ctx context.Context, accessToken string) (*Session, error)
}

// Authenticator signs users in and out with email and password.
// Bad credentials yield common.ErrorUnauthorized.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// UserAdmin is the privileged user-management capability.
// CreateUser reports an existing address with an error matching
// ErrUserAlreadyExists.
type UserAdmin interface {
	ListUsers(ctx context.Context, email string) ([]User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
}

// TableStore performs generic row writes against named tables.
type TableStore interface {
	Insert(ctx context.Context, table string, row Row) error
	Delete(ctx context.Context, table string, filter Filter) error
}
