// Package postgres implements the backend contracts on a self-hosted
// PostgreSQL database, for local development and tests run without a
// hosted project. It mirrors the hosted behaviour closely enough for the
// route guard and the seeding tool to work unchanged.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/apotek/internal/auth"
	"github.com/dmitrijs2005/apotek/internal/backend"
	"github.com/dmitrijs2005/apotek/internal/backend/postgres/repositories/repomanager"
	"github.com/dmitrijs2005/apotek/internal/common"
	"github.com/dmitrijs2005/apotek/internal/dbx"
	"github.com/dmitrijs2005/apotek/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const uniqueViolation = "23505"

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// Backend satisfies backend.SessionReader, backend.Authenticator,
// backend.UserAdmin and backend.TableStore.
type Backend struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	secret      []byte
	tokenTTL    time.Duration
	now         func() time.Time
}

var (
	_ backend.SessionReader = (*Backend)(nil)
	_ backend.Authenticator = (*Backend)(nil)
	_ backend.UserAdmin     = (*Backend)(nil)
	_ backend.TableStore    = (*Backend)(nil)
)

func New(db *sql.DB, m repomanager.RepositoryManager, secret string, tokenTTL time.Duration) *Backend {
	return &Backend{
		db:          db,
		repomanager: m,
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}
}

// Open connects to dsn through the pgx stdlib driver and checks the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema.
func (b *Backend) Migrate(ctx context.Context) error {
	if err := b.repomanager.RunMigrations(ctx, b.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

// GetSession accepts a token only while its session row is not revoked,
// not expired and belongs to the user named in the token.
func (b *Backend) GetSession(ctx context.Context, accessToken string) (*backend.Session, error) {
	if accessToken == "" {
		return nil, nil
	}

	claims, err := auth.ParseToken(accessToken, b.secret)
	if err != nil {
		return nil, nil
	}

	s, err := b.repomanager.Sessions(b.db).Find(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}
	if !s.Live(b.now()) || s.UserID != claims.UserID {
		return nil, nil
	}

	return &backend.Session{
		AccessToken: accessToken,
		ExpiresAt:   s.ExpiresAt,
		User:        backend.User{ID: claims.UserID, Email: claims.Email},
	}, nil
}

// SignIn checks the password, records a new session together with the
// user's last sign-in time and returns a token for it.
func (b *Backend) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	user, err := b.repomanager.Users(b.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}
	if user.EmailConfirmedAt == nil {
		return nil, common.ErrorUnauthorized
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: b.now().Add(b.tokenTTL),
	}

	token, err := auth.GenerateToken(user.ID, session.ID, user.Email, b.secret, b.tokenTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := b.repomanager.Sessions(tx).Create(ctx, session); err != nil {
			return fmt.Errorf("error creating session: %w", err)
		}
		return b.repomanager.Users(tx).TouchLastSignIn(ctx, user.ID)
	}); err != nil {
		return nil, err
	}

	return &backend.Session{
		AccessToken: token,
		ExpiresAt:   session.ExpiresAt,
		User:        toUser(user),
	}, nil
}

// SignOut revokes the session behind accessToken. Tokens that no longer
// parse have nothing left to revoke.
func (b *Backend) SignOut(ctx context.Context, accessToken string) error {
	claims, err := auth.ParseToken(accessToken, b.secret)
	if err != nil {
		return nil
	}
	if err := b.repomanager.Sessions(b.db).Revoke(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("error revoking session: %w", err)
	}
	return nil
}

// ListUsers returns the users whose email equals email, ignoring case.
func (b *Backend) ListUsers(ctx context.Context, email string) ([]backend.User, error) {
	found, err := b.repomanager.Users(b.db).ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]backend.User, 0, len(found))
	for i := range found {
		users = append(users, toUser(&found[i]))
	}
	return users, nil
}

func (b *Backend) CreateUser(ctx context.Context, params backend.CreateUserParams) (*backend.User, error) {
	if params.Email == "" || params.Password == "" {
		return nil, errors.New("create user: email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        params.Email,
		PasswordHash: hash,
	}
	if params.EmailConfirm {
		now := b.now()
		user.EmailConfirmedAt = &now
	}

	created, err := b.repomanager.Users(b.db).Create(ctx, user)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("create user: %w: %w", backend.ErrUserAlreadyExists, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	u := toUser(created)
	return &u, nil
}

func (b *Backend) Insert(ctx context.Context, table string, row backend.Row) error {
	if err := b.repomanager.Tables(b.db).Insert(ctx, table, row); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, table string, filter backend.Filter) error {
	if _, err := b.repomanager.Tables(b.db).Delete(ctx, table, filter); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func toUser(u *models.User) backend.User {
	return backend.User{
		ID:               u.ID,
		Email:            u.Email,
		EmailConfirmedAt: u.EmailConfirmedAt,
		CreatedAt:        u.CreatedAt,
	}
}
