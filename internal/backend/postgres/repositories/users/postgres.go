package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/apotek/internal/common"
	"github.com/dmitrijs2005/apotek/internal/dbx"
	"github.com/dmitrijs2005/apotek/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO auth_users (id, email, encrypted_password, email_confirmed_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, string(user.PasswordHash), nullTime(user.EmailConfirmedAt)).Scan(&user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]models.User, error) {
	query :=
		`SELECT id, email, encrypted_password, email_confirmed_at, last_sign_in_at, created_at
		 FROM auth_users
		 WHERE lower(email) = lower($1)
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, 1)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, encrypted_password, email_confirmed_at, last_sign_in_at, created_at
		 FROM auth_users
		 WHERE lower(email) = lower($1)
		 `

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) TouchLastSignIn(ctx context.Context, userID string) error {
	query :=
		`UPDATE auth_users SET last_sign_in_at = now()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u         models.User
		password  string
		confirmed sql.NullTime
		lastLogin sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.Email, &password, &confirmed, &lastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = []byte(password)
	if confirmed.Valid {
		u.EmailConfirmedAt = &confirmed.Time
	}
	if lastLogin.Valid {
		u.LastSignInAt = &lastLogin.Time
	}
	return &u, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
