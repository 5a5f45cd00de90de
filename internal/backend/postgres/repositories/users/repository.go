// Package users declares the repository contract for auth_users rows of the
// self-hosted backend and implements it over PostgreSQL.
package users

import (
	"context"

	"github.com/dmitrijs2005/apotek/internal/models"
)

type Repository interface {
	// Create inserts user (ID preassigned) and fills CreatedAt.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// ListByEmail returns every user whose email matches case-insensitively,
	// oldest first. No match is an empty slice, not an error.
	ListByEmail(ctx context.Context, email string) ([]models.User, error)

	// GetByEmail returns common.ErrorNotFound when no user matches.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	TouchLastSignIn(ctx context.Context, userID string) error
}
