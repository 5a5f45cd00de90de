package sessions

import (
	"context"

	"github.com/dmitrijs2005/apotek/internal/models"
)

type Repository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	Find(ctx context.Context, id string) (*models.Session, error)
	Revoke(ctx context.Context, id string) error
}
