package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/apotek/internal/backend/postgres/repositories/sessions"
	"github.com/dmitrijs2005/apotek/internal/backend/postgres/repositories/tables"
	"github.com/dmitrijs2005/apotek/internal/backend/postgres/repositories/users"
	"github.com/dmitrijs2005/apotek/internal/dbx"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Tables(db dbx.DBTX) tables.Repository
}
