package sessions

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/apotek/internal/common"
	"github.com/dmitrijs2005/apotek/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ = `(?s)^\s*INSERT\s+INTO\s+auth_sessions\s*\(id,\s*user_id,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+created_at\s*$`
	findQ   = `(?s)^\s*SELECT\s+id,\s*user_id,\s*created_at,\s*expires_at,\s*revoked_at\s+FROM\s+auth_sessions\s+WHERE\s+id\s*=\s*\$1\s*$`
	revokeQ = `(?s)^\s*UPDATE\s+auth_sessions\s+SET\s+revoked_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+revoked_at\s+IS\s+NULL\s*$`
)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Hour)
	created := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs("s-1", "u-1", expires).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	got, err := repo.Create(context.Background(), &models.Session{ID: "s-1", UserID: "u-1", ExpiresAt: expires})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at not filled: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("s-1", "u-1", sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Session{ID: "s-1", UserID: "u-1", ExpiresAt: time.Now()})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFind_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "created_at", "expires_at", "revoked_at"}).
		AddRow("s-1", "u-1", now, now.Add(time.Hour), nil)
	mock.ExpectQuery(findQ).WithArgs("s-1").WillReturnRows(rows)

	got, err := repo.Find(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "u-1" || got.RevokedAt != nil || !got.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestFind_Revoked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "created_at", "expires_at", "revoked_at"}).
		AddRow("s-1", "u-1", now, now.Add(time.Hour), now)
	mock.ExpectQuery(findQ).WithArgs("s-1").WillReturnRows(rows)

	got, err := repo.Find(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RevokedAt == nil || got.Live(now) {
		t.Fatalf("expected revoked session, got %+v", got)
	}
}

func TestFind_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQ).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFind_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQ).WithArgs("s-1").WillReturnError(errors.New("db err"))

	_, err := repo.Find(context.Background(), "s-1")
	if err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(revokeQ).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Revoke(context.Background(), "s-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec(revokeQ).WithArgs("s-2").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Revoke(context.Background(), "s-2"); err != nil {
		t.Fatalf("revoking unknown session should succeed, got %v", err)
	}

	mock.ExpectExec(revokeQ).WithArgs("s-3").WillReturnError(errors.New("db err"))
	if err := repo.Revoke(context.Background(), "s-3"); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
