package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Varun5711/tokenqueue/internal/models/user"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var userColumns = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}

func TestPostgresUserStorage_Save(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresUserStorage(db, db)

	u, err := user.New("u-1", "Ana", "Ana@Example.com", "hash")
	require.NoError(t, err)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+users.*ON\s+CONFLICT\s+\(id\)\s+DO\s+NOTHING`).
		WithArgs("u-1", "Ana", "ana@example.com", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStorage_SaveDuplicateEmail(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresUserStorage(db, db)

	u, err := user.New("u-2", "Ana", "ana@example.com", "hash")
	require.NoError(t, err)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err = repo.Save(context.Background(), u)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestPostgresUserStorage_SaveDBError(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresUserStorage(db, db)

	u, err := user.New("u-1", "Ana", "ana@example.com", "hash")
	require.NoError(t, err)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	err = repo.Save(context.Background(), u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NotErrorIs(t, err, ErrEmailTaken)
}

func TestPostgresUserStorage_GetByEmailNormalizes(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresUserStorage(db, db)

	created := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-1", "Ana", "ana@example.com", "hash", created, created))

	got, err := repo.GetByEmail(context.Background(), "  Ana@Example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
}

func TestPostgresUserStorage_GetByIDNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresUserStorage(db, db)

	mock.ExpectQuery(`(?s)SELECT.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userColumns))

	got, err := repo.GetByID(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresUserStorage_GetByIDDBError(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresUserStorage(db, db)

	mock.ExpectQuery(`FROM\s+users`).WillReturnError(errors.New("db err"))

	_, err := repo.GetByID(context.Background(), "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get user")
}
