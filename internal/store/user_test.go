package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iheejigoro/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

var userRowColumns = []string{"id", "email", "password_hash", "nameofvendor", "phone", "state", "sex", "avatar_url", "avatar_ref", "created_at", "updated_at"}

func newUserRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db), mock
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+users\s*\(id,\s*email,\s*password_hash,.*\)\s*VALUES`).
		WithArgs(sqlmock.AnyArg(), "a@b.com", "$2a$10$hash", "A", "", "", "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), types.User{Email: "a@b.com", PasswordHash: "$2a$10$hash", NameOfVendor: "A"})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_AssignsDistinctIDs(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	for i := 0; i < 2; i++ {
		mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	first, err := repo.Create(context.Background(), types.User{Email: "a@b.com"})
	require.NoError(t, err)
	second, err := repo.Create(context.Background(), types.User{Email: "c@d.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), types.User{Email: "a@b.com"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUserRepository_Create_DBError(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), types.User{Email: "a@b.com"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAlreadyExists))
}

func TestUserRepository_GetByEmail(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(userRowColumns).
		AddRow(testUserID, "a@b.com", "hash", "A", "0803123456", "Lagos", "female", "https://img/a.png", "users/a", created, created)
	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+LOWER\(email\)\s*=\s*LOWER\(\$1\)`).
		WithArgs("A@B.com").
		WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "A@B.com")
	require.NoError(t, err)
	assert.Equal(t, testUserID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, types.Image{URL: "https://img/a.png", ReferenceID: "users/a"}, got.Avatar)
	assert.Equal(t, created, got.CreatedAt)
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users`).WithArgs("ghost@b.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@b.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_GetByID_InvalidIDIsNotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`(?s)^\s*UPDATE\s+users\s+SET\s+nameofvendor\s*=\s*\$1.*WHERE\s+id\s*=\s*\$8`).
		WithArgs("B", "0803123456", "Abia", "male", "https://img/b.png", "users/b", sqlmock.AnyArg(), testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Update(context.Background(), types.User{
		ID:           testUserID,
		NameOfVendor: "B",
		Phone:        "0803123456",
		State:        "Abia",
		Sex:          "male",
		Avatar:       types.Image{URL: "https://img/b.png", ReferenceID: "users/b"},
	})
	require.NoError(t, err)
	assert.False(t, got.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), types.User{ID: testUserID})
	assert.ErrorIs(t, err, ErrNotFound)
}
