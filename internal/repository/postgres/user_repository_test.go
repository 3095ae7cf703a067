package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing-api/internal/domain"
)

var userRowColumns = []string{"id", "name", "email", "password_hash", "created_at"}

func TestUserRepository_Init(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users \(LOWER\(email\)\)`).
		WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))

	repo := NewUserRepository(mock)
	require.NoError(t, repo.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_InitIndexFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "could not create unique index"})

	repo := NewUserRepository(mock)
	err = repo.Init(context.Background())
	require.ErrorContains(t, err, "create users email index")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("returns the stored row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Alice", "a@x.com", "hash").
			WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(int64(1), "Alice", "a@x.com", "hash", createdAt))

		repo := NewUserRepository(mock)
		user, err := repo.Create(ctx, domain.User{Name: "Alice", Email: "a@x.com", PasswordHash: "hash"})

		require.NoError(t, err)
		assert.Equal(t, &domain.User{ID: 1, Name: "Alice", Email: "a@x.com", PasswordHash: "hash", CreatedAt: createdAt}, user)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Alice", "a@x.com", "hash").
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

		repo := NewUserRepository(mock)
		user, err := repo.Create(ctx, domain.User{Name: "Alice", Email: "a@x.com", PasswordHash: "hash"})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrDuplicate)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Alice", "a@x.com", "hash").
			WillReturnError(errors.New("connection reset"))

		repo := NewUserRepository(mock)
		_, err = repo.Create(ctx, domain.User{Name: "Alice", Email: "a@x.com", PasswordHash: "hash"})

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrDuplicate)
		assert.Contains(t, err.Error(), "insert user")
	})
}

func TestUserRepository_FindByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("miss returns nil without error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("WHERE LOWER\\(email\\) = LOWER\\(\\$1\\)").
			WithArgs("nobody@x.com").
			WillReturnError(pgx.ErrNoRows)

		repo := NewUserRepository(mock)
		user, err := repo.FindByEmail(ctx, "nobody@x.com")

		require.NoError(t, err)
		assert.Nil(t, user)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		createdAt := time.Now().UTC().Truncate(time.Microsecond)
		mock.ExpectQuery("SELECT id, name, email, password_hash, created_at FROM users").
			WithArgs("A@x.com").
			WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(int64(3), "Alice", "a@x.com", "hash", createdAt))

		repo := NewUserRepository(mock)
		user, err := repo.FindByEmail(ctx, "A@x.com")

		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(3), user.ID)
		assert.Equal(t, "a@x.com", user.Email)
	})
}

func TestUserRepository_FindAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	mock.ExpectQuery("ORDER BY id DESC").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(int64(2), "Bob", "b@x.com", "h2", now).
			AddRow(int64(1), "Alice", "a@x.com", "h1", now))

	repo := NewUserRepository(mock)
	users, err := repo.FindAll(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(2), users[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	name := "Alicia"

	t.Run("missing row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("UPDATE users").
			WithArgs(int64(9), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)

		repo := NewUserRepository(mock)
		user, err := repo.Update(ctx, 9, domain.UserPatch{Name: &name})

		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("updated row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		createdAt := time.Now().UTC().Truncate(time.Microsecond)
		mock.ExpectQuery("UPDATE users").
			WithArgs(int64(1), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(int64(1), "Alicia", "a@x.com", "hash", createdAt))

		repo := NewUserRepository(mock)
		user, err := repo.Update(ctx, 1, domain.UserPatch{Name: &name})

		require.NoError(t, err)
		assert.Equal(t, "Alicia", user.Name)
		assert.Equal(t, createdAt, user.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM users").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM users").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewUserRepository(mock)

	ok, err := repo.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "  ", Options{})
	assert.Error(t, err)
}
