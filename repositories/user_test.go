package repositories

import (
	"testing"

	"chatline/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_CreateUser_And_Lookups(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	created, err := repo.CreateUser("alice@example.com", "$argon2id$fake", "https://s.gravatar.com/avatar/abc?s=60")
	req.NoError(err)
	req.NotEmpty(created.ID)
	req.Equal("alice@example.com", created.Email)
	req.Equal([]string{"user"}, created.Roles)

	stored, err := repo.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(created.ID, stored.ID)
	req.Equal("$argon2id$fake", stored.PasswordHash)

	byID, err := repo.GetUserByID(created.ID)
	req.NoError(err)
	req.Equal(created.Email, byID.Email)
}

func Test_CreateUser_Duplicate(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	_, err := repo.CreateUser("bob@example.com", "hash", "")
	req.NoError(err)

	_, err = repo.CreateUser("bob@example.com", "other-hash", "")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_GetUser_NotFound(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	_, err := repo.GetUserByEmail("ghost@example.com")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repo.GetUserByID("no-such-id")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_ListUsers_TotalAndWindow(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, email := range emails {
		_, err := repo.CreateUser(email, "hash", "")
		req.NoError(err)
	}

	users, total, err := repo.ListUsers(0, 0)
	req.NoError(err)
	req.Equal(3, total)
	req.Len(users, 3)

	users, total, err = repo.ListUsers(2, 0)
	req.NoError(err)
	req.Equal(3, total)
	req.Len(users, 2)

	users, total, err = repo.ListUsers(2, 2)
	req.NoError(err)
	req.Equal(3, total)
	req.Len(users, 1)

	for _, u := range users {
		req.NotEmpty(u.Email)
	}
}
