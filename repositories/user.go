//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"chatline/domain"
	"chatline/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword, avatar string) (domain.User, error)
	GetUserByEmail(email string) (StoredUser, error)
	GetUserByID(id string) (domain.User, error)
	ListUsers(limit, skip int) ([]domain.User, int, error)
}

// StoredUser is the on-disk record. It is the only place where the
// password hash travels; conversions to domain.User strip it.
type StoredUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Avatar       string    `json:"avatar"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// Key layout:
//
//	user:{email}  -> JSON StoredUser (primary, uniqueness on email)
//	uid:{id}      -> email            (secondary, id lookups)
func userKey(email string) []byte { return []byte("user:" + email) }
func idKey(id string) []byte      { return []byte("uid:" + id) }

// CreateUser persists a new user. Uniqueness is enforced on the email
// key inside a single transaction.
func (u UserRepository) CreateUser(email, hashedPassword, avatar string) (domain.User, error) {
	stored := StoredUser{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashedPassword,
		Avatar:       avatar,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey(email), data); err != nil {
			return err
		}
		return txn.Set(idKey(stored.ID), []byte(email))
	})
	if err != nil {
		return domain.User{}, err
	}

	return toDomainUser(stored), nil
}

func (u UserRepository) GetUserByEmail(email string) (StoredUser, error) {
	var stored StoredUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return StoredUser{}, errors.ErrNotFound
		}
		return StoredUser{}, err
	}
	return stored, nil
}

func (u UserRepository) GetUserByID(id string) (domain.User, error) {
	var email string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			email = string(val)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.User{}, errors.ErrNotFound
		}
		return domain.User{}, err
	}

	stored, err := u.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(stored), nil
}

// ListUsers scans the user: prefix. The total is the stored count at
// call time regardless of the limit/skip window.
func (u UserRepository) ListUsers(limit, skip int) ([]domain.User, int, error) {
	var users []domain.User
	total := 0

	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("user:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			total++
			if total <= skip {
				continue
			}
			if limit > 0 && len(users) >= limit {
				continue
			}
			err := it.Item().Value(func(val []byte) error {
				var stored StoredUser
				if err := json.Unmarshal(val, &stored); err != nil {
					return err
				}
				users = append(users, toDomainUser(stored))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func toDomainUser(stored StoredUser) domain.User { return stored.User() }

// User strips the password hash for callers outside the repository.
func (s StoredUser) User() domain.User {
	return domain.User{
		ID:        s.ID,
		Email:     s.Email,
		Avatar:    s.Avatar,
		Roles:     s.Roles,
		CreatedAt: s.CreatedAt,
	}
}
