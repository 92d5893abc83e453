package services

import (
	"crypto/md5"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatline/auth"
	"chatline/domain"
	"chatline/domain/event"
	"chatline/errors"
	"chatline/repositories"
	"chatline/runtime"
)

type IUserService interface {
	Register(email, password string) (domain.User, error)
	Find(limit, skip int) (domain.Page[domain.User], error)
	Get(id string) (domain.User, error)
}

type UserService struct {
	userRepository repositories.IUserRepository
	events         chan<- event.Event
	log            *slog.Logger
}

func NewUserService(repo repositories.IUserRepository, events chan<- event.Event, log *slog.Logger) IUserService {
	return &UserService{userRepository: repo, events: events, log: log}
}

// Register creates a users record. Validation happens before any
// expensive cryptographic operation; hashing happens here so the
// repository never sees a plain password.
func (s *UserService) Register(email, password string) (domain.User, error) {
	valReq := auth.RegisterRequest{Email: email, Password: password}
	if err := auth.ValidateRegister(valReq); err != nil {
		if errors.Is(err, errors.ErrInvalidPassword) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(email, hashedPassword, gravatarURL(email))
	if err != nil {
		return domain.User{}, err // Propagates ErrUserAlreadyExists if email is taken
	}

	runtime.Emit(s.log, s.events, event.Event{
		Collection: event.Users,
		Type:       event.Created,
		At:         time.Now().UTC(),
		Record:     user,
	})
	return user, nil
}

func (s *UserService) Find(limit, skip int) (domain.Page[domain.User], error) {
	users, total, err := s.userRepository.ListUsers(limit, skip)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	return domain.Page[domain.User]{
		Total: total,
		Limit: limit,
		Skip:  skip,
		Data:  users,
	}, nil
}

func (s *UserService) Get(id string) (domain.User, error) {
	return s.userRepository.GetUserByID(id)
}

// gravatarURL derives a stable avatar from the email, the way the
// usual chat frontends expect it.
func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://s.gravatar.com/avatar/%x?s=60", sum)
}
