package services

import (
	"chatline/auth"
	"chatline/domain"
	"chatline/errors"
	"chatline/repositories"
)

type IAuthService interface {
	Login(email, password string) (Session, error)
}

// Session is what a successful authentication resolves with: the signed
// token plus the user record it identifies.
type Session struct {
	Token string      `json:"accessToken"`
	User  domain.User `json:"user"`
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenIssuer
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenIssuer) IAuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

func (s *AuthService) Login(email, password string) (Session, error) {
	// Generic error on every failure path to prevent user enumeration.
	stored, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		return Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, stored.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(stored.ID, stored.Email, stored.Roles)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}

	return Session{Token: token, User: stored.User()}, nil
}
