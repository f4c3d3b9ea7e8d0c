package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"chatline/internal/model"
	"chatline/internal/store"
)

// ErrInvalidToken is returned by Refresh for any unusable refresh token.
var ErrInvalidToken = errors.New("invalid authentication token")

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service manages accounts on top of a UserStore and issues JWTs.
type Service struct {
	users  store.UserStore
	tokens TokenConfig
	cost   int
}

func NewService(users store.UserStore, tokens TokenConfig) *Service {
	return &Service{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

func (s *Service) TokenConfig() TokenConfig {
	return s.tokens
}

// SignUp creates an account. It returns ErrWeakPassword for a password
// outside the length bounds and store.ErrDuplicateUser when the username
// is taken.
func (s *Service) SignUp(ctx context.Context, username, password string) (model.User, error) {
	if err := ValidatePassword(password); err != nil {
		return model.User{}, err
	}
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.users.CreateUser(ctx, username, hash)
}

// Login checks credentials and issues an access/refresh pair.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	if _, err := s.authenticate(ctx, username, password); err != nil {
		return TokenPair{}, err
	}
	access, err := CreateAccessToken(username, s.tokens)
	if err != nil {
		return TokenPair{}, fmt.Errorf("create access token: %w", err)
	}
	refresh, err := CreateRefreshToken(username, s.tokens)
	if err != nil {
		return TokenPair{}, fmt.Errorf("create refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(refreshToken string) (string, error) {
	v := Verify(refreshToken, RefreshToken, s.tokens)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidToken, v.Reason)
	}
	return CreateAccessToken(v.Claims.Username, s.tokens)
}

// ChangePassword replaces the password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if _, err := s.authenticate(ctx, username, oldPassword); err != nil {
		return err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword, s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, username, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

func (s *Service) authenticate(ctx context.Context, username, password string) (model.User, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}
