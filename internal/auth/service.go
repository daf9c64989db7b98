// Package auth registers users, verifies credentials and issues bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/safar/go-logistics/internal/apperror"
	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/logging"
	"github.com/safar/go-logistics/internal/models"
)

const (
	minUsername = 3
	maxUsername = 50
	minPassword = 6
)

type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SetUserRole(ctx context.Context, username string, role models.Role) error
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Service struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenIssuer
}

func NewService(users UserStore, hasher *PasswordHasher, tokens *TokenIssuer) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if n := len(username); n < minUsername || n > maxUsername {
		return nil, apperror.Validationf("username must be between %d and %d characters", minUsername, maxUsername).
			WithDetail("field", "username")
	}
	if len(password) < minPassword {
		return nil, apperror.Validationf("password must be at least %d characters", minPassword).
			WithDetail("field", "password")
	}
	return s.create(ctx, username, password, models.RoleUser)
}

func (s *Service) create(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	user, err := s.users.CreateUser(ctx, username, hash, role)
	if err != nil {
		if errors.Is(err, database.ErrUsernameTaken) {
			return nil, apperror.Conflictf("username %q is already taken", username)
		}
		return nil, apperror.Internal(fmt.Errorf("register user: %w", err))
	}
	logging.FromContext(ctx).Info("user registered", zap.String("username", username), zap.String("role", string(role)))
	return user, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, apperror.Internal(fmt.Errorf("login: %w", err))
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("verify password for %s: %w", user.Username, err))
	}
	if !ok {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	signed, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

func (s *Service) Authenticate(raw string) (Principal, error) {
	p, err := s.tokens.Authenticate(raw)
	if err != nil {
		return Principal{}, apperror.Unauthorized("invalid or expired token").Wrap(err)
	}
	return p, nil
}

// EnsureAdmin creates the bootstrap administrator, or promotes the account
// if it already exists. The existing password is left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return s.users.SetUserRole(ctx, username, models.RoleAdmin)
	case errors.Is(err, database.ErrUserNotFound):
		_, err = s.create(ctx, username, password, models.RoleAdmin)
		return err
	}
	return fmt.Errorf("ensure admin: %w", err)
}
