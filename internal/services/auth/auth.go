// Package auth implements registration, login and JWT validation. The
// payment endpoints resolve the acting user exclusively through tokens
// issued here, never from request bodies.
package auth

import (
	"context"
	"errors"

	"github.com/preplyhq/entitlement-service/internal/lib/jwt"
	"github.com/preplyhq/entitlement-service/internal/lib/password"
	"github.com/preplyhq/entitlement-service/internal/models"
)

// ErrInvalidCredentials is returned on a wrong username or password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository persists user accounts.
type UserRepository interface {
	// RegisterUser saves a new user and returns the generated UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByUsername returns a user by login name.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service handles registration, login and token validation.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// New creates a Service.
func New(users UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register creates a user with a bcrypt password hash and the default role.
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         "user",
	}
	return s.users.RegisterUser(ctx, user)
}

// Login checks the password and issues a JWT carrying the user identity.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken checks a JWT and returns the identity it carries.
func (s *Service) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}
