// Package auth hashes and verifies user passwords for the HTTP layer.
// The feed core never sees plaintext passwords, only the stored hash.
package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"askgraph/backend/internal/graph"
	apperrors "askgraph/backend/pkg/errors"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = stderrors.New("invalid credentials")

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperrors.NewValidation("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserFinder looks up users by name
type UserFinder interface {
	FindUser(ctx context.Context, username string) (*graph.User, error)
}

// Authenticate returns the user when password matches the stored hash
func Authenticate(ctx context.Context, users UserFinder, username, password string) (*graph.User, error) {
	u, err := users.FindUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
