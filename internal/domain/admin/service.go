// Package admin authenticates the single clinic administrator configured
// through ADMIN_EMAIL and ADMIN_PASSWORD.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
	"github.com/clinicbook/clinicbook/internal/platform/auth"
)

var ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid credentials")

var errNotConfigured = errors.New("admin credentials are not configured")

type Service struct {
	email        string
	passwordHash string
	id           uuid.UUID
	tokens       *auth.TokenService
}

// NewService hashes the configured password once so logins compare in bcrypt
// time regardless of input.
func NewService(email, password string, tokens *auth.TokenService) (*Service, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errNotConfigured
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}
	return &Service{email: email, passwordHash: hash, id: ID(email), tokens: tokens}, nil
}

// ID is the admin's actor id, stable across restarts for the same email.
func ID(email string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("clinicbook:admin:"+strings.ToLower(email)))
}

func (s *Service) Login(_ context.Context, email, password string) (string, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(email))), []byte(s.email)) == 1
	passErr := auth.CheckPassword(s.passwordHash, password)
	if !emailOK || passErr != nil {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(s.id, auth.RoleAdmin)
}
