// Package services – AuthService
//
// This file implements the AuthService, which governs account registration,
// credential verification, and token issuance for the authenticated variant.
// Password hashing is delegated to bcrypt (per-record salt, adaptive cost);
// tokens are HS256 JWTs carrying only the user id.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/vietchat/ollama-chat-backend/internal/auth"
	"github.com/vietchat/ollama-chat-backend/internal/domain"
	"github.com/vietchat/ollama-chat-backend/internal/repo"
)

// AuthService implements the use-cases around user accounts. It is
// context-aware and safe for concurrent use.
type AuthService struct {
	// DB is the database handle used for all account operations.
	DB *gorm.DB

	// TokenSecret signs issued JWTs.
	TokenSecret string
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// MinPasswordLen rejects shorter registration passwords (default 6).
	MinPasswordLen int
}

// Register creates a new account.
//
// Validation:
//   - password must be at least MinPasswordLen runes; otherwise ErrWeakPassword.
//   - username and email must be unused; otherwise ErrUsernameTaken /
//     ErrEmailTaken. The pre-checks are raced against the unique indexes, so
//     a constraint violation on insert is mapped to the same errors.
func (s *AuthService) Register(ctx context.Context, username, email, password, displayName string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	minLen := s.MinPasswordLen
	if minLen <= 0 {
		minLen = 6
	}
	if len([]rune(password)) < minLen {
		return nil, ErrWeakPassword
	}

	if _, err := repo.GetUserByUsername(ctx, s.DB, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := repo.CreateUser(ctx, s.DB, username, email, string(hash), displayName)
	if err != nil {
		if isDuplicate(err) {
			// Lost the race against a concurrent registration.
			if strings.Contains(strings.ToLower(err.Error()), "email") {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Login verifies the credential and returns a signed token plus the account.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials;
// disabled accounts yield ErrUserInactive.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := repo.GetUserByUsername(ctx, s.DB, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, ErrUserInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(s.TokenSecret, u.ID, s.TokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Me resolves the account behind a previously validated token subject.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
