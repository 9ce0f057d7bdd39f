package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"despeses/internal/core"
	"despeses/internal/ledger"
	"despeses/internal/log"
)

// ErrInvalidCredentials is returned when a login attempt presents the
// wrong password for an existing account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService manages accounts. New passwords are stored as bcrypt
// hashes; rows imported from older data may still hold the password in
// the clear, and those are upgraded in place on the first successful
// login.
type AuthService struct {
	users  ledger.UserStore
	logger *slog.Logger
}

func NewAuthService(users ledger.UserStore) *AuthService {
	return &AuthService{
		users:  users,
		logger: log.NewLogger(log.ComponentAuth),
	}
}

// Register creates an account. The username is lowercased and trimmed
// before validation since it doubles as the dataset directory name.
func (s *AuthService) Register(ctx context.Context, username, name, password string) (core.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	name = strings.TrimSpace(name)

	if err := core.ValidateUsername(username); err != nil {
		return core.User{}, fmt.Errorf("register: %w", err)
	}
	if name == "" {
		return core.User{}, fmt.Errorf("register: %w", core.ErrEmptyName)
	}
	if len(password) < core.MinPasswordLength {
		return core.User{}, fmt.Errorf("register: %w", core.ErrPasswordTooShort)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, name, string(hash))
	if err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "Account registered", log.FieldUsername, user.Username)
	return user, nil
}

// Login verifies the credentials and returns the account. A stored
// credential that does not look like a bcrypt hash is treated as legacy
// plaintext: it is compared in constant time and replaced with a hash
// when the login succeeds.
func (s *AuthService) Login(ctx context.Context, username, password string) (core.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return core.User{}, err
	}

	if isBcryptHash(user.PasswordHash) {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return core.User{}, fmt.Errorf("login %s: %w", username, ErrInvalidCredentials)
		}
		return user, nil
	}

	// Legacy plaintext credential.
	if subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(password)) != 1 {
		return core.User{}, fmt.Errorf("login %s: %w", username, ErrInvalidCredentials)
	}
	s.upgradeLegacyPassword(ctx, &user, password)
	return user, nil
}

// upgradeLegacyPassword replaces a plaintext credential with a bcrypt
// hash. Failures are logged only; the login already succeeded and the
// next one will retry the upgrade.
func (s *AuthService) upgradeLegacyPassword(ctx context.Context, user *core.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to hash legacy password",
			log.FieldUsername, user.Username, log.FieldError, err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.Username, string(hash)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to upgrade legacy password",
			log.FieldUsername, user.Username, log.FieldError, err)
		return
	}
	user.PasswordHash = string(hash)
	s.logger.InfoContext(ctx, "Upgraded legacy password", log.FieldUsername, user.Username)
}

// Delete removes the account and its expense rows. Dataset files on disk
// are left in place.
func (s *AuthService) Delete(ctx context.Context, username string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if err := s.users.DeleteUser(ctx, username); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Account deleted", log.FieldUsername, username)
	return nil
}

// isBcryptHash reports whether the stored credential carries a bcrypt
// prefix. Anything else is treated as legacy plaintext.
func isBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}
