package core

import (
	"errors"
	"strings"
)

var (
	ErrEmptyUsername    = errors.New("empty username")
	ErrInvalidUsername  = errors.New("invalid username")
	ErrEmptyName        = errors.New("empty name")
	ErrPasswordTooShort = errors.New("password too short")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrUnknownUser      = errors.New("unknown user")
)

// User is an account holder. PasswordHash carries whatever credential the
// store holds: a bcrypt hash for accounts created or upgraded by this
// version, or a legacy plaintext password from older data.
type User struct {
	ID           int64
	Username     string
	Name         string
	PasswordHash string
}

// MinPasswordLength applies to new registrations only; legacy credentials
// are accepted as stored.
const MinPasswordLength = 8

// ValidateUsername checks the username used as the account key and as the
// per-user dataset directory name: lowercase letters, digits, dots,
// hyphens and underscores, 1-64 characters.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	if len(username) > 64 {
		return ErrInvalidUsername
	}
	// The username doubles as a directory name; dot-only names would
	// resolve outside the data root.
	if username == "." || username == ".." {
		return ErrInvalidUsername
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

func (u User) Validate() error {
	if err := ValidateUsername(u.Username); err != nil {
		return err
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
