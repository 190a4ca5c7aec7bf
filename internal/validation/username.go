package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// UsernamePattern определяет допустимый формат username
// Только word-символы: латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 1-64 символа
var UsernamePattern = regexp.MustCompile(`^\w{1,64}$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 1
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 64
)

// ErrInvalidUsername indicates that a username has illegal characters or length.
var ErrInvalidUsername = errors.New("invalid username")

// Username validates the passed username and returns its normalized
// (lowercased) form. Identity is case-insensitive: every lookup in the
// system goes through this normalization first.
//
// Формат: только буквы, цифры и нижнее подчеркивание, длина 1-64 символа.
func Username(username string) (string, error) {
	if len(username) < MinUsernameLen || len(username) > MaxUsernameLen {
		return "", fmt.Errorf("%w: %q must be %d-%d characters long",
			ErrInvalidUsername, username, MinUsernameLen, MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return "", fmt.Errorf("%w: %q can only contain letters, numbers and underscores",
			ErrInvalidUsername, username)
	}

	return strings.ToLower(username), nil
}
