// Package password handles password hashing plus the input validation rules
// that registration depends on.
package password

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var (
	ErrHashing    = errors.New("password hashing failed")
	ErrComparison = errors.New("password comparison failed")
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Hash hashes a plaintext password with bcrypt at cost 10.
func Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", ErrHashing
	}
	return string(hash), nil
}

// Compare reports whether plain matches the stored hash. A mismatch is
// (false, nil); only a malformed hash yields an error.
func Compare(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, ErrComparison
}

// Validation is the result of a field validity check.
type Validation struct {
	Valid bool
	Err   string
}

func valid() Validation {
	return Validation{Valid: true}
}

func invalid(msg string) Validation {
	return Validation{Err: msg}
}

// ValidateUsername enforces 3-30 characters, letters/digits/underscores only.
// Both boundaries are inclusive.
func ValidateUsername(username string) Validation {
	if username == "" {
		return invalid("Username is required")
	}
	if len(username) < 3 {
		return invalid("Username must be at least 3 characters")
	}
	if len(username) > 30 {
		return invalid("Username must be less than 30 characters")
	}
	if !usernamePattern.MatchString(username) {
		return invalid("Username can only contain letters, numbers, and underscores")
	}
	return valid()
}

// ValidateEmail checks for a local@domain.tld shape.
func ValidateEmail(email string) Validation {
	if email == "" {
		return invalid("Email is required")
	}
	if !emailPattern.MatchString(email) {
		return invalid("Invalid email format")
	}
	return valid()
}

// ValidatePassword enforces 6-100 characters inclusive.
func ValidatePassword(pw string) Validation {
	if pw == "" {
		return invalid("Password is required")
	}
	if len(pw) < 6 {
		return invalid("Password must be at least 6 characters")
	}
	if len(pw) > 100 {
		return invalid("Password must be less than 100 characters")
	}
	return valid()
}
