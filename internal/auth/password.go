// ABOUTME: bcrypt password hashing and verification
// ABOUTME: Includes a dummy comparison so unknown emails cost the same as wrong passwords

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a valid bcrypt hash compared against when the user does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password against a stored bcrypt hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("comparing password: %w", err)
	}
	return nil
}

// BurnPasswordCheck performs a throwaway comparison to keep login timing
// uniform when no user matched the submitted email.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
