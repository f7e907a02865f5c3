// Package authutil holds password hashing and the password rules shown on
// the registration form.
package authutil

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 12

var ErrPasswordTooShort = errors.New("password is too short")

// PasswordRules describes the password policy for display.
func PasswordRules() string {
	return "Pelo menos 8 caracteres."
}

// ValidatePassword checks pw against the password policy.
func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// HashPassword returns the bcrypt hash of pw.
func HashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether pw matches hash. A nil or empty hash (an
// account created through Google) never matches.
func CheckPassword(hash *string, pw string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(pw)) == nil
}
