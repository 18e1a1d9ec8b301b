package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	// bcrypt refuses input longer than this
	maxPasswordBytes = 72
	passwordSpecials  = "@$!%*?&"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. Malformed hashes never
// match.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordViolations lists every rule password breaks. An empty result means
// the password is acceptable.
func PasswordViolations(password string) []string {
	var violations []string

	if utf8.RuneCountInString(password) < minPasswordLength {
		violations = append(violations,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		violations = append(violations,
			fmt.Sprintf("password must not exceed %d bytes", maxPasswordBytes))
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	if !upper {
		violations = append(violations, "password must contain an uppercase letter")
	}
	if !lower {
		violations = append(violations, "password must contain a lowercase letter")
	}
	if !digit {
		violations = append(violations, "password must contain a digit")
	}
	if !special {
		violations = append(violations, "password must contain one of "+passwordSpecials)
	}

	return violations
}
