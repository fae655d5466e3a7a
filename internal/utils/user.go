package utils

import (
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

const MaxUsername = 15

// IsWord reports whether s is non-empty and made only of [A-Za-z0-9_].
func IsWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

// ValidUsername checks length and alphabet.
func ValidUsername(name string) bool {
	return len(name) <= MaxUsername && IsWord(name)
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ParseHandle decodes the base-36 external form of a comment id.
func ParseHandle(handle string) (uint, bool) {
	n, err := strconv.ParseUint(handle, 36, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
