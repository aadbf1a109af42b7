package auth

import (
	"unicode"

	"bitelogs/internal/apperr"
)

const (
	MinPasswordLen = 8
	// bcrypt ignores anything past 72 bytes.
	MaxPasswordLen = 72
)

// CheckPassword adds a field error for each complexity rule pw breaks.
func CheckPassword(fe *apperr.FieldErrors, field, pw string) {
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	fe.Check(len(pw) >= MinPasswordLen, field, "Password must be at least 8 characters")
	fe.Check(len(pw) <= MaxPasswordLen, field, "Password must be at most 72 characters")
	fe.Check(upper, field, "Password must contain at least one uppercase letter")
	fe.Check(lower, field, "Password must contain at least one lowercase letter")
	fe.Check(digit, field, "Password must contain at least one number")
	fe.Check(special, field, "Password must contain at least one special character")
}
