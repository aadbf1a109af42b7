package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bitelogs/internal/apperr"
)

func TestCheckPassword(t *testing.T) {
	cases := map[string]int{
		"Demo123!@#": 0,
		"Abcdef1!":   0,
		"short1!A":   0,
		"abc":        4, // length, upper, digit, special
		"abcdefgh":   3,
		"ABCDEFGH1!": 1,
		"Abcdefgh1":  1,
	}
	for pw, want := range cases {
		var fe apperr.FieldErrors
		CheckPassword(&fe, "password", pw)
		assert.Len(t, fe, want, pw)
	}
}
