package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokens() TokenService {
	return TokenService{Secret: []byte("test-secret"), Issuer: "bitelogs", Duration: time.Hour}
}

func TestTokenRoundTrip(t *testing.T) {
	ts := testTokens()
	u := &User{ID: 7, Email: "a@b.co", IsAdmin: true, TokenVersion: 3}

	tok, exp, err := ts.Sign(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, "7", claims.Subject)
}

func TestTokenRejectsTampering(t *testing.T) {
	ts := testTokens()
	tok, _, err := ts.Sign(&User{ID: 1})
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	_, err = ts.Parse(parts[0] + "." + parts[1] + "." + string(sig))
	assert.Error(t, err)

	other := ts
	other.Secret = []byte("another-secret")
	_, err = other.Parse(tok)
	assert.Error(t, err)

	other = ts
	other.Issuer = "someone-else"
	_, err = other.Parse(tok)
	assert.Error(t, err)
}

func TestTokenRejectsExpiredAndUnsigned(t *testing.T) {
	ts := testTokens()
	ts.Duration = -time.Minute
	tok, _, err := ts.Sign(&User{ID: 1})
	require.NoError(t, err)
	_, err = testTokens().Parse(tok)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = testTokens().Parse(raw)
	assert.Error(t, err)
}
