package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bitelogs/internal/access"
	"bitelogs/internal/apperr"
)

const CtxClaimsKey = "auth_claims"

// AuthMiddleware rejects requests without a valid, current bearer token.
func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, tokens, repo)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		if claims == nil {
			apperr.Respond(c, apperr.Unauthenticated("No token provided"))
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present and lets
// every request through.
func OptionalAuth(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := authenticate(c, tokens, repo); err == nil && claims != nil {
			c.Set(CtxClaimsKey, claims)
		}
		c.Next()
	}
}

// authenticate returns nil claims and nil error when no token was sent.
func authenticate(c *gin.Context, tokens TokenService, repo *Repo) (*Claims, error) {
	h := c.GetHeader("Authorization")
	if h == "" {
		return nil, nil
	}
	if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return nil, apperr.Unauthenticated("Invalid authorization header")
	}

	raw := strings.TrimSpace(h[len("Bearer "):])
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, apperr.Unauthenticated("Invalid token")
	}

	if repo != nil {
		st, err := repo.GetTokenState(c.Request.Context(), claims.UserID)
		if err != nil {
			return nil, err
		}
		if st == nil || st.TokenVersion != claims.TokenVersion {
			return nil, apperr.Unauthenticated("Invalid token")
		}
		// privileges follow the account, not the token
		claims.IsAdmin = st.IsAdmin
	}
	return claims, nil
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// ActorFromContext returns nil for anonymous requests.
func ActorFromContext(c *gin.Context) *access.Actor {
	claims := MustGetClaims(c)
	if claims == nil {
		return nil
	}
	return &access.Actor{UserID: claims.UserID, IsAdmin: claims.IsAdmin}
}
