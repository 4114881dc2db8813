package middleware

import (
	"net/http"
	"strings"

	"github.com/bloomforlungs/bloom/internal/auth"
	"github.com/bloomforlungs/bloom/internal/types"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware rejects requests without a valid session token.
func AuthMiddleware(issuer *auth.Issuer) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, err := extractToken(ctx)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		identity, err := issuer.VerifyJWT(tokenString)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		ctx.Set(types.ContextUserKey, identity)
		ctx.Next()
	}
}

// OptionalAuth sets the identity when a valid token is present and lets the
// request through either way.
func OptionalAuth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if tokenString, err := extractToken(ctx); err == nil {
			if identity, err := issuer.VerifyJWT(tokenString); err == nil {
				ctx.Set(types.ContextUserKey, identity)
			}
		}
		ctx.Next()
	}
}

type tokenError string

func (e tokenError) Error() string { return string(e) }

func extractToken(ctx *gin.Context) (string, error) {
	authHeader := ctx.GetHeader("Authorization")

	if authHeader == "" {
		cookie, err := ctx.Cookie(types.TokenCookie)
		if err != nil || cookie == "" {
			return "", tokenError("Authorization token is required")
		}
		return cookie, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)

	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", tokenError("Authorization header format must be Bearer {token}")
	}

	return parts[1], nil
}
