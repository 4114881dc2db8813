package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bloomforlungs/bloom/internal/types"
	"github.com/gin-gonic/gin"
)

var ErrUnauthenticated = errors.New("User not authenticated")

// GetCurrentUser returns the identity the auth middleware stored on ctx.
func GetCurrentUser(ctx *gin.Context) (types.Identity, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return types.Identity{}, ErrUnauthenticated
	}

	identity, ok := user.(types.Identity)

	if !ok {
		return types.Identity{}, fmt.Errorf("Invalid user type in context")
	}

	if !identity.Authenticated() {
		return types.Identity{}, ErrUnauthenticated
	}

	return identity, nil
}

// GetReferralParam returns the trimmed ref query parameter, or "".
func GetReferralParam(ctx *gin.Context) string {
	return strings.TrimSpace(ctx.Query(types.ReferralParam))
}
