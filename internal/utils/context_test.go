package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/bloomforlungs/bloom/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetCurrentUser(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ctx.Set(types.ContextUserKey, "not an identity")
	_, err = GetCurrentUser(ctx)
	assert.Error(t, err)

	ctx.Set(types.ContextUserKey, types.Identity{})
	_, err = GetCurrentUser(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ctx.Set(types.ContextUserKey, types.Identity{Email: "ada@example.com", Name: "Ada"})
	identity, err := GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", identity.Email)
}

func TestGetReferralParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		target string
		want   string
	}{
		{"/?ref=%20ABCD123%20", "ABCD123"},
		{"/?ref=GRAC001", "GRAC001"},
		{"/", ""},
		{"/?ref=%20%20", ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
			ctx.Request = httptest.NewRequest("GET", tt.target, nil)

			assert.Equal(t, tt.want, GetReferralParam(ctx))
		})
	}
}
