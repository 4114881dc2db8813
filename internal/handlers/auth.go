package handlers

import (
	"net/http"

	"github.com/bloomforlungs/bloom/internal/referral"
	"github.com/bloomforlungs/bloom/internal/types"
	"github.com/bloomforlungs/bloom/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BeginSignIn redirects to the identity provider. A ref query parameter is
// carried through the round trip inside the signed state.
func (h *Handler) BeginSignIn(ctx *gin.Context) {
	state, err := h.Issuer.SignState(utils.GetReferralParam(ctx))

	if err != nil {
		h.logger().Error("signing oauth state failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.Redirect(http.StatusTemporaryRedirect, h.Provider.AuthCodeURL(state))
}

func (h *Handler) SignInCallback(ctx *gin.Context) {
	ref, err := h.Issuer.VerifyState(ctx.Query("state"))

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sign-in state"})
		return
	}

	code := ctx.Query("code")

	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code is required"})
		return
	}

	identity, err := h.Provider.Exchange(ctx.Request.Context(), code)

	if err != nil {
		h.logger().Warn("sign-in exchange failed", zap.Error(err))
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in failed"})
		return
	}

	token, err := h.Issuer.GenerateJWT(identity)

	if err != nil {
		h.logger().Error("generating session token failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.setTokenCookie(ctx, token, int(h.Issuer.TTL().Seconds()))

	target := h.ClientURL
	if ref != "" {
		if link, err := referral.Link(h.ClientURL, ref); err == nil {
			target = link
		}
	}

	ctx.Redirect(http.StatusFound, target)
}

func (h *Handler) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			Email: currentUser.Email,
			Name:  currentUser.Name,
		},
	})
}

// Logout clears the session cookie and unmounts the visitor's pledge form.
func (h *Handler) Logout(ctx *gin.Context) {
	if currentUser, err := utils.GetCurrentUser(ctx); err == nil {
		h.Gates.Release(currentUser.Email)
	}

	h.setTokenCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) setTokenCookie(ctx *gin.Context, value string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.TokenCookie,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}
