package handlers

import (
	"errors"
	"net/http"

	"github.com/bloomforlungs/bloom/internal/impact"
	"github.com/bloomforlungs/bloom/internal/pledge"
	"github.com/bloomforlungs/bloom/internal/referral"
	"github.com/bloomforlungs/bloom/internal/types"
	"github.com/bloomforlungs/bloom/internal/utils"
	"github.com/bloomforlungs/bloom/internal/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FormStatusResponse struct {
	Remaining  int    `json:"remaining"`
	Enabled    bool   `json:"enabled"`
	Submitting bool   `json:"submitting"`
	FullName   string `json:"full_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Ref        string `json:"ref,omitempty"`
}

type CheckPledgeRequest struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code"`
}

// OpenForm mounts the pledge form for the signed-in visitor and starts its
// countdown. The ref query parameter is echoed back to prefill the form.
func (h *Handler) OpenForm(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	countdown := h.Gates.Open(currentUser.Email)

	ctx.JSON(http.StatusOK, FormStatusResponse{
		Remaining:  countdown.Remaining(),
		Enabled:    countdown.Enabled(),
		Submitting: h.Submitter.Submitting(currentUser.Email),
		FullName:   currentUser.Name,
		Email:      currentUser.Email,
		Ref:        utils.GetReferralParam(ctx),
	})
}

func (h *Handler) FormStatus(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	countdown, ok := h.Gates.Get(currentUser.Email)

	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Pledge form is not open"})
		return
	}

	ctx.JSON(http.StatusOK, FormStatusResponse{
		Remaining:  countdown.Remaining(),
		Enabled:    countdown.Enabled(),
		Submitting: h.Submitter.Submitting(currentUser.Email),
	})
}

func (h *Handler) CloseForm(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	h.Gates.Release(currentUser.Email)

	ctx.JSON(http.StatusOK, gin.H{"message": "Pledge form closed"})
}

// CheckPledge validates form input without submitting it. With an email in
// the body it checks the typed-email variant of the form.
func (h *Handler) CheckPledge(ctx *gin.Context) {
	var body CheckPledgeRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	form := validation.PledgeForm{FullName: body.FullName, ReferralCode: body.ReferralCode}

	var errs validation.Errors
	if body.Email != "" {
		errs = validation.ValidateTypedPledge(form, body.Email)
	} else {
		currentUser, _ := utils.GetCurrentUser(ctx)
		errs = validation.ValidatePledge(form, currentUser.Email)
	}

	ctx.JSON(http.StatusOK, gin.H{"valid": errs.Empty(), "fields": errs})
}

func (h *Handler) SubmitPledge(ctx *gin.Context) {
	var form validation.PledgeForm

	if err := ctx.BindJSON(&form); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		// Nobody to key a gate on; report the validation result directly.
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":  "Invalid pledge",
			"fields": validation.ValidatePledge(form, ""),
		})
		return
	}

	receipt, err := h.Submitter.Submit(ctx.Request.Context(), currentUser, form)

	if err != nil {
		h.respondSubmitError(ctx, currentUser, err)
		return
	}

	status := http.StatusCreated
	if receipt.Outcome == pledge.OutcomeAlreadyPledged {
		status = http.StatusOK
	}

	ctx.JSON(status, gin.H{
		"outcome": receipt.Outcome.String(),
		"pledge":  h.pledgeResponse(receipt.PledgeID, receipt.FullName, receipt.Email, receipt.ReferralCode),
		"notice":  noticeResponse(receipt.Notice()),
	})
}

func (h *Handler) respondSubmitError(ctx *gin.Context, currentUser types.Identity, err error) {
	var (
		invalid  *pledge.ValidationError
		conflict *pledge.ConflictError
	)

	if errors.As(err, &invalid) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pledge", "fields": invalid.Fields})
		return
	}

	notice, _ := pledge.ErrorNotice(err)
	body := gin.H{"error": err.Error(), "notice": noticeResponse(notice)}

	switch {
	case errors.Is(err, pledge.ErrGateClosed):
		remaining := 0
		if countdown, ok := h.Gates.Get(currentUser.Email); ok {
			remaining = countdown.Remaining()
		}
		body["remaining"] = remaining
		ctx.JSON(http.StatusTooManyRequests, body)
	case pledge.IsEmailConflict(err):
		// Lost a race with another submission for the same email.
		ctx.JSON(http.StatusOK, gin.H{
			"outcome": pledge.OutcomeAlreadyPledged.String(),
			"notice":  noticeResponse(notice),
		})
	case errors.Is(err, pledge.ErrSubmissionInFlight), errors.As(err, &conflict):
		ctx.JSON(http.StatusConflict, body)
	default:
		h.logger().Error("pledge submission failed", zap.String("email", currentUser.Email), zap.Error(err))
		body["error"] = "Pledge service unavailable"
		ctx.JSON(http.StatusServiceUnavailable, body)
	}
}

func (h *Handler) MyPledge(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	existing, err := h.Directory.FindByEmail(ctx.Request.Context(), currentUser.Email)

	if err != nil {
		h.logger().Error("finding pledge failed", zap.String("email", currentUser.Email), zap.Error(err))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Pledge service unavailable"})
		return
	}

	if existing == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "No pledge found"})
		return
	}

	referrals, err := h.Directory.CountReferrals(ctx.Request.Context(), existing.ID)

	if err != nil {
		h.logger().Warn("counting referrals failed", zap.String("pledge_id", existing.ID), zap.Error(err))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"pledge":    h.pledgeResponse(existing.ID, existing.FullName, existing.Email, existing.ReferralCode),
		"referrals": referrals,
	})
}

func (h *Handler) PledgeCount(ctx *gin.Context) {
	count := h.Counter.Value()

	ctx.JSON(http.StatusOK, gin.H{
		"count": count,
		"stats": impact.For(count),
	})
}

func (h *Handler) pledgeResponse(id, fullName, email, code string) types.PledgeResponse {
	link, err := referral.Link(h.PublicBaseURL, code)

	if err != nil {
		h.logger().Warn("building referral link failed", zap.String("referral_code", code), zap.Error(err))
	}

	return types.PledgeResponse{
		PledgeID:     id,
		FullName:     fullName,
		Email:        email,
		ReferralCode: code,
		ReferralLink: link,
	}
}

func noticeResponse(n pledge.Notice) types.NoticeResponse {
	return types.NoticeResponse{
		Title:       n.Title,
		Description: n.Description,
		Variant:     n.Variant,
	}
}
