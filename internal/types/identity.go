package types

// Identity is the signed-in visitor as reported by the identity provider.
// It is populated on sign-in and discarded on sign-out.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (i Identity) Authenticated() bool {
	return i.Email != ""
}

type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type PledgeResponse struct {
	PledgeID     string `json:"pledge_id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code"`
	ReferralLink string `json:"referral_link"`
}

type NoticeResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}
