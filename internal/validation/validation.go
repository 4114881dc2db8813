// Package validation checks pledge form input before anything touches the
// repository. Every function here is pure.
package validation

import (
	"regexp"
	"strings"
)

const (
	FieldFullName = "fullName"
	FieldEmail    = "email"
)

// Errors maps a form field to a human readable message.
type Errors map[string]string

func (e Errors) Empty() bool {
	return len(e) == 0
}

// PledgeForm is what the visitor types. The email is never part of it; it
// comes from the signed-in identity.
type PledgeForm struct {
	FullName     string `json:"full_name"`
	ReferralCode string `json:"referral_code"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var blockedDomains = map[string]struct{}{
	"tempmail.com":      {},
	"10minutemail.com":  {},
	"guerrillamail.com": {},
	"mailinator.com":    {},
	"throwaway.email":   {},
	"yopmail.com":       {},
	"trashmail.com":     {},
}

// ValidatePledge validates a form submitted by a signed-in visitor. An empty
// email means nobody is signed in.
func ValidatePledge(form PledgeForm, email string) Errors {
	errs := Errors{}

	if msg := validateFullName(form.FullName); msg != "" {
		errs[FieldFullName] = msg
	}

	if strings.TrimSpace(email) == "" {
		errs[FieldEmail] = "Please sign in to make a pledge"
	}

	return errs
}

// ValidateTypedPledge validates the variant of the form where the visitor
// types the email address instead of signing in.
func ValidateTypedPledge(form PledgeForm, email string) Errors {
	errs := Errors{}

	if msg := validateFullName(form.FullName); msg != "" {
		errs[FieldFullName] = msg
	}

	if msg := ValidateEmail(email); msg != "" {
		errs[FieldEmail] = msg
	}

	return errs
}

// ValidateEmail returns an empty string when the address is acceptable.
func ValidateEmail(email string) string {
	email = strings.TrimSpace(email)

	if email == "" {
		return "Email is required"
	}

	if !emailPattern.MatchString(email) {
		return "Please enter a valid email address"
	}

	if IsDisposableDomain(email[strings.LastIndex(email, "@")+1:]) {
		return "Temporary email addresses are not allowed"
	}

	return ""
}

func IsDisposableDomain(domain string) bool {
	_, blocked := blockedDomains[strings.ToLower(strings.TrimSpace(domain))]
	return blocked
}

func validateFullName(name string) string {
	name = strings.TrimSpace(name)

	switch {
	case name == "":
		return "Full name is required"
	case len([]rune(name)) < 2:
		return "Full name must be at least 2 characters"
	}

	return ""
}
