package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePledgeFullName(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		want     string
	}{
		{name: "empty", fullName: "", want: "Full name is required"},
		{name: "whitespace only", fullName: "   ", want: "Full name is required"},
		{name: "single character", fullName: " A ", want: "Full name must be at least 2 characters"},
		{name: "single multibyte character", fullName: "é", want: "Full name must be at least 2 characters"},
		{name: "two characters", fullName: "Al", want: ""},
		{name: "full name", fullName: "Ada Lovelace", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidatePledge(PledgeForm{FullName: tt.fullName}, "ada@example.com")
			assert.Equal(t, tt.want, errs[FieldFullName])
		})
	}
}

func TestValidatePledgeRequiresSignIn(t *testing.T) {
	errs := ValidatePledge(PledgeForm{FullName: "Ada Lovelace"}, "")
	assert.Equal(t, "Please sign in to make a pledge", errs[FieldEmail])
	assert.False(t, errs.Empty())

	errs = ValidatePledge(PledgeForm{FullName: "Ada Lovelace"}, "ada@mailinator.com")
	assert.True(t, errs.Empty(), "signed-in identities skip the disposable domain check")
}

func TestValidateEmail(t *testing.T) {
	assert.Equal(t, "Email is required", ValidateEmail(" "))
	assert.Equal(t, "Please enter a valid email address", ValidateEmail("not-an-email"))
	assert.Equal(t, "Please enter a valid email address", ValidateEmail("a b@example.com"))
	assert.Equal(t, "Temporary email addresses are not allowed", ValidateEmail("bot@mailinator.com"))
	assert.Equal(t, "Temporary email addresses are not allowed", ValidateEmail("bot@TempMail.com"))
	assert.Empty(t, ValidateEmail("grace@navy.mil"))
}

func TestValidateTypedPledge(t *testing.T) {
	errs := ValidateTypedPledge(PledgeForm{FullName: "G"}, "bot@guerrillamail.com")
	assert.Len(t, errs, 2)

	errs = ValidateTypedPledge(PledgeForm{FullName: "Grace Hopper"}, "grace@navy.mil")
	assert.True(t, errs.Empty())
}
