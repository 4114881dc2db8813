package pledge

import (
	"errors"
	"fmt"
)

const VariantDestructive = "destructive"

// Notice is the single transient message shown for a submit attempt.
type Notice struct {
	Title       string
	Description string
	Variant     string
}

func (r Receipt) Notice() Notice {
	switch {
	case r.Outcome == OutcomeAlreadyPledged:
		return Notice{
			Title:       "You've already made a pledge!",
			Description: fmt.Sprintf("Welcome back, %s! Thank you for your commitment.", r.FullName),
		}
	case r.ReferredBy != "":
		return Notice{
			Title:       "Pledge submitted successfully!",
			Description: fmt.Sprintf("You were referred by %s. Welcome to the Bloom for Lungs community!", r.ReferredBy),
		}
	default:
		return Notice{
			Title:       "Pledge submitted successfully!",
			Description: "Welcome to the Bloom for Lungs community!",
		}
	}
}

// ErrorNotice maps a Submit error to its notice. Validation errors are shown
// inline next to the fields, so ok is false for them.
func ErrorNotice(err error) (notice Notice, ok bool) {
	var invalid *ValidationError

	switch {
	case errors.As(err, &invalid):
		return Notice{}, false
	case IsEmailConflict(err):
		return Notice{
			Title:       "You've already made a pledge!",
			Description: "This email has already been used for a pledge.",
		}, true
	case errors.Is(err, ErrGateClosed):
		return Notice{
			Title:       "Please wait",
			Description: "You can submit your pledge once the countdown ends.",
			Variant:     VariantDestructive,
		}, true
	case errors.Is(err, ErrSubmissionInFlight):
		return Notice{
			Title:       "Submission in progress",
			Description: "Your pledge is already being submitted.",
			Variant:     VariantDestructive,
		}, true
	default:
		return Notice{
			Title:       "Error submitting pledge",
			Description: "Please try again later.",
			Variant:     VariantDestructive,
		}, true
	}
}
