package pledge

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bloomforlungs/bloom/internal/validation"
)

const (
	ConflictEmail        = "email"
	ConflictReferralCode = "referral_code"
)

var (
	ErrTransient          = errors.New("pledge repository unavailable")
	ErrGateClosed         = errors.New("submission gate is closed")
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// ConflictError reports a unique constraint violation on Field.
type ConflictError struct {
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unique constraint violated on %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("unique constraint violated on %s", e.Field)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// IsEmailConflict reports whether err is a unique violation on the email.
func IsEmailConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) && conflict.Field == ConflictEmail
}

type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return "invalid pledge: " + strings.Join(fields, "; ")
}

// Transient wraps err in ErrTransient unless it already is one.
func Transient(op string, err error) error {
	if errors.Is(err, ErrTransient) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
}
