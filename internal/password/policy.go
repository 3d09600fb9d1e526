package password

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/dtroode/authcore/internal/model"
)

const maxLength = 100

var (
	ErrTooShort  = fmt.Errorf("%w: password is too short", model.ErrInvalidInput)
	ErrTooLong   = fmt.Errorf("%w: password is too long", model.ErrInvalidInput)
	ErrNoDigit   = fmt.Errorf("%w: password must contain at least one digit", model.ErrInvalidInput)
	ErrNoUpper   = fmt.Errorf("%w: password must contain at least one uppercase letter", model.ErrInvalidInput)
	ErrNoLower   = fmt.Errorf("%w: password must contain at least one lowercase letter", model.ErrInvalidInput)
	errNilPolicy = errors.New("nil password policy")
)

// Policy is the strength rule applied when a password is set.
type Policy struct {
	MinLength int
}

// NewPolicy creates a Policy. Lengths below 8 are raised to 8.
func NewPolicy(minLength int) *Policy {
	if minLength < 8 {
		minLength = 8
	}
	return &Policy{MinLength: minLength}
}

// Validate checks plaintext against the policy. It is not used on login so
// that tightening the policy never locks out existing users.
func (p *Policy) Validate(plaintext string) error {
	if p == nil {
		return errNilPolicy
	}

	n := len([]rune(plaintext))
	if n < p.MinLength {
		return ErrTooShort
	}
	if n > maxLength {
		return ErrTooLong
	}

	var digit, upper, lower bool
	for _, r := range plaintext {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}

	switch {
	case !digit:
		return ErrNoDigit
	case !upper:
		return ErrNoUpper
	case !lower:
		return ErrNoLower
	}
	return nil
}
