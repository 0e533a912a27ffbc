package password

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Policy describes the strength rules a new password must satisfy.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireNumber bool
}

// Validate returns one message per broken rule; an empty result means the password is acceptable.
func (p Policy) Validate(password string) []string {
	var problems []string

	if utf8.RuneCountInString(password) < p.MinLength {
		problems = append(problems, fmt.Sprintf("Must be at least %d characters", p.MinLength))
	}
	if len(password) > MaxLength {
		problems = append(problems, fmt.Sprintf("Must be at most %d bytes", MaxLength))
	}

	var hasUpper, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasNumber = true
		}
	}

	if password != "" && p.RequireUpper && !hasUpper {
		problems = append(problems, "Must contain at least one uppercase letter")
	}
	if password != "" && p.RequireNumber && !hasNumber {
		problems = append(problems, "Must contain at least one number")
	}

	return problems
}
