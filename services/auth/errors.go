package auth

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid phone number or password")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrRateLimited        = errors.New("too many requests")
	ErrInfrastructure     = errors.New("internal error")
	// ErrUnauthenticated is the single outcome of every access token failure.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUserNotFound    = errors.New("user not found")
)

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors carries every rule an input broke. It is never returned
// alongside a partial result.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

func (v ValidationErrors) Strings() []string {
	out := make([]string, len(v))
	for i, fe := range v {
		out[i] = fe.String()
	}
	return out
}

// ConflictError reports a uniqueness violation. Field is empty when the
// conflicting field is unknown or deliberately withheld.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	switch e.Field {
	case FieldPhoneNumber:
		return "Phone number already registered"
	case FieldUsername:
		return "Username already taken"
	default:
		return "An account with these details already exists"
	}
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

type RateLimitError struct {
	Action     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return "too many " + e.Action + " attempts"
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// InfraError hides a storage or runtime failure behind an opaque message.
// The cause stays reachable through Unwrap for logging.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return "auth: " + e.Op + ": internal error"
}

func (e *InfraError) Is(target error) bool {
	return target == ErrInfrastructure
}

func (e *InfraError) Unwrap() error {
	return e.Err
}
