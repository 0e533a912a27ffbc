package auth

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tech-arch1tect/authapi/services/password"
)

const (
	FieldPhoneNumber  = "phone_number"
	FieldFullName     = "full_name"
	FieldUsername     = "username"
	FieldPassword     = "password"
	FieldRefreshToken = "refresh_token"

	minFullNameLength = 2
	maxFullNameLength = 150
)

var (
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

type SignupInput struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	FullName    string `json:"full_name" validate:"required,min=2,max=150"`
	Username    string `json:"username" validate:"required,username"`
	Password    string `json:"password" validate:"password_policy"`
	ClientIP    string `json:"-"`
	UserAgent   string `json:"-"`
}

type LoginInput struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Password    string `json:"password" validate:"required"`
	ClientIP    string `json:"-"`
	UserAgent   string `json:"-"`
}

// normalize trims surrounding whitespace. Passwords are left untouched.
func (in SignupInput) normalize() SignupInput {
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	return in
}

func (in LoginInput) normalize() LoginInput {
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	return in
}

var signupMessages = map[string]string{
	FieldPhoneNumber: "Must be a valid international phone number (e.g. +919876543210)",
	FieldFullName:    fmt.Sprintf("Must be between %d and %d characters", minFullNameLength, maxFullNameLength),
	FieldUsername:    "Must be 3-30 characters (letters, numbers, underscores only)",
}

var loginMessages = map[string]string{
	FieldPhoneNumber: "Must be a valid phone number",
	FieldPassword:    "Required",
}

// inputValidator wraps a lazily built validator.Validate that knows the
// phone, username and password_policy tags.
type inputValidator struct {
	once     sync.Once
	policy   password.Policy
	validate *validator.Validate
}

func newInputValidator(policy password.Policy) *inputValidator {
	return &inputValidator{policy: policy}
}

func (v *inputValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON names.
		v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		_ = v.validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		_ = v.validate.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
			return len(v.policy.Validate(fl.Field().String())) == 0
		})
	})
}

// check validates in and maps every failing field onto the caller-facing
// message for it. A failing password_policy tag expands into one entry per
// broken policy rule.
func (v *inputValidator) check(in any, messages map[string]string) ValidationErrors {
	v.lazyinit()

	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "input", Message: "Invalid input"}}
	}

	var errs ValidationErrors
	for _, fe := range fieldErrs {
		if fe.Tag() == "password_policy" {
			for _, msg := range v.policy.Validate(fe.Value().(string)) {
				errs = append(errs, FieldError{fe.Field(), msg})
			}
			continue
		}

		msg, ok := messages[fe.Field()]
		if !ok {
			msg = "Invalid value"
		}
		errs = append(errs, FieldError{fe.Field(), msg})
	}
	return errs
}

func (s *Service) validateSignup(in SignupInput) ValidationErrors {
	return s.validator.check(in, signupMessages)
}

func (s *Service) validateLogin(in LoginInput) ValidationErrors {
	return s.validator.check(in, loginMessages)
}
