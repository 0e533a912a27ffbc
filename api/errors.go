package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	ratelimitmw "github.com/tech-arch1tect/authapi/middleware/ratelimit"
	"github.com/tech-arch1tect/authapi/services/auth"
)

// respondError maps the auth error taxonomy onto HTTP. failureMessage is the
// only text an infrastructure failure ever shows the caller.
func respondError(c echo.Context, err error, failureMessage string) error {
	var (
		verrs    auth.ValidationErrors
		conflict *auth.ConflictError
		limited  *auth.RateLimitError
	)

	switch {
	case errors.As(err, &verrs):
		return c.JSON(http.StatusUnprocessableEntity, Envelope{Success: false, Errors: verrs.Strings()})
	case errors.As(err, &conflict):
		return fail(c, http.StatusConflict, conflict.Error())
	case errors.As(err, &limited):
		c.Response().Header().Set("Retry-After", ratelimitmw.RetryAfterSeconds(limited.RetryAfter))
		return fail(c, http.StatusTooManyRequests, rateLimitMessage(limited))
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "Invalid phone number or password")
	case errors.Is(err, auth.ErrAccountDeactivated):
		return fail(c, http.StatusForbidden, "Account is deactivated. Contact support.")
	case errors.Is(err, auth.ErrUnauthenticated):
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, auth.ErrUserNotFound):
		return fail(c, http.StatusNotFound, "User not found")
	default:
		return fail(c, http.StatusInternalServerError, failureMessage)
	}
}

func rateLimitMessage(err *auth.RateLimitError) string {
	if err.Action != "login" {
		return "Too many requests. Please try again later."
	}

	minutes := int(math.Ceil(err.RetryAfter.Minutes()))
	switch {
	case minutes <= 1:
		return "Too many login attempts. Please try again in 1 minute."
	default:
		return fmt.Sprintf("Too many login attempts. Please try again in %d minutes.", minutes)
	}
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message})
}
