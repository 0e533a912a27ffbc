package jwt

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authapi/services/auth"
)

const PrincipalKey = "_auth_principal"

// UnauthorizedMessage is the only message a rejected request ever sees.
const UnauthorizedMessage = "Unauthorized"

type Authenticator interface {
	Authenticate(token string) (*auth.Principal, error)
}

// RequireAuth rejects any request without a valid Bearer access token. Missing
// headers, malformed tokens, bad signatures and expiry all produce the same 401.
func RequireAuth(authenticator Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, UnauthorizedMessage)
			}

			principal, err := authenticator.Authenticate(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, UnauthorizedMessage)
			}

			c.Set(PrincipalKey, principal)

			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "

	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func GetPrincipal(c echo.Context) *auth.Principal {
	if principal, ok := c.Get(PrincipalKey).(*auth.Principal); ok {
		return principal
	}
	return nil
}

func GetUserID(c echo.Context) uint {
	if principal := GetPrincipal(c); principal != nil {
		return principal.UserID
	}
	return 0
}
