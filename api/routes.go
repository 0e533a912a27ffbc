package api

import (
	"github.com/labstack/echo/v4"
	jwtmw "github.com/tech-arch1tect/authapi/middleware/jwt"
	ratelimitmw "github.com/tech-arch1tect/authapi/middleware/ratelimit"
	"github.com/tech-arch1tect/authapi/server"
)

// RegisterRoutes mounts every endpoint. Signup and login are throttled inside
// the auth service; the remaining API routes share the general per-IP limit.
func RegisterRoutes(srv *server.Server, h *Handler, authenticator jwtmw.Authenticator, apiLimit ratelimitmw.APIMiddleware) {
	srv.Get("/health", h.Health)

	api := srv.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", h.Signup)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh, echo.MiddlewareFunc(apiLimit))
	authGroup.POST("/logout", h.Logout, echo.MiddlewareFunc(apiLimit))

	api.GET("/me", h.Me, echo.MiddlewareFunc(apiLimit), jwtmw.RequireAuth(authenticator))
}
