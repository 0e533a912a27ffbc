// Package api exposes the auth service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	jwtmw "github.com/tech-arch1tect/authapi/middleware/jwt"
	"github.com/tech-arch1tect/authapi/services/auth"
	"github.com/tech-arch1tect/authapi/services/logging"
)

type Handler struct {
	auth    *auth.Service
	logger  *logging.Service
	started time.Time
	now     func() time.Time
}

func NewHandler(authService *auth.Service, logger *logging.Service) *Handler {
	return &Handler{
		auth:    authService,
		logger:  logger,
		started: time.Now(),
		now:     time.Now,
	}
}

type signupRequest struct {
	PhoneNumber string `json:"phone_number"`
	FullName    string `json:"full_name"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid JSON body")
	}

	result, err := h.auth.Signup(c.Request().Context(), auth.SignupInput{
		PhoneNumber: req.PhoneNumber,
		FullName:    req.FullName,
		Username:    req.Username,
		Password:    req.Password,
		ClientIP:    c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
	})
	if err != nil {
		return respondError(c, err, "Registration failed. Please try again.")
	}

	return c.JSON(http.StatusCreated, Envelope{
		Success: true,
		Message: "Account created successfully",
		Data:    newSessionResponse(result),
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid JSON body")
	}

	result, err := h.auth.Login(c.Request().Context(), auth.LoginInput{
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		ClientIP:    c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
	})
	if err != nil {
		return respondError(c, err, "Login failed. Please try again.")
	}

	return c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: "Login successful",
		Data:    newSessionResponse(result),
	})
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid JSON body")
	}

	result, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, err, "Token refresh failed. Please try again.")
	}

	return c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: "Token refreshed",
		Data:    newSessionResponse(result),
	})
}

func (h *Handler) Logout(c echo.Context) error {
	var req refreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid JSON body")
	}

	if err := h.auth.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return respondError(c, err, "Logout failed. Please try again.")
	}

	return c.JSON(http.StatusOK, Envelope{Success: true, Message: "Logged out"})
}

func (h *Handler) Me(c echo.Context) error {
	principal := jwtmw.GetPrincipal(c)
	if principal == nil {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}

	u, err := h.auth.Profile(c.Request().Context(), principal.UserID)
	if err != nil {
		return respondError(c, err, "Something went wrong. Please try again.")
	}

	return c.JSON(http.StatusOK, Envelope{Success: true, Data: newUserResponse(u, true)})
}

func (h *Handler) Health(c echo.Context) error {
	now := h.now()
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: now.Sub(h.started).Seconds(),
		TS:     now.UTC(),
	})
}
