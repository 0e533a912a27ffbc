package api

import (
	"time"

	"github.com/tech-arch1tect/authapi/services/auth"
	"github.com/tech-arch1tect/authapi/services/user"
)

type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type UserResponse struct {
	ID          uint       `json:"id"`
	FullName    string     `json:"full_name"`
	Username    string     `json:"username"`
	PhoneNumber string     `json:"phone_number"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

type SessionResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
}

type HealthResponse struct {
	Status string    `json:"status"`
	Uptime float64   `json:"uptime"`
	TS     time.Time `json:"ts"`
}

func newUserResponse(u *user.User, withCreated bool) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		FullName:    u.FullName,
		Username:    u.Username,
		PhoneNumber: u.PhoneNumber,
	}
	if withCreated {
		created := u.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

func newSessionResponse(r *auth.Result) SessionResponse {
	return SessionResponse{
		User:         newUserResponse(r.User, false),
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
	}
}
