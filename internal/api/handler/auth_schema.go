package handler

import "time"

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=16"`
}

// loginRequest only checks presence; every other failure must surface as the
// same 401 regardless of why the credentials were wrong.
type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerResponse struct {
	ID string `json:"id"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type meResponse struct {
	AccountID string    `json:"account_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is the JSON envelope for every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}
