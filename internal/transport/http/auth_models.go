package http

import "time"

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid credentials"`
}

// AuthUser models the sanitized user representation returned by auth endpoints.
type AuthUser struct {
	ID         string    `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Email      string    `json:"email" example:"user@example.com"`
	Name       *string   `json:"name,omitempty" example:"Sam Driver"`
	AvatarURL  *string   `json:"avatar_url,omitempty" example:"https://cdn.example.com/avatar.png"`
	IsVerified bool      `json:"is_verified" example:"true"`
	CreatedAt  time.Time `json:"created_at" example:"2024-01-01T12:00:00Z"`
}

// RegisterRequest carries the registration fields.
type RegisterRequest struct {
	Email    string  `json:"email" example:"user@example.com"`
	Password string  `json:"password" example:"StrongPass!23"`
	Name     *string `json:"name,omitempty" example:"Sam Driver"`
}

// LoginRequest carries email login fields.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"StrongPass!23"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Ok           bool     `json:"ok" example:"true"`
	AccessToken  string   `json:"accessToken" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string   `json:"refreshToken" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User         AuthUser `json:"user"`
}

// VerifyEmailRequest carries the composite verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74.3c2a..."`
}

// ForgotPasswordRequest captures the payload for requesting a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

// ResetPasswordRequest captures the payload for confirming a reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74.3c2a..."`
	NewPassword string `json:"newPassword" example:"NewPass!45"`
}

// RefreshRequest carries a refresh token for refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// RefreshResponse is returned with a freshly minted access token.
type RefreshResponse struct {
	Ok          bool   `json:"ok" example:"true"`
	AccessToken string `json:"accessToken" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// MeResponse is the guard-extracted identity of the caller.
type MeResponse struct {
	UserID string `json:"userId" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Email  string `json:"email" example:"user@example.com"`
}

// UpdateNameRequest captures the payload for renaming the profile.
type UpdateNameRequest struct {
	Name string `json:"name" example:"Sam Driver"`
}

// UpdateEmailRequest captures the payload for requesting an email change.
type UpdateEmailRequest struct {
	NewEmail string `json:"newEmail" example:"new@example.com"`
}

// UpdatePasswordRequest captures the payload for password updates.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" example:"OldPass!23"`
	NewPassword     string `json:"newPassword" example:"NewPass!45"`
}

// DeleteAccountRequest captures the password confirmation for deletion.
type DeleteAccountRequest struct {
	Password string `json:"password" example:"StrongPass!23"`
}
