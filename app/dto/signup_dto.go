// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// SignupRequest represents the request payload for account creation
type SignupRequest struct {
	Email            string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password         string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	AttestationToken string `json:"attestation_token" validate:"required" example:"03AGdBq25..."`
}

// SignupResponse represents the response after account creation. For the
// first-ever account the session fields are populated and no verification
// step is required; for every later account they are empty and the user must
// verify by email first.
type SignupResponse struct {
	User                 UserInfo `json:"user"`
	RequiresVerification bool     `json:"requires_verification" example:"true"`
	AccessToken          string   `json:"access_token,omitempty"`
	RefreshToken         string   `json:"refresh_token,omitempty"`
	TokenType            string   `json:"token_type,omitempty" example:"Bearer"`
	ExpiresIn            int      `json:"expires_in,omitempty" example:"86400"`
}

// VerifyEmailRequest represents the request to redeem a verification token
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required,max=255" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// VerifyEmailResponse represents the response after successful verification.
// Redeeming the token activates the account and signs the user in.
type VerifyEmailResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type" example:"Bearer"`
	ExpiresIn    int      `json:"expires_in" example:"86400"`
}

// UserInfo represents user information returned in API responses
type UserInfo struct {
	ID               uint       `json:"id" example:"123"`
	UUID             string     `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email            string     `json:"email" example:"user@example.com"`
	Role             string     `json:"role" example:"user"`
	Plan             string     `json:"plan" example:"Free"`
	IsActive         bool       `json:"is_active" example:"true"`
	TwoFactorEnabled bool       `json:"two_factor_enabled" example:"false"`
	CreatedAt        time.Time  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty" example:"2024-01-15T16:30:00Z"`
}
