package dto

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the login response. When the account has
// two-factor enabled the token fields are empty and ChallengeID carries the
// pending challenge to answer via the two-factor verification endpoint.
type LoginResponse struct {
	User              UserInfo `json:"user"`
	RequiresTwoFactor bool     `json:"requires_two_factor" example:"false"`
	ChallengeID       string   `json:"challenge_id,omitempty"`
	AccessToken       string   `json:"access_token,omitempty"`
	RefreshToken      string   `json:"refresh_token,omitempty"`
	TokenType         string   `json:"token_type,omitempty" example:"Bearer"`
	ExpiresIn         int      `json:"expires_in,omitempty" example:"86400"`
}

// TwoFactorVerifyRequest represents the request to complete a pending
// two-factor login challenge
type TwoFactorVerifyRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required,uuid4" example:"550e8400-e29b-41d4-a716-446655440000"`
	Code        string `json:"code" validate:"required,min=4,max=10" example:"123456"`
}

// TwoFactorVerifyResponse represents the response after a completed challenge
type TwoFactorVerifyResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type" example:"Bearer"`
	ExpiresIn    int      `json:"expires_in" example:"86400"`
}

// TwoFactorSetupRequest represents the request to enroll the current user in
// two-factor authentication
type TwoFactorSetupRequest struct {
	Code string `json:"code" validate:"required,min=4,max=10" example:"123456"`
}

// TwoFactorSetupResponse represents the response after enrollment
type TwoFactorSetupResponse struct {
	User UserInfo `json:"user"`
}

// RefreshTokenRequest represents the request to exchange a refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse represents the response with a fresh token pair
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"86400"`
}
