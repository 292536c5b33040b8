package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/middleware"
	businessflow "github.com/elby-ai/elby-backend/business_flow"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	signupFlow businessflow.SignupFlow
	loginFlow  businessflow.LoginFlow
	validator  *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(signupFlow businessflow.SignupFlow, loginFlow businessflow.LoginFlow) *AuthHandler {
	return &AuthHandler{
		signupFlow: signupFlow,
		loginFlow:  loginFlow,
		validator:  validator.New(),
	}
}

// Signup handles account creation
// @Summary User Registration
// @Description Register a new account. The first account ever created is activated immediately; later accounts must verify by email.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "User registration data"
// @Success 201 {object} dto.APIResponse{data=dto.SignupResponse} "Account created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.signupFlow.Signup(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsEmailAlreadyExists(err) {
			return errorResponse(c, fiber.StatusConflict, "An account with this email already exists", "EMAIL_EXISTS", nil)
		}
		if businessflow.IsAttestationRequired(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Attestation token is required", "ATTESTATION_REQUIRED", nil)
		}
		if businessflow.IsAttestationRejected(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Attestation verification failed", "ATTESTATION_REJECTED", nil)
		}

		log.Println("Signup failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Signup failed", "SIGNUP_FAILED", nil)
	}

	message := "Account created. Please check your email to verify your address."
	if !result.RequiresVerification {
		message = "Account created successfully"
	}
	return successResponse(c, fiber.StatusCreated, message, result)
}

// VerifyEmail redeems a verification token, activates the account and signs
// the user in.
// @Summary Verify Email
// @Description Redeem the single-use verification token from the signup email
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.VerifyEmailRequest true "Verification token"
// @Success 200 {object} dto.APIResponse{data=dto.VerifyEmailResponse} "Email verified"
// @Failure 400 {object} dto.APIResponse "Invalid or used token"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.signupFlow.VerifyEmail(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsTokenNotFound(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Verification token is invalid or already used", "INVALID_TOKEN", nil)
		}

		log.Println("Email verification failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Email verification failed", "VERIFICATION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Email verified successfully", result)
}

// Login handles user authentication
// @Summary User Login
// @Description Authenticate with email and password. Accounts with two-factor enabled receive a challenge instead of tokens.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Login successful or two-factor challenge issued"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Account inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.loginFlow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsUserNotFound(err) || businessflow.IsIncorrectPassword(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.accountInactiveResponse(c, err)
		}

		log.Println("Login failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	if result.RequiresTwoFactor {
		return successResponse(c, fiber.StatusOK, "Two-factor code required", result)
	}
	return successResponse(c, fiber.StatusOK, "Login successful", result)
}

// accountInactiveResponse distinguishes a never-verified account from a
// deactivated one; both wrap the same sentinel.
func (h *AuthHandler) accountInactiveResponse(c fiber.Ctx, err error) error {
	var bizErr *businessflow.BusinessError
	if businessflow.AsBusinessError(err, &bizErr) && bizErr.Code == "EMAIL_NOT_VERIFIED" {
		return errorResponse(c, fiber.StatusForbidden, "Please verify your email address before logging in", "EMAIL_NOT_VERIFIED", nil)
	}
	return errorResponse(c, fiber.StatusForbidden, "Your account has been deactivated", "ACCOUNT_INACTIVE", nil)
}

// VerifyTwoFactor completes a pending two-factor login challenge
// @Summary Verify Two-Factor Code
// @Description Answer a pending two-factor challenge to finish logging in
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.TwoFactorVerifyRequest true "Challenge ID and code"
// @Success 200 {object} dto.APIResponse{data=dto.TwoFactorVerifyResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid code or unknown challenge"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/2fa/verify [post]
func (h *AuthHandler) VerifyTwoFactor(c fiber.Ctx) error {
	var req dto.TwoFactorVerifyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.loginFlow.VerifyTwoFactor(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsChallengeNotFound(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Two-factor challenge not found or expired", "CHALLENGE_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidTwoFactorCode(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid two-factor code", "INVALID_TWO_FACTOR_CODE", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Two-factor verification failed", "TWO_FACTOR_FAILED", nil)
		}

		log.Println("Two-factor verification failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Two-factor verification failed", "TWO_FACTOR_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Login successful", result)
}

// SetupTwoFactor enrolls the authenticated user in two-factor authentication
// @Summary Enable Two-Factor Authentication
// @Description Enroll the current account by submitting one valid authenticator code
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.TwoFactorSetupRequest true "Authenticator code"
// @Success 200 {object} dto.APIResponse{data=dto.TwoFactorSetupResponse} "Two-factor enabled"
// @Failure 400 {object} dto.APIResponse "Invalid code"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/2fa/setup [post]
func (h *AuthHandler) SetupTwoFactor(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.TwoFactorSetupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.loginFlow.SetupTwoFactor(ctx, userID, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsInvalidTwoFactorCode(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid two-factor code", "INVALID_TWO_FACTOR_CODE", nil)
		}

		log.Println("Two-factor setup failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Two-factor setup failed", "TWO_FACTOR_SETUP_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Two-factor authentication enabled", result)
}

// RefreshToken exchanges a refresh token for a fresh token pair
// @Summary Refresh Access Token
// @Description Rotate the session using a valid refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.RefreshTokenResponse} "Tokens refreshed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid or expired refresh token"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.loginFlow.RefreshToken(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsSessionNotFound(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid or expired refresh token", "INVALID_REFRESH_TOKEN", nil)
		}

		log.Println("Token refresh failed", err)
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid or expired refresh token", "INVALID_REFRESH_TOKEN", nil)
	}

	return successResponse(c, fiber.StatusOK, "Tokens refreshed successfully", result)
}

// Logout revokes the current session
// @Summary User Logout
// @Description Revoke the session behind the presented access token
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Logged out"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	sessionToken, ok := middleware.GetSessionTokenFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.loginFlow.Logout(ctx, sessionToken, clientMetadata(c)); err != nil {
		if businessflow.IsSessionNotFound(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Session not found", "SESSION_NOT_FOUND", nil)
		}

		log.Println("Logout failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Logged out successfully", nil)
}

// Me returns the authenticated user's profile
// @Summary Current User
// @Description Return the profile of the authenticated user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserInfo} "Current user"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Current user", businessflow.ToUserInfo(*user))
}
