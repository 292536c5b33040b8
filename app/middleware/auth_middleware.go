// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/services"
	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/repository"
	"github.com/elby-ai/elby-backend/utils"
)

// AuthMiddleware handles JWT token validation for protected endpoints. A
// token is only honored while its session row is still live, so logout and
// admin deactivation take effect immediately.
type AuthMiddleware struct {
	tokenService services.TokenService
	sessionRepo  repository.UserSessionRepository
	userRepo     repository.UserRepository
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, sessionRepo repository.UserSessionRepository, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		sessionRepo:  sessionRepo,
		userRepo:     userRepo,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// Authenticate validates the bearer token, its session, and the account state
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			return unauthorized(c, "Invalid or expired access token", "INVALID_ACCESS_TOKEN")
		}
		if claims.TokenType != services.TokenTypeAccess {
			return unauthorized(c, "Invalid token type", "INVALID_TOKEN_TYPE")
		}

		session, err := m.sessionRepo.BySessionToken(c.Context(), token)
		if err != nil {
			return unauthorized(c, "Failed to verify session", "SESSION_LOOKUP_FAILED")
		}
		if session == nil || !session.IsValid() {
			return unauthorized(c, "Session has been revoked or expired", "SESSION_REVOKED")
		}

		user, err := m.userRepo.ByID(c.Context(), claims.UserID)
		if err != nil || user == nil {
			return unauthorized(c, "User not found", "USER_NOT_FOUND")
		}
		if !utils.IsTrue(user.IsActive) {
			return unauthorized(c, "Account is deactivated", "ACCOUNT_INACTIVE")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("session_token", token)
		c.Locals("current_user", user)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// RequireAdmin allows only sub-admin and super-admin accounts through. It
// must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		user, ok := GetCurrentUser(c)
		if !ok {
			return unauthorized(c, "Authentication required", "AUTHENTICATION_REQUIRED")
		}
		if !user.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Administrator access required",
				Error:   dto.ErrorDetail{Code: "ADMIN_REQUIRED"},
			})
		}
		return c.Next()
	}
}

// RequireSuperAdmin allows only super-admin accounts through. It must run
// after Authenticate.
func (m *AuthMiddleware) RequireSuperAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		user, ok := GetCurrentUser(c)
		if !ok {
			return unauthorized(c, "Authentication required", "AUTHENTICATION_REQUIRED")
		}
		if !user.IsSuperAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Super administrator access required",
				Error:   dto.ErrorDetail{Code: "SUPER_ADMIN_REQUIRED"},
			})
		}
		return c.Next()
	}
}

// GetUserIDFromContext retrieves the authenticated user ID from Fiber context
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("user_id").(uint)
	return userID, ok
}

// GetCurrentUser retrieves the authenticated user loaded by Authenticate
func GetCurrentUser(c fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals("current_user").(*models.User)
	return user, ok
}

// GetSessionTokenFromContext retrieves the raw bearer token for the request
func GetSessionTokenFromContext(c fiber.Ctx) (string, bool) {
	token, ok := c.Locals("session_token").(string)
	return token, ok
}
