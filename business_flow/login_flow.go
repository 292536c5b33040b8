// Package businessflow contains the core business logic and use cases for account, quota, and content workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/services"
	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/repository"
	"github.com/elby-ai/elby-backend/utils"
	"gorm.io/gorm"
)

// LoginFlow handles authentication, the two-factor gate, and session lifecycle
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	VerifyTwoFactor(ctx context.Context, req *dto.TwoFactorVerifyRequest, metadata *ClientMetadata) (*dto.TwoFactorVerifyResponse, error)
	SetupTwoFactor(ctx context.Context, userID uint, req *dto.TwoFactorSetupRequest, metadata *ClientMetadata) (*dto.TwoFactorSetupResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.RefreshTokenResponse, error)
	Logout(ctx context.Context, sessionToken string, metadata *ClientMetadata) error
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo       repository.UserRepository
	sessionRepo    repository.UserSessionRepository
	auditRepo      repository.AuditLogRepository
	tokenService   services.TokenService
	twoFactorSvc   services.TwoFactorService
	challengeStore services.ChallengeStore
	db             *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	twoFactorSvc services.TwoFactorService,
	challengeStore services.ChallengeStore,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		auditRepo:      auditRepo,
		tokenService:   tokenService,
		twoFactorSvc:   twoFactorSvc,
		challengeStore: challengeStore,
		db:             db,
	}
}

// Login verifies credentials. Accounts with two-factor enabled get a pending
// challenge instead of tokens; the login completes in VerifyTwoFactor.
func (l *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := l.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil {
		_ = l.createAuditLog(ctx, nil, models.AuditActionLoginFailed, fmt.Sprintf("Unknown email: %s", email), false, nil, metadata)
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		_ = l.createAuditLog(ctx, user, models.AuditActionLoginFailed, "Incorrect password", false, nil, metadata)
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrIncorrectPassword)
	}

	if !utils.IsTrue(user.IsActive) {
		if user.IsVerificationPending() {
			_ = l.createAuditLog(ctx, user, models.AuditActionLoginFailed, "Email not verified", false, nil, metadata)
			return nil, NewBusinessError("EMAIL_NOT_VERIFIED", "Please verify your email address before logging in", ErrAccountInactive)
		}
		_ = l.createAuditLog(ctx, user, models.AuditActionLoginFailed, "Account deactivated", false, nil, metadata)
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Your account has been deactivated", ErrAccountInactive)
	}

	if utils.IsTrue(user.TwoFactorEnabled) {
		challenge, err := l.challengeStore.Create(ctx, user.ID)
		if err != nil {
			return nil, NewBusinessError("CHALLENGE_CREATION_FAILED", "Failed to create two-factor challenge", err)
		}

		_ = l.createAuditLog(ctx, user, models.AuditActionTwoFactorChallenged, "Two-factor challenge issued", true, nil, metadata)

		return &dto.LoginResponse{
			User:              ToUserInfo(*user),
			RequiresTwoFactor: true,
			ChallengeID:       challenge.ID,
		}, nil
	}

	accessToken, refreshToken, err := l.completeLogin(ctx, user, metadata)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		User:         ToUserInfo(*user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
	}, nil
}

// VerifyTwoFactor answers a pending challenge. A wrong code keeps the
// challenge alive for another attempt until it expires; an unknown or expired
// challenge requires a fresh login.
func (l *LoginFlowImpl) VerifyTwoFactor(ctx context.Context, req *dto.TwoFactorVerifyRequest, metadata *ClientMetadata) (*dto.TwoFactorVerifyResponse, error) {
	challenge, err := l.challengeStore.Get(ctx, req.ChallengeID)
	if err != nil {
		return nil, NewBusinessError("CHALLENGE_LOOKUP_FAILED", "Failed to load two-factor challenge", err)
	}
	if challenge == nil {
		return nil, NewBusinessError("CHALLENGE_NOT_FOUND", "Two-factor challenge not found or expired", ErrChallengeNotFound)
	}

	user, err := l.userRepo.ByID(ctx, challenge.UserID)
	if err != nil {
		return nil, NewBusinessError("TWO_FACTOR_FAILED", "Two-factor verification failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	ok, err := l.twoFactorSvc.Verify(ctx, user.Email, req.Code)
	if err != nil {
		return nil, NewBusinessError("TWO_FACTOR_FAILED", "Two-factor verification failed", err)
	}
	if !ok {
		_ = l.createAuditLog(ctx, user, models.AuditActionTwoFactorFailed, "Invalid two-factor code", false, nil, metadata)
		return nil, NewBusinessError("INVALID_TWO_FACTOR_CODE", "Invalid two-factor code", ErrInvalidTwoFactorCode)
	}

	if err := l.challengeStore.Delete(ctx, challenge.ID); err != nil {
		return nil, NewBusinessError("CHALLENGE_CLEANUP_FAILED", "Failed to consume two-factor challenge", err)
	}

	_ = l.createAuditLog(ctx, user, models.AuditActionTwoFactorVerified, "Two-factor challenge completed", true, nil, metadata)

	accessToken, refreshToken, err := l.completeLogin(ctx, user, metadata)
	if err != nil {
		return nil, err
	}

	return &dto.TwoFactorVerifyResponse{
		User:         ToUserInfo(*user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
	}, nil
}

// SetupTwoFactor enrolls the current user after they prove possession of a
// working authenticator by submitting one valid code.
func (l *LoginFlowImpl) SetupTwoFactor(ctx context.Context, userID uint, req *dto.TwoFactorSetupRequest, metadata *ClientMetadata) (*dto.TwoFactorSetupResponse, error) {
	user, err := l.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("TWO_FACTOR_SETUP_FAILED", "Two-factor setup failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	ok, err := l.twoFactorSvc.Enroll(ctx, user.Email, req.Code)
	if err != nil {
		return nil, NewBusinessError("TWO_FACTOR_SETUP_FAILED", "Two-factor setup failed", err)
	}
	if !ok {
		_ = l.createAuditLog(ctx, user, models.AuditActionTwoFactorFailed, "Invalid enrollment code", false, nil, metadata)
		return nil, NewBusinessError("INVALID_TWO_FACTOR_CODE", "Invalid two-factor code", ErrInvalidTwoFactorCode)
	}

	user.TwoFactorEnabled = utils.ToPtr(true)
	user.UpdatedAt = utils.UTCNow()
	if err := l.userRepo.Update(ctx, user); err != nil {
		return nil, NewBusinessError("TWO_FACTOR_SETUP_FAILED", "Two-factor setup failed", err)
	}

	_ = l.createAuditLog(ctx, user, models.AuditActionTwoFactorEnrolled, "Two-factor authentication enabled", true, nil, metadata)

	return &dto.TwoFactorSetupResponse{User: ToUserInfo(*user)}, nil
}

// RefreshToken exchanges a refresh token for a new pair. The old session is
// revoked and replaced so a leaked refresh token cannot be replayed.
func (l *LoginFlowImpl) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.RefreshTokenResponse, error) {
	session, err := l.sessionRepo.ByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", err)
	}
	if session == nil || !session.IsValid() {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "Session not found or expired", ErrSessionNotFound)
	}

	accessToken, refreshToken, err := l.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", err)
	}

	err = repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		if err := l.sessionRepo.Revoke(txCtx, session.ID); err != nil {
			return err
		}
		return createSession(txCtx, l.sessionRepo, session.UserID, accessToken, refreshToken, metadata)
	})
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Token refresh failed", err)
	}

	return &dto.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
	}, nil
}

// Logout revokes the session and the access token behind it
func (l *LoginFlowImpl) Logout(ctx context.Context, sessionToken string, metadata *ClientMetadata) error {
	session, err := l.sessionRepo.BySessionToken(ctx, sessionToken)
	if err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	if session == nil || !utils.IsTrue(session.IsActive) {
		return NewBusinessError("SESSION_NOT_FOUND", "Session not found", ErrSessionNotFound)
	}

	if err := l.sessionRepo.Revoke(ctx, session.ID); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	if err := l.tokenService.RevokeToken(sessionToken); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	user := &models.User{ID: session.UserID}
	_ = l.createAuditLog(ctx, user, models.AuditActionLogout, "Logged out", true, nil, metadata)

	return nil
}

func (l *LoginFlowImpl) completeLogin(ctx context.Context, user *models.User, metadata *ClientMetadata) (accessToken, refreshToken string, err error) {
	accessToken, refreshToken, err = l.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return "", "", NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	if err := createSession(ctx, l.sessionRepo, user.ID, accessToken, refreshToken, metadata); err != nil {
		return "", "", NewBusinessError("SESSION_CREATION_FAILED", "Failed to create session", err)
	}

	user.LastLoginAt = utils.UTCNowPtr()
	user.UpdatedAt = utils.UTCNow()
	if err := l.userRepo.Update(ctx, user); err != nil {
		return "", "", NewBusinessError("LOGIN_FAILED", "Failed to record login", err)
	}

	_ = l.createAuditLog(ctx, user, models.AuditActionLoginSuccess, "Login successful", true, nil, metadata)

	return accessToken, refreshToken, nil
}

func (l *LoginFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if user != nil && user.ID != 0 {
		userID = &user.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	}

	return l.auditRepo.Save(ctx, audit)
}
