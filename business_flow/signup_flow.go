// Package businessflow contains the core business logic and use cases for account, quota, and content workflows
package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/services"
	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/repository"
	"github.com/elby-ai/elby-backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignupFlow handles account creation and email verification
type SignupFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error)
	VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest, metadata *ClientMetadata) (*dto.VerifyEmailResponse, error)
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	userRepo        repository.UserRepository
	sessionRepo     repository.UserSessionRepository
	auditRepo       repository.AuditLogRepository
	tokenService    services.TokenService
	notificationSvc services.NotificationService
	attestationSvc  services.AttestationService
	db              *gorm.DB
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	notificationSvc services.NotificationService,
	attestationSvc services.AttestationService,
	db *gorm.DB,
) SignupFlow {
	return &SignupFlowImpl{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		auditRepo:       auditRepo,
		tokenService:    tokenService,
		notificationSvc: notificationSvc,
		attestationSvc:  attestationSvc,
		db:              db,
	}
}

// Signup creates an account. The first account ever created becomes an
// active super-admin with Full Access and is signed in immediately; every
// later account starts inactive on the Free plan and must redeem an emailed
// verification token before it can log in.
func (s *SignupFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error) {
	if err := s.verifyAttestation(ctx, req.AttestationToken); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user *models.User
	var isFirstAccount bool

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		existing, err := s.userRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		// The very first account bootstraps the deployment
		all, err := s.userRepo.List(txCtx, models.UserFilter{}, 1, 0)
		if err != nil {
			return err
		}
		isFirstAccount = len(all) == 0

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		now := utils.UTCNow()
		user = &models.User{
			UUID:             uuid.New(),
			Email:            email,
			PasswordHash:     string(hash),
			Role:             models.RoleUser,
			Plan:             models.PlanFree,
			IsActive:         utils.ToPtr(false),
			TwoFactorEnabled: utils.ToPtr(false),
			Usage:            models.Usage{WindowStart: now},
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if isFirstAccount {
			user.Role = models.RoleSuperAdmin
			user.Plan = models.PlanFullAccess
			user.IsActive = utils.ToPtr(true)
		} else {
			user.VerificationToken = utils.ToPtr(uuid.New().String())
		}

		return s.userRepo.Save(txCtx, user)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Signup failed: %s", err.Error())
		_ = s.createAuditLog(ctx, user, models.AuditActionSignupFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	msg := fmt.Sprintf("Account created: %d", user.ID)
	_ = s.createAuditLog(ctx, user, models.AuditActionSignupCompleted, msg, true, nil, metadata)

	resp := &dto.SignupResponse{
		User:                 ToUserInfo(*user),
		RequiresVerification: !isFirstAccount,
	}

	if isFirstAccount {
		accessToken, refreshToken, err := s.tokenService.GenerateTokens(user.ID)
		if err != nil {
			return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
		}
		if err := createSession(ctx, s.sessionRepo, user.ID, accessToken, refreshToken, metadata); err != nil {
			return nil, NewBusinessError("SESSION_CREATION_FAILED", "Failed to create session", err)
		}
		resp.AccessToken = accessToken
		resp.RefreshToken = refreshToken
		resp.TokenType = "Bearer"
		resp.ExpiresIn = utils.AccessTokenTTLSeconds
		return resp, nil
	}

	// Send the verification email outside the transaction so a mail outage
	// does not roll back the account
	token := *user.VerificationToken
	go func() {
		if err := s.notificationSvc.SendVerificationEmail(context.Background(), user.Email, token); err != nil {
			errMsg := fmt.Sprintf("Failed to send verification email: %v", err)
			_ = s.createAuditLog(context.Background(), user, models.AuditActionVerificationEmailOut, errMsg, false, &errMsg, metadata)
			log.Printf("verification email to %s failed: %v", user.Email, err)
			return
		}
		_ = s.createAuditLog(context.Background(), user, models.AuditActionVerificationEmailOut, "Verification email sent", true, nil, metadata)
	}()

	return resp, nil
}

// VerifyEmail redeems a verification token. The token is single use:
// redeeming it activates the account, clears the token, and signs the user
// in, so the same link can never be used twice.
func (s *SignupFlowImpl) VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest, metadata *ClientMetadata) (*dto.VerifyEmailResponse, error) {
	var user *models.User

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		user, err = s.userRepo.ByVerificationToken(txCtx, strings.TrimSpace(req.Token))
		if err != nil {
			return err
		}
		if user == nil {
			return ErrTokenNotFound
		}

		user.IsActive = utils.ToPtr(true)
		user.VerificationToken = nil
		user.LastLoginAt = utils.UTCNowPtr()
		user.UpdatedAt = utils.UTCNow()

		return s.userRepo.Update(txCtx, user)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Email verification failed: %s", err.Error())
		_ = s.createAuditLog(ctx, user, models.AuditActionSignupFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("VERIFICATION_FAILED", "Email verification failed", err)
	}

	accessToken, refreshToken, err := s.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}
	if err := createSession(ctx, s.sessionRepo, user.ID, accessToken, refreshToken, metadata); err != nil {
		return nil, NewBusinessError("SESSION_CREATION_FAILED", "Failed to create session", err)
	}

	msg := fmt.Sprintf("Email verified: %d", user.ID)
	_ = s.createAuditLog(ctx, user, models.AuditActionEmailVerified, msg, true, nil, metadata)

	return &dto.VerifyEmailResponse{
		User:         ToUserInfo(*user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
	}, nil
}

func (s *SignupFlowImpl) verifyAttestation(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return NewBusinessError("ATTESTATION_REQUIRED", "Attestation token is required", ErrAttestationRequired)
	}
	ok, err := s.attestationSvc.Verify(ctx, token, "signup")
	if err != nil {
		return NewBusinessError("ATTESTATION_FAILED", "Attestation verification failed", err)
	}
	if !ok {
		return NewBusinessError("ATTESTATION_REJECTED", "Attestation verification failed", ErrAttestationRejected)
	}
	return nil
}

// createSession persists a session row for a freshly issued token pair. It is
// shared by the signup and login flows.
func createSession(ctx context.Context, sessionRepo repository.UserSessionRepository, userID uint, accessToken, refreshToken string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session := &models.UserSession{
		CorrelationID: uuid.New(),
		UserID:        userID,
		SessionToken:  accessToken,
		RefreshToken:  &refreshToken,
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
		IsActive:      utils.ToPtr(true),
		ExpiresAt:     utils.UTCNowAdd(utils.SessionTimeout),
	}

	return sessionRepo.Save(ctx, session)
}

func (s *SignupFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	return s.auditRepo.Save(ctx, audit)
}
