package businessflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/services"
	businessflow "github.com/elby-ai/elby-backend/business_flow"
	"github.com/elby-ai/elby-backend/models"
	testutil "github.com/elby-ai/elby-backend/testing"
	"github.com/elby-ai/elby-backend/utils"
)

type signupEnv struct {
	flow      businessflow.SignupFlow
	userRepo  *testutil.MemoryUserRepository
	sessions  *testutil.MemorySessionRepository
	auditRepo *testutil.MemoryAuditRepository
}

func newSignupEnv(t *testing.T) *signupEnv {
	t.Helper()

	tokenService, err := services.NewTokenService(
		15*time.Minute, 7*24*time.Hour, "test-issuer", "test-audience",
		false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	userRepo := testutil.NewMemoryUserRepository()
	sessions := testutil.NewMemorySessionRepository()
	auditRepo := testutil.NewMemoryAuditRepository()
	notificationSvc := services.NewNotificationService(services.NewMockEmailProvider(), "https://app.example.com")

	flow := businessflow.NewSignupFlow(
		userRepo, sessions, auditRepo,
		tokenService, notificationSvc, services.NewMockAttestationService(), nil)

	return &signupEnv{flow: flow, userRepo: userRepo, sessions: sessions, auditRepo: auditRepo}
}

func signupRequest(email string) *dto.SignupRequest {
	return &dto.SignupRequest{
		Email:            email,
		Password:         testutil.TestPassword,
		AttestationToken: "test-attestation-token",
	}
}

func TestFirstAccountBecomesSuperAdmin(t *testing.T) {
	env := newSignupEnv(t)
	ctx := context.Background()

	resp, err := env.flow.Signup(ctx, signupRequest("founder@example.com"), nil)
	require.NoError(t, err)

	assert.False(t, resp.RequiresVerification)
	assert.Equal(t, models.RoleSuperAdmin, resp.User.Role)
	assert.Equal(t, models.PlanFullAccess, resp.User.Plan)
	assert.True(t, resp.User.IsActive)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	// A live session exists and no verification token was issued
	assert.Equal(t, 1, env.sessions.ActiveCountForUser(resp.User.ID))
	stored, err := env.userRepo.ByID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.VerificationToken)
}

func TestSecondAccountRequiresVerification(t *testing.T) {
	env := newSignupEnv(t)
	ctx := context.Background()

	_, err := env.flow.Signup(ctx, signupRequest("founder@example.com"), nil)
	require.NoError(t, err)

	resp, err := env.flow.Signup(ctx, signupRequest("member@example.com"), nil)
	require.NoError(t, err)

	assert.True(t, resp.RequiresVerification)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.Equal(t, models.PlanFree, resp.User.Plan)
	assert.False(t, resp.User.IsActive)
	assert.Empty(t, resp.AccessToken)

	stored, err := env.userRepo.ByID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerificationPending())
	assert.Equal(t, 0, env.sessions.ActiveCountForUser(resp.User.ID))
}

func TestSignupDuplicateEmail(t *testing.T) {
	env := newSignupEnv(t)
	ctx := context.Background()

	_, err := env.flow.Signup(ctx, signupRequest("dup@example.com"), nil)
	require.NoError(t, err)

	_, err = env.flow.Signup(ctx, signupRequest("dup@example.com"), nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsEmailAlreadyExists(err))

	// Email comparison is case-insensitive
	_, err = env.flow.Signup(ctx, signupRequest("DUP@EXAMPLE.COM"), nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsEmailAlreadyExists(err))
}

func TestSignupRequiresAttestation(t *testing.T) {
	env := newSignupEnv(t)

	req := signupRequest("bot@example.com")
	req.AttestationToken = ""

	_, err := env.flow.Signup(context.Background(), req, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsAttestationRequired(err))
}

func TestVerifyEmailActivatesAndSignsIn(t *testing.T) {
	env := newSignupEnv(t)
	ctx := context.Background()

	_, err := env.flow.Signup(ctx, signupRequest("founder@example.com"), nil)
	require.NoError(t, err)

	resp, err := env.flow.Signup(ctx, signupRequest("member@example.com"), nil)
	require.NoError(t, err)

	stored, err := env.userRepo.ByID(ctx, resp.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationToken)
	token := *stored.VerificationToken

	verified, err := env.flow.VerifyEmail(ctx, &dto.VerifyEmailRequest{Token: token}, nil)
	require.NoError(t, err)

	assert.True(t, verified.User.IsActive)
	assert.NotEmpty(t, verified.AccessToken)
	assert.Equal(t, 1, env.sessions.ActiveCountForUser(resp.User.ID))

	// The token is consumed by redemption
	after, err := env.userRepo.ByID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Nil(t, after.VerificationToken)
	assert.False(t, after.IsVerificationPending())
}

func TestVerifyEmailTokenIsSingleUse(t *testing.T) {
	env := newSignupEnv(t)
	ctx := context.Background()

	_, err := env.flow.Signup(ctx, signupRequest("founder@example.com"), nil)
	require.NoError(t, err)
	resp, err := env.flow.Signup(ctx, signupRequest("member@example.com"), nil)
	require.NoError(t, err)

	stored, err := env.userRepo.ByID(ctx, resp.User.ID)
	require.NoError(t, err)
	token := *stored.VerificationToken

	_, err = env.flow.VerifyEmail(ctx, &dto.VerifyEmailRequest{Token: token}, nil)
	require.NoError(t, err)

	_, err = env.flow.VerifyEmail(ctx, &dto.VerifyEmailRequest{Token: token}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsTokenNotFound(err))
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	env := newSignupEnv(t)

	_, err := env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: "no-such-token"}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsTokenNotFound(err))
}

func TestSignupInitializesUsageWindow(t *testing.T) {
	env := newSignupEnv(t)
	ctx := context.Background()

	resp, err := env.flow.Signup(ctx, signupRequest("founder@example.com"), nil)
	require.NoError(t, err)

	stored, err := env.userRepo.ByID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.Usage.WindowStart.IsZero())
	assert.WithinDuration(t, utils.UTCNow(), stored.Usage.WindowStart, time.Minute)
	assert.Zero(t, stored.Usage.GeneralQueries)
	assert.Zero(t, stored.Usage.BlockchainTools)
}
