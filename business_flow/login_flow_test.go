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

type loginEnv struct {
	flow       businessflow.LoginFlow
	userRepo   *testutil.MemoryUserRepository
	sessions   *testutil.MemorySessionRepository
	auditRepo  *testutil.MemoryAuditRepository
	challenges *services.MemoryChallengeStore
}

func newLoginEnv(t *testing.T) *loginEnv {
	t.Helper()

	tokenService, err := services.NewTokenService(
		15*time.Minute, 7*24*time.Hour, "test-issuer", "test-audience",
		false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	userRepo := testutil.NewMemoryUserRepository()
	sessions := testutil.NewMemorySessionRepository()
	auditRepo := testutil.NewMemoryAuditRepository()
	challenges := services.NewMemoryChallengeStore(utils.TwoFactorChallengeTTL)

	flow := businessflow.NewLoginFlow(
		userRepo, sessions, auditRepo,
		tokenService, services.NewMockTwoFactorService(), challenges, nil)

	return &loginEnv{flow: flow, userRepo: userRepo, sessions: sessions, auditRepo: auditRepo, challenges: challenges}
}

func loginRequest(email string) *dto.LoginRequest {
	return &dto.LoginRequest{Email: email, Password: testutil.TestPassword}
}

func TestLoginSuccess(t *testing.T) {
	env := newLoginEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "user@example.com")
	require.NoError(t, err)

	resp, err := env.flow.Login(ctx, loginRequest("user@example.com"), nil)
	require.NoError(t, err)

	assert.False(t, resp.RequiresTwoFactor)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 1, env.sessions.ActiveCountForUser(user.ID))

	// Last login is recorded
	stored, err := env.userRepo.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, 1, env.auditRepo.CountByAction(models.AuditActionLoginSuccess))
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	env := newLoginEnv(t)

	_, err := testutil.CreateTestUser(env.userRepo, "user@example.com")
	require.NoError(t, err)

	resp, err := env.flow.Login(context.Background(), loginRequest("USER@Example.Com"), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newLoginEnv(t)

	_, err := testutil.CreateTestUser(env.userRepo, "user@example.com")
	require.NoError(t, err)

	req := loginRequest("user@example.com")
	req.Password = "wrong-password-123"

	_, err = env.flow.Login(context.Background(), req, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsIncorrectPassword(err))
	assert.Equal(t, 1, env.auditRepo.CountByAction(models.AuditActionLoginFailed))
}

func TestLoginUnknownEmail(t *testing.T) {
	env := newLoginEnv(t)

	_, err := env.flow.Login(context.Background(), loginRequest("nobody@example.com"), nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsUserNotFound(err))
}

func TestLoginUnverifiedAccount(t *testing.T) {
	env := newLoginEnv(t)

	_, err := testutil.CreateTestUser(env.userRepo, "pending@example.com", testutil.WithVerificationToken("pending-token"))
	require.NoError(t, err)

	_, err = env.flow.Login(context.Background(), loginRequest("pending@example.com"), nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsAccountInactive(err))
	assert.Contains(t, err.Error(), "verify your email")
}

func TestLoginDeactivatedAccount(t *testing.T) {
	env := newLoginEnv(t)

	_, err := testutil.CreateTestUser(env.userRepo, "disabled@example.com", testutil.WithInactive())
	require.NoError(t, err)

	_, err = env.flow.Login(context.Background(), loginRequest("disabled@example.com"), nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsAccountInactive(err))
	assert.Contains(t, err.Error(), "deactivated")
}

func TestLoginWithTwoFactorIssuesChallenge(t *testing.T) {
	env := newLoginEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "secure@example.com", testutil.WithTwoFactor())
	require.NoError(t, err)

	resp, err := env.flow.Login(ctx, loginRequest("secure@example.com"), nil)
	require.NoError(t, err)

	assert.True(t, resp.RequiresTwoFactor)
	assert.NotEmpty(t, resp.ChallengeID)
	assert.Empty(t, resp.AccessToken)
	assert.Equal(t, 0, env.sessions.ActiveCountForUser(user.ID))
	assert.Equal(t, 1, env.auditRepo.CountByAction(models.AuditActionTwoFactorChallenged))
}

func TestTwoFactorRoundTrip(t *testing.T) {
	env := newLoginEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "secure@example.com", testutil.WithTwoFactor())
	require.NoError(t, err)

	resp, err := env.flow.Login(ctx, loginRequest("secure@example.com"), nil)
	require.NoError(t, err)

	// A wrong code is rejected but the challenge survives for another try
	_, err = env.flow.VerifyTwoFactor(ctx, &dto.TwoFactorVerifyRequest{ChallengeID: resp.ChallengeID, Code: "000000"}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsInvalidTwoFactorCode(err))

	verified, err := env.flow.VerifyTwoFactor(ctx, &dto.TwoFactorVerifyRequest{ChallengeID: resp.ChallengeID, Code: "123456"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, verified.AccessToken)
	assert.Equal(t, 1, env.sessions.ActiveCountForUser(user.ID))

	// The challenge is consumed by success
	_, err = env.flow.VerifyTwoFactor(ctx, &dto.TwoFactorVerifyRequest{ChallengeID: resp.ChallengeID, Code: "123456"}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsChallengeNotFound(err))
}

func TestVerifyTwoFactorUnknownChallenge(t *testing.T) {
	env := newLoginEnv(t)

	_, err := env.flow.VerifyTwoFactor(context.Background(), &dto.TwoFactorVerifyRequest{ChallengeID: "missing", Code: "123456"}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsChallengeNotFound(err))
}

func TestSetupTwoFactor(t *testing.T) {
	env := newLoginEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "user@example.com")
	require.NoError(t, err)

	// A wrong enrollment code is rejected and nothing changes
	_, err = env.flow.SetupTwoFactor(ctx, user.ID, &dto.TwoFactorSetupRequest{Code: "999999"}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsInvalidTwoFactorCode(err))

	resp, err := env.flow.SetupTwoFactor(ctx, user.ID, &dto.TwoFactorSetupRequest{Code: "123456"}, nil)
	require.NoError(t, err)
	assert.True(t, resp.User.TwoFactorEnabled)

	stored, err := env.userRepo.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, utils.IsTrue(stored.TwoFactorEnabled))

	// The next login now demands a code
	login, err := env.flow.Login(ctx, loginRequest("user@example.com"), nil)
	require.NoError(t, err)
	assert.True(t, login.RequiresTwoFactor)
}

func TestRefreshTokenRotatesSession(t *testing.T) {
	env := newLoginEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "user@example.com")
	require.NoError(t, err)

	login, err := env.flow.Login(ctx, loginRequest("user@example.com"), nil)
	require.NoError(t, err)

	refreshed, err := env.flow.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// One live session: the old one was revoked when the new one was created
	assert.Equal(t, 1, env.sessions.ActiveCountForUser(user.ID))

	// The old refresh token no longer resolves to a live session
	_, err = env.flow.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsSessionNotFound(err))
}

func TestLogout(t *testing.T) {
	env := newLoginEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "user@example.com")
	require.NoError(t, err)

	login, err := env.flow.Login(ctx, loginRequest("user@example.com"), nil)
	require.NoError(t, err)

	require.NoError(t, env.flow.Logout(ctx, login.AccessToken, nil))
	assert.Equal(t, 0, env.sessions.ActiveCountForUser(user.ID))
	assert.Equal(t, 1, env.auditRepo.CountByAction(models.AuditActionLogout))

	err = env.flow.Logout(ctx, login.AccessToken, nil)
	require.Error(t, err)
}

func TestLogoutUnknownSession(t *testing.T) {
	env := newLoginEnv(t)

	err := env.flow.Logout(context.Background(), "no-such-token", nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsSessionNotFound(err))
}
