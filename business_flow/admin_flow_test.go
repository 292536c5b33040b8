package businessflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elby-ai/elby-backend/app/dto"
	businessflow "github.com/elby-ai/elby-backend/business_flow"
	"github.com/elby-ai/elby-backend/models"
	testutil "github.com/elby-ai/elby-backend/testing"
	"github.com/elby-ai/elby-backend/utils"
)

type adminEnv struct {
	flow      businessflow.AdminFlow
	userRepo  *testutil.MemoryUserRepository
	sessions  *testutil.MemorySessionRepository
	auditRepo *testutil.MemoryAuditRepository
	admin     *models.User
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()

	userRepo := testutil.NewMemoryUserRepository()
	sessions := testutil.NewMemorySessionRepository()
	auditRepo := testutil.NewMemoryAuditRepository()

	admin, err := testutil.CreateTestUser(userRepo, "root@example.com",
		testutil.WithRole(models.RoleSuperAdmin), testutil.WithPlan(models.PlanFullAccess))
	require.NoError(t, err)

	flow := businessflow.NewAdminFlow(userRepo, sessions, auditRepo, nil, nil)
	return &adminEnv{flow: flow, userRepo: userRepo, sessions: sessions, auditRepo: auditRepo, admin: admin}
}

func TestPromoteUserGrantsFullAccess(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "user@example.com")
	require.NoError(t, err)

	resp, err := env.flow.UpdateUserRole(ctx, env.admin.ID, user.ID, &dto.UpdateUserRoleRequest{Role: models.RoleSubAdmin}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RoleSubAdmin, resp.User.Role)
	assert.Equal(t, models.PlanFullAccess, resp.User.Plan)
	assert.Equal(t, 1, env.auditRepo.CountByAction(models.AuditActionRoleChanged))
}

func TestDemoteAdminDropsPlanToFree(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "admin@example.com",
		testutil.WithRole(models.RoleSubAdmin), testutil.WithPlan(models.PlanFullAccess))
	require.NoError(t, err)

	resp, err := env.flow.UpdateUserRole(ctx, env.admin.ID, user.ID, &dto.UpdateUserRoleRequest{Role: models.RoleUser}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.Equal(t, models.PlanFree, resp.User.Plan)
}

func TestRoleChangePreservesPlanForRegularUsers(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	// A paying regular user keeps their plan if their role does not change tier
	user, err := testutil.CreateTestUser(env.userRepo, "paying@example.com", testutil.WithPlan(models.PlanGeneral))
	require.NoError(t, err)

	resp, err := env.flow.UpdateUserRole(ctx, env.admin.ID, user.ID, &dto.UpdateUserRoleRequest{Role: models.RoleUser}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PlanGeneral, resp.User.Plan)
}

func TestCannotDemoteLastSuperAdmin(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	other, err := testutil.CreateTestUser(env.userRepo, "other-admin@example.com",
		testutil.WithRole(models.RoleSubAdmin))
	require.NoError(t, err)

	_, err = env.flow.UpdateUserRole(ctx, other.ID, env.admin.ID, &dto.UpdateUserRoleRequest{Role: models.RoleUser}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsLastSuperAdmin(err))

	// With a second active super-admin the demotion passes
	_, err = testutil.CreateTestUser(env.userRepo, "second-root@example.com",
		testutil.WithRole(models.RoleSuperAdmin))
	require.NoError(t, err)

	resp, err := env.flow.UpdateUserRole(ctx, other.ID, env.admin.ID, &dto.UpdateUserRoleRequest{Role: models.RoleUser}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, resp.User.Role)
}

func TestCannotDeactivateLastSuperAdmin(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	other, err := testutil.CreateTestUser(env.userRepo, "other-admin@example.com",
		testutil.WithRole(models.RoleSubAdmin))
	require.NoError(t, err)

	_, err = env.flow.UpdateUserStatus(ctx, other.ID, env.admin.ID, &dto.UpdateUserStatusRequest{IsActive: utils.ToPtr(false)}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsLastSuperAdmin(err))
}

func TestSelfModificationRejected(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	_, err := env.flow.UpdateUserRole(ctx, env.admin.ID, env.admin.ID, &dto.UpdateUserRoleRequest{Role: models.RoleUser}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsSelfModification(err))

	_, err = env.flow.UpdateUserStatus(ctx, env.admin.ID, env.admin.ID, &dto.UpdateUserStatusRequest{IsActive: utils.ToPtr(false)}, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsSelfModification(err))
}

func TestDeactivationRevokesSessions(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "user@example.com")
	require.NoError(t, err)

	refresh := "refresh-token"
	require.NoError(t, env.sessions.Save(ctx, &models.UserSession{
		UserID:       user.ID,
		SessionToken: "session-token",
		RefreshToken: &refresh,
		IsActive:     utils.ToPtr(true),
		ExpiresAt:    utils.UTCNowAdd(utils.SessionTimeout),
	}))
	require.Equal(t, 1, env.sessions.ActiveCountForUser(user.ID))

	resp, err := env.flow.UpdateUserStatus(ctx, env.admin.ID, user.ID, &dto.UpdateUserStatusRequest{IsActive: utils.ToPtr(false)}, nil)
	require.NoError(t, err)

	assert.False(t, resp.User.IsActive)
	assert.Equal(t, 0, env.sessions.ActiveCountForUser(user.ID))
	assert.Equal(t, 1, env.auditRepo.CountByAction(models.AuditActionAccountDeactivated))
}

func TestUpdateUserPlan(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	user, err := testutil.CreateTestUser(env.userRepo, "user@example.com")
	require.NoError(t, err)

	resp, err := env.flow.UpdateUserPlan(ctx, env.admin.ID, user.ID, &dto.UpdateUserPlanRequest{Plan: models.PlanGeneral}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PlanGeneral, resp.User.Plan)

	_, err = env.flow.UpdateUserPlan(ctx, env.admin.ID, user.ID, &dto.UpdateUserPlanRequest{Plan: "Gold"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, businessflow.ErrInvalidPlan))
}

func TestListUsersWithFilters(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	_, err := testutil.CreateTestUser(env.userRepo, "alice@example.com", testutil.WithPlan(models.PlanGeneral))
	require.NoError(t, err)
	_, err = testutil.CreateTestUser(env.userRepo, "bob@example.com", testutil.WithInactive())
	require.NoError(t, err)

	all, err := env.flow.ListUsers(ctx, &dto.ListUsersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)

	byEmail, err := env.flow.ListUsers(ctx, &dto.ListUsersRequest{Email: "alice"})
	require.NoError(t, err)
	require.Len(t, byEmail.Users, 1)
	assert.Equal(t, "alice@example.com", byEmail.Users[0].Email)

	active, err := env.flow.ListUsers(ctx, &dto.ListUsersRequest{IsActive: utils.ToPtr(true)})
	require.NoError(t, err)
	assert.Len(t, active.Users, 2)

	byRole, err := env.flow.ListUsers(ctx, &dto.ListUsersRequest{Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Len(t, byRole.Users, 1)
}

func TestExportUsersReport(t *testing.T) {
	env := newAdminEnv(t)

	_, err := testutil.CreateTestUser(env.userRepo, "user@example.com", testutil.WithUsage(2, 1))
	require.NoError(t, err)

	filename, data, err := env.flow.ExportUsersReport(context.Background())
	require.NoError(t, err)
	assert.Contains(t, filename, ".xlsx")
	assert.NotEmpty(t, data)
	// xlsx files are zip archives
	assert.Equal(t, byte('P'), data[0])
	assert.Equal(t, byte('K'), data[1])
}

func TestSystemHealth(t *testing.T) {
	checkers := map[string]businessflow.HealthChecker{
		"database": func(ctx context.Context) error { return nil },
		"cache":    func(ctx context.Context) error { return errors.New("connection refused") },
		"ai":       func(ctx context.Context) error { return nil },
	}

	userRepo := testutil.NewMemoryUserRepository()
	flow := businessflow.NewAdminFlow(userRepo, testutil.NewMemorySessionRepository(), testutil.NewMemoryAuditRepository(), checkers, nil)

	health, err := flow.SystemHealth(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "ok", health.Components["database"])
	assert.Contains(t, health.Components["cache"], "connection refused")
	assert.Equal(t, "ok", health.Components["ai"])
	assert.NotEmpty(t, health.Uptime)
	assert.NotEmpty(t, health.Timestamp)
}
