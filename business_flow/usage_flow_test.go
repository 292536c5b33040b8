package businessflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/elby-ai/elby-backend/business_flow"
	"github.com/elby-ai/elby-backend/models"
	testutil "github.com/elby-ai/elby-backend/testing"
	"github.com/elby-ai/elby-backend/utils"
)

func newUsageFlow(t *testing.T) (businessflow.UsageFlow, *testutil.MemoryUserRepository, *testutil.MemoryAuditRepository) {
	t.Helper()
	userRepo := testutil.NewMemoryUserRepository()
	auditRepo := testutil.NewMemoryAuditRepository()
	flow := businessflow.NewUsageFlow(userRepo, auditRepo, nil)
	return flow, userRepo, auditRepo
}

func TestFreePlanGeneralQueryLimit(t *testing.T) {
	flow, userRepo, auditRepo := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "free@example.com")
	require.NoError(t, err)

	ctx := context.Background()

	// Five queries pass, each reporting one fewer remaining
	for i := 0; i < 5; i++ {
		usage, err := flow.CheckAndConsume(ctx, user.ID, models.ToolGeneralQueries, nil)
		require.NoError(t, err)
		assert.Equal(t, i+1, usage.Used)
		assert.Equal(t, 5, usage.Limit)
		assert.Equal(t, 5-(i+1), usage.Remaining)
	}

	// The sixth is denied and audited
	usage, err := flow.CheckAndConsume(ctx, user.ID, models.ToolGeneralQueries, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsQuotaExceeded(err))
	assert.Contains(t, err.Error(), "General AI Queries")
	require.NotNil(t, usage)
	assert.Equal(t, 5, usage.Used)
	assert.Equal(t, 0, usage.Remaining)
	assert.Equal(t, 1, auditRepo.CountByAction(models.AuditActionQuotaDenied))

	// The denied request did not consume anything
	stored, err := userRepo.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Usage.GeneralQueries)
}

func TestFreePlanBlockchainToolLimit(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "free@example.com")
	require.NoError(t, err)

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := flow.CheckAndConsume(ctx, user.ID, models.ToolBlockchainTools, nil)
		require.NoError(t, err)
	}

	_, err = flow.CheckAndConsume(ctx, user.ID, models.ToolBlockchainTools, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsQuotaExceeded(err))
	assert.Contains(t, err.Error(), "Blockchain Tools")
}

func TestToolCategoriesMeteredIndependently(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "free@example.com", testutil.WithUsage(5, 0))
	require.NoError(t, err)

	ctx := context.Background()

	// General queries are exhausted but blockchain tools still pass
	_, err = flow.CheckAndConsume(ctx, user.ID, models.ToolGeneralQueries, nil)
	assert.True(t, businessflow.IsQuotaExceeded(err))

	usage, err := flow.CheckAndConsume(ctx, user.ID, models.ToolBlockchainTools, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Used)
}

func TestGeneralPlanLimits(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "general@example.com", testutil.WithPlan(models.PlanGeneral))
	require.NoError(t, err)

	ctx := context.Background()

	// General queries are uncapped
	for i := 0; i < 50; i++ {
		usage, err := flow.CheckAndConsume(ctx, user.ID, models.ToolGeneralQueries, nil)
		require.NoError(t, err)
		assert.Equal(t, models.Unlimited, usage.Limit)
		assert.Equal(t, models.Unlimited, usage.Remaining)
	}

	// Blockchain tools cap at five
	for i := 0; i < 5; i++ {
		_, err := flow.CheckAndConsume(ctx, user.ID, models.ToolBlockchainTools, nil)
		require.NoError(t, err)
	}
	_, err = flow.CheckAndConsume(ctx, user.ID, models.ToolBlockchainTools, nil)
	assert.True(t, businessflow.IsQuotaExceeded(err))
}

func TestFullAccessPlanUnlimited(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "full@example.com", testutil.WithPlan(models.PlanFullAccess))
	require.NoError(t, err)

	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := flow.CheckAndConsume(ctx, user.ID, models.ToolGeneralQueries, nil)
		require.NoError(t, err)
		_, err = flow.CheckAndConsume(ctx, user.ID, models.ToolBlockchainTools, nil)
		require.NoError(t, err)
	}
}

func TestUnknownPlanFallsBackToFreeLimits(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "odd@example.com", testutil.WithPlan("Platinum"), testutil.WithUsage(5, 0))
	require.NoError(t, err)

	_, err = flow.CheckAndConsume(context.Background(), user.ID, models.ToolGeneralQueries, nil)
	assert.True(t, businessflow.IsQuotaExceeded(err))
}

func TestWindowResetRestoresAllowance(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "stale@example.com", testutil.WithUsage(5, 3))
	require.NoError(t, err)

	ctx := context.Background()

	// Age the window past the rolling period
	stale := user.Usage
	stale.WindowStart = utils.UTCNow().Add(-utils.UsageWindow - time.Minute)
	require.NoError(t, userRepo.UpdateUsage(ctx, user.ID, stale))

	usage, err := flow.CheckAndConsume(ctx, user.ID, models.ToolGeneralQueries, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Used)

	// Both counters rolled over and the new window start was persisted
	stored, err := userRepo.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Usage.GeneralQueries)
	assert.Equal(t, 0, stored.Usage.BlockchainTools)
	assert.True(t, stored.Usage.WindowStart.After(stale.WindowStart))
}

func TestWindowNotResetBeforeExpiry(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "recent@example.com", testutil.WithUsage(4, 0))
	require.NoError(t, err)

	ctx := context.Background()

	recent := user.Usage
	recent.WindowStart = utils.UTCNow().Add(-utils.UsageWindow + time.Hour)
	require.NoError(t, userRepo.UpdateUsage(ctx, user.ID, recent))

	// The fifth query still counts into the old window
	usage, err := flow.CheckAndConsume(ctx, user.ID, models.ToolGeneralQueries, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, usage.Used)

	_, err = flow.CheckAndConsume(ctx, user.ID, models.ToolGeneralQueries, nil)
	assert.True(t, businessflow.IsQuotaExceeded(err))
}

func TestCheckAndConsumeUnknownUser(t *testing.T) {
	flow, _, _ := newUsageFlow(t)

	_, err := flow.CheckAndConsume(context.Background(), 999, models.ToolGeneralQueries, nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsUserNotFound(err))
}

func TestCheckAndConsumeInvalidTool(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "free@example.com")
	require.NoError(t, err)

	_, err = flow.CheckAndConsume(context.Background(), user.ID, models.ToolCategory("image_generation"), nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsInvalidToolName(err))
}

func TestUsageSummary(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "summary@example.com", testutil.WithPlan(models.PlanGeneral), testutil.WithUsage(7, 2))
	require.NoError(t, err)

	summary, err := flow.Summary(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PlanGeneral, summary.Plan)
	assert.Equal(t, 7, summary.GeneralQueries.Used)
	assert.Equal(t, models.Unlimited, summary.GeneralQueries.Remaining)
	assert.Equal(t, 2, summary.BlockchainTool.Used)
	assert.Equal(t, 3, summary.BlockchainTool.Remaining)
}

func TestUsageSummaryExpiredWindowReadsZero(t *testing.T) {
	flow, userRepo, _ := newUsageFlow(t)
	user, err := testutil.CreateTestUser(userRepo, "expired@example.com", testutil.WithUsage(5, 3))
	require.NoError(t, err)

	ctx := context.Background()
	stale := user.Usage
	stale.WindowStart = utils.UTCNow().Add(-2 * utils.UsageWindow)
	require.NoError(t, userRepo.UpdateUsage(ctx, user.ID, stale))

	summary, err := flow.Summary(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.GeneralQueries.Used)
	assert.Equal(t, 0, summary.BlockchainTool.Used)
	assert.Equal(t, 5, summary.GeneralQueries.Remaining)
}
