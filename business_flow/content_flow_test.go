package businessflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elby-ai/elby-backend/app/dto"
	businessflow "github.com/elby-ai/elby-backend/business_flow"
	"github.com/elby-ai/elby-backend/models"
	testutil "github.com/elby-ai/elby-backend/testing"
)

func newContentFlow() (businessflow.ContentFlow, *testutil.MemoryAuditRepository) {
	auditRepo := testutil.NewMemoryAuditRepository()
	flow := businessflow.NewContentFlow(testutil.NewMemoryContentRepository(), auditRepo, nil)
	return flow, auditRepo
}

func TestGetContentReturnsDefaultsWhenUnset(t *testing.T) {
	flow, _ := newContentFlow()

	content, err := flow.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.DefaultHeroTitle, content.HeroTitle)
	assert.Equal(t, models.DefaultHeroSubtitle, content.HeroSubtitle)
}

func TestUpdateContent(t *testing.T) {
	flow, auditRepo := newContentFlow()
	ctx := context.Background()

	updated, err := flow.Update(ctx, 1, &dto.UpdateSiteContentRequest{
		HeroTitle:    "Legal clarity for Web3",
		HeroSubtitle: "From smart contracts to securities law.",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Legal clarity for Web3", updated.HeroTitle)
	assert.Equal(t, "From smart contracts to securities law.", updated.HeroSubtitle)
	assert.Equal(t, 1, auditRepo.CountByAction(models.AuditActionSiteContentUpdated))

	content, err := flow.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Legal clarity for Web3", content.HeroTitle)
}

func TestUpdateContentBlankFieldsFallBackToDefaults(t *testing.T) {
	flow, _ := newContentFlow()
	ctx := context.Background()

	updated, err := flow.Update(ctx, 1, &dto.UpdateSiteContentRequest{
		HeroTitle:    "   ",
		HeroSubtitle: "Only the subtitle changes.",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultHeroTitle, updated.HeroTitle)
	assert.Equal(t, "Only the subtitle changes.", updated.HeroSubtitle)
}
