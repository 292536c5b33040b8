package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsForPlan(t *testing.T) {
	tests := []struct {
		name            string
		plan            string
		generalQueries  int
		blockchainTools int
	}{
		{"free plan", PlanFree, 5, 3},
		{"general plan", PlanGeneral, Unlimited, 5},
		{"full access plan", PlanFullAccess, Unlimited, Unlimited},
		{"unknown plan falls back to free", "Enterprise", 5, 3},
		{"empty plan falls back to free", "", 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := LimitsForPlan(tt.plan)
			assert.Equal(t, tt.generalQueries, limits.For(ToolGeneralQueries))
			assert.Equal(t, tt.blockchainTools, limits.For(ToolBlockchainTools))
		})
	}
}

func TestPlanLimitsAllows(t *testing.T) {
	free := LimitsForPlan(PlanFree)
	assert.True(t, free.Allows(ToolGeneralQueries, 0))
	assert.True(t, free.Allows(ToolGeneralQueries, 4))
	assert.False(t, free.Allows(ToolGeneralQueries, 5))
	assert.False(t, free.Allows(ToolBlockchainTools, 3))

	general := LimitsForPlan(PlanGeneral)
	assert.True(t, general.Allows(ToolGeneralQueries, 1000000))
	assert.False(t, general.Allows(ToolBlockchainTools, 5))

	full := LimitsForPlan(PlanFullAccess)
	assert.True(t, full.Allows(ToolGeneralQueries, 1000000))
	assert.True(t, full.Allows(ToolBlockchainTools, 1000000))
}

func TestToolCategoryDisplayName(t *testing.T) {
	assert.Equal(t, "General AI Queries", ToolGeneralQueries.DisplayName())
	assert.Equal(t, "Blockchain Tools", ToolBlockchainTools.DisplayName())
}

func TestToolCategoryIsValid(t *testing.T) {
	assert.True(t, ToolGeneralQueries.IsValid())
	assert.True(t, ToolBlockchainTools.IsValid())
	assert.False(t, ToolCategory("image_generation").IsValid())
	assert.False(t, ToolCategory("").IsValid())
}

func TestUsageCount(t *testing.T) {
	usage := Usage{GeneralQueries: 4, BlockchainTools: 2}
	assert.Equal(t, 4, usage.Count(ToolGeneralQueries))
	assert.Equal(t, 2, usage.Count(ToolBlockchainTools))
}

func TestIsValidPlanAndRole(t *testing.T) {
	assert.True(t, IsValidPlan(PlanFree))
	assert.True(t, IsValidPlan(PlanFullAccess))
	assert.False(t, IsValidPlan("Gold"))

	assert.True(t, IsValidRole(RoleUser))
	assert.True(t, IsValidRole(RoleSuperAdmin))
	assert.False(t, IsValidRole("owner"))
}
