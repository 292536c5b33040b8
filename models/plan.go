// Package models contains domain entities and business models for the platform
package models

// Subscription plan constants. Plans gate daily quota only; roles gate
// administrative capability. The two are coupled on role changes (promoting
// to an admin role forces Full Access, demoting forces Free).
const (
	PlanFree       = "Free"
	PlanGeneral    = "General"
	PlanFullAccess = "Full Access"
)

// ToolCategory identifies a metered tool family.
type ToolCategory string

const (
	ToolGeneralQueries  ToolCategory = "general_queries"
	ToolBlockchainTools ToolCategory = "blockchain_tools"
)

// DisplayName returns the human-readable feature label used in quota messages.
func (t ToolCategory) DisplayName() string {
	if t == ToolBlockchainTools {
		return "Blockchain Tools"
	}
	return "General AI Queries"
}

func (t ToolCategory) IsValid() bool {
	return t == ToolGeneralQueries || t == ToolBlockchainTools
}

// Unlimited is the sentinel allowance for plans without a daily cap.
// It is distinct from every finite allowance; checks against it always pass.
const Unlimited = -1

// PlanLimits holds the per-window allowance for each tool category.
type PlanLimits struct {
	GeneralQueries  int
	BlockchainTools int
}

// For returns the allowance for the given tool category.
func (p PlanLimits) For(tool ToolCategory) int {
	if tool == ToolBlockchainTools {
		return p.BlockchainTools
	}
	return p.GeneralQueries
}

// Allows reports whether a request is permitted at the given current count.
func (p PlanLimits) Allows(tool ToolCategory, count int) bool {
	limit := p.For(tool)
	return limit == Unlimited || count < limit
}

// dailyLimits is the entitlement policy: plan -> per-window allowances.
var dailyLimits = map[string]PlanLimits{
	PlanFree:       {GeneralQueries: 5, BlockchainTools: 3},
	PlanGeneral:    {GeneralQueries: Unlimited, BlockchainTools: 5},
	PlanFullAccess: {GeneralQueries: Unlimited, BlockchainTools: Unlimited},
}

// LimitsForPlan returns the daily limits for a plan. Unknown plan names fall
// back to the Free allowances.
func LimitsForPlan(plan string) PlanLimits {
	if limits, ok := dailyLimits[plan]; ok {
		return limits
	}
	return dailyLimits[PlanFree]
}

func IsValidPlan(plan string) bool {
	_, ok := dailyLimits[plan]
	return ok
}

func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleSubAdmin || role == RoleSuperAdmin
}
