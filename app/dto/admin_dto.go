package dto

// ListUsersRequest represents admin user listing filters
type ListUsersRequest struct {
	Email    string `query:"email" validate:"omitempty,max=255"`
	Role     string `query:"role" validate:"omitempty,oneof=user sub-admin super-admin"`
	Plan     string `query:"plan" validate:"omitempty"`
	IsActive *bool  `query:"is_active"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=200"`
	Offset   int    `query:"offset" validate:"omitempty,min=0"`
}

// ListUsersResponse represents the admin user listing
type ListUsersResponse struct {
	Users []AdminUserInfo `json:"users"`
	Total int             `json:"total" example:"42"`
}

// AdminUserInfo extends UserInfo with usage counters for the admin console
type AdminUserInfo struct {
	UserInfo
	UsageGeneralQueries int    `json:"usage_general_queries" example:"3"`
	UsageBlockchainTool int    `json:"usage_blockchain_tools" example:"1"`
	UsageWindowStart    string `json:"usage_window_start,omitempty" example:"2024-01-15T10:30:00Z"`
}

// UpdateUserRoleRequest changes a user's role. Promotions and demotions
// adjust the plan alongside the role.
type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user sub-admin super-admin" example:"sub-admin"`
}

// UpdateUserStatusRequest activates or deactivates an account
type UpdateUserStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// UpdateUserPlanRequest changes a user's subscription plan
type UpdateUserPlanRequest struct {
	Plan string `json:"plan" validate:"required" example:"Full Access"`
}

// UpdateUserResponse returns the user after an admin mutation
type UpdateUserResponse struct {
	User AdminUserInfo `json:"user"`
}

// SystemHealthResponse reports component health for the admin console
type SystemHealthResponse struct {
	Status     string            `json:"status" example:"healthy"`
	Components map[string]string `json:"components"`
	Uptime     string            `json:"uptime" example:"1h23m45s"`
	Timestamp  string            `json:"timestamp" example:"2024-01-15T10:30:00Z"`
}
