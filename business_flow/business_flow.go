// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToUserInfo converts a user model to its API representation
func ToUserInfo(user models.User) dto.UserInfo {
	return dto.UserInfo{
		ID:               user.ID,
		UUID:             user.UUID.String(),
		Email:            user.Email,
		Role:             user.Role,
		Plan:             user.Plan,
		IsActive:         utils.IsTrue(user.IsActive),
		TwoFactorEnabled: utils.IsTrue(user.TwoFactorEnabled),
		CreatedAt:        user.CreatedAt,
		LastLoginAt:      user.LastLoginAt,
	}
}

// ToAdminUserInfo converts a user model to its admin console representation
func ToAdminUserInfo(user models.User) dto.AdminUserInfo {
	info := dto.AdminUserInfo{
		UserInfo:            ToUserInfo(user),
		UsageGeneralQueries: user.Usage.GeneralQueries,
		UsageBlockchainTool: user.Usage.BlockchainTools,
	}
	if !user.Usage.WindowStart.IsZero() {
		info.UsageWindowStart = user.Usage.WindowStart.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return info
}

// ToUsageInfo reports consumption of one tool category against plan limits
func ToUsageInfo(user models.User, tool models.ToolCategory) dto.UsageInfo {
	limits := models.LimitsForPlan(user.Plan)
	limit := limits.For(tool)
	used := user.Usage.Count(tool)

	remaining := models.Unlimited
	if limit != models.Unlimited {
		remaining = limit - used
		if remaining < 0 {
			remaining = 0
		}
	}

	return dto.UsageInfo{
		Tool:      string(tool),
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
	}
}
