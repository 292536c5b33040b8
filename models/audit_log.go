// Package models contains domain entities and business models for the platform
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       *uint           `gorm:"index:idx_audit_user_id" json:"user_id,omitempty"`
	User         *User           `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionSignupCompleted      = "signup_completed"
	AuditActionSignupFailed         = "signup_failed"
	AuditActionEmailVerified        = "email_verified"
	AuditActionLoginSuccess         = "login_success"
	AuditActionLoginFailed          = "login_failed"
	AuditActionLogout               = "logout"
	AuditActionTwoFactorChallenged  = "two_factor_challenged"
	AuditActionTwoFactorVerified    = "two_factor_verified"
	AuditActionTwoFactorFailed      = "two_factor_failed"
	AuditActionTwoFactorEnrolled    = "two_factor_enrolled"
	AuditActionQuotaDenied          = "quota_denied"
	AuditActionRoleChanged          = "role_changed"
	AuditActionPlanChanged          = "plan_changed"
	AuditActionAccountActivated     = "account_activated"
	AuditActionAccountDeactivated   = "account_deactivated"
	AuditActionSiteContentUpdated   = "site_content_updated"
	AuditActionVerificationEmailOut = "verification_email_sent"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	UserID        *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
