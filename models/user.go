// Package models contains domain entities and business models for the platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`

	Email        string `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	// Role controls administrative capability, Plan controls daily quota.
	Role string `gorm:"size:20;not null;default:user;index:idx_users_role" json:"role"`
	Plan string `gorm:"size:20;not null;default:Free" json:"plan"`

	// Status and second factor
	IsActive         *bool `gorm:"default:false;index:idx_users_is_active" json:"is_active"`
	TwoFactorEnabled *bool `gorm:"default:false" json:"two_factor_enabled"`

	// Pending email verification token, present only while the account is inactive
	VerificationToken *string `gorm:"size:64;uniqueIndex:uk_users_verification_token" json:"-"`

	// Daily tool usage counters for the current accounting window
	Usage Usage `gorm:"embedded;embeddedPrefix:usage_" json:"usage"`

	// Timestamps
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	// Relations
	Sessions  []UserSession `gorm:"foreignKey:UserID" json:"-"`
	AuditLogs []AuditLog    `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Usage holds per-user tool counters for one rolling 24-hour window.
// WindowStart identifies the window; both counters reset when it expires.
type Usage struct {
	GeneralQueries  int       `gorm:"not null;default:0" json:"general_queries"`
	BlockchainTools int       `gorm:"not null;default:0" json:"blockchain_tools"`
	WindowStart     time.Time `gorm:"not null" json:"window_start"`
}

// Count returns the counter for the given tool category.
func (u Usage) Count(tool ToolCategory) int {
	if tool == ToolBlockchainTools {
		return u.BlockchainTools
	}
	return u.GeneralQueries
}

// Role constants
const (
	RoleUser       = "user"
	RoleSubAdmin   = "sub-admin"
	RoleSuperAdmin = "super-admin"
)

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID                *uint
	UUID              *uuid.UUID
	Email             *string
	EmailContains     *string
	Role              *string
	Plan              *string
	IsActive          *bool
	TwoFactorEnabled  *bool
	VerificationToken *string
	CreatedAfter      *time.Time
	CreatedBefore     *time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleSubAdmin || u.Role == RoleSuperAdmin
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// IsVerificationPending reports whether the account still awaits email verification.
func (u *User) IsVerificationPending() bool {
	return u.VerificationToken != nil && *u.VerificationToken != ""
}
