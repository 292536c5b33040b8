// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/elby-ai/elby-backend/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// UserRepository defines operations for user accounts
type UserRepository interface {
	ByID(ctx context.Context, id uint) (*models.User, error)
	// ByIDForUpdate loads a user with a row-level write lock so that usage
	// counter updates are serialized per account.
	ByIDForUpdate(ctx context.Context, id uint) (*models.User, error)
	ByUUID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByVerificationToken(ctx context.Context, token string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter, limit, offset int) ([]*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateUsage(ctx context.Context, userID uint, usage models.Usage) error
	CountActiveSuperAdmins(ctx context.Context) (int64, error)
}

// UserSessionRepository defines operations for user sessions
type UserSessionRepository interface {
	Save(ctx context.Context, session *models.UserSession) error
	BySessionToken(ctx context.Context, token string) (*models.UserSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error)
	Revoke(ctx context.Context, sessionID uint) error
	RevokeAllForUser(ctx context.Context, userID uint) error
}

// AuditLogRepository defines operations for audit log entries
type AuditLogRepository interface {
	Save(ctx context.Context, entry *models.AuditLog) error
	ByFilter(ctx context.Context, filter models.AuditLogFilter, limit, offset int) ([]*models.AuditLog, error)
}

// SiteContentRepository defines operations for the single site content record
type SiteContentRepository interface {
	Get(ctx context.Context) (*models.SiteContent, error)
	Update(ctx context.Context, content *models.SiteContent) error
}
