// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/utils"
	"gorm.io/gorm"
)

// UserSessionRepositoryImpl implements UserSessionRepository interface
type UserSessionRepositoryImpl struct {
	*BaseRepository[models.UserSession]
}

// NewUserSessionRepository creates a new user session repository
func NewUserSessionRepository(db *gorm.DB) UserSessionRepository {
	return &UserSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UserSession](db),
	}
}

// BySessionToken retrieves a session by its access token
func (r *UserSessionRepositoryImpl) BySessionToken(ctx context.Context, token string) (*models.UserSession, error) {
	return r.one(ctx, "session_token = ?", token)
}

// ByRefreshToken retrieves a session by its refresh token
func (r *UserSessionRepositoryImpl) ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error) {
	return r.one(ctx, "refresh_token = ?", token)
}

func (r *UserSessionRepositoryImpl) one(ctx context.Context, query string, args ...any) (*models.UserSession, error) {
	db := r.getDB(ctx)

	var session models.UserSession
	err := db.Where(query, args...).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return &session, nil
}

// Revoke marks a single session inactive
func (r *UserSessionRepositoryImpl) Revoke(ctx context.Context, sessionID uint) error {
	db := r.getDB(ctx)

	err := db.Model(&models.UserSession{}).
		Where("id = ?", sessionID).
		Update("is_active", utils.ToPtr(false)).Error
	if err != nil {
		return fmt.Errorf("failed to revoke session %d: %w", sessionID, err)
	}

	return nil
}

// RevokeAllForUser marks every active session of a user inactive
func (r *UserSessionRepositoryImpl) RevokeAllForUser(ctx context.Context, userID uint) error {
	db := r.getDB(ctx)

	err := db.Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", utils.ToPtr(false)).Error
	if err != nil {
		return fmt.Errorf("failed to revoke sessions for user %d: %w", userID, err)
	}

	return nil
}
