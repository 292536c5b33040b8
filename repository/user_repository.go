// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/elby-ai/elby-backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepositoryImpl implements UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User](db),
	}
}

// ByIDForUpdate retrieves a user by ID with a row-level write lock. Must run
// inside a transaction so the lock holds until commit.
func (r *UserRepositoryImpl) ByIDForUpdate(ctx context.Context, id uint) (*models.User, error) {
	db := r.getDB(ctx)

	var user models.User
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}

	return &user, nil
}

// ByUUID retrieves a user by its public UUID
func (r *UserRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.one(ctx, "uuid = ?", id)
}

// ByEmail retrieves a user by email address
func (r *UserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.one(ctx, "email = ?", email)
}

// ByVerificationToken retrieves the user holding a pending verification token
func (r *UserRepositoryImpl) ByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.one(ctx, "verification_token = ?", token)
}

func (r *UserRepositoryImpl) one(ctx context.Context, query string, args ...any) (*models.User, error) {
	db := r.getDB(ctx)

	var user models.User
	err := db.Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &user, nil
}

// List retrieves users matching the filter, newest first
func (r *UserRepositoryImpl) List(ctx context.Context, filter models.UserFilter, limit, offset int) ([]*models.User, error) {
	db := r.getDB(ctx).Model(&models.User{})

	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.EmailContains != nil {
		db = db.Where("email ILIKE ?", "%"+*filter.EmailContains+"%")
	}
	if filter.Role != nil {
		db = db.Where("role = ?", *filter.Role)
	}
	if filter.Plan != nil {
		db = db.Where("plan = ?", *filter.Plan)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.TwoFactorEnabled != nil {
		db = db.Where("two_factor_enabled = ?", *filter.TwoFactorEnabled)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}

	db = db.Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	var users []*models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// Update persists all fields of an existing user record
func (r *UserRepositoryImpl) Update(ctx context.Context, user *models.User) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Save(user)
	if result.Error != nil {
		err = fmt.Errorf("failed to update user %d: %w", user.ID, result.Error)
		return err
	}
	if result.RowsAffected == 0 {
		err = fmt.Errorf("user %d not found", user.ID)
		return err
	}

	return nil
}

// UpdateUsage persists only the usage counters and window start for a user
func (r *UserRepositoryImpl) UpdateUsage(ctx context.Context, userID uint, usage models.Usage) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"usage_general_queries":  usage.GeneralQueries,
		"usage_blockchain_tools": usage.BlockchainTools,
		"usage_window_start":     usage.WindowStart,
	})
	if result.Error != nil {
		err = fmt.Errorf("failed to update usage for user %d: %w", userID, result.Error)
		return err
	}
	if result.RowsAffected == 0 {
		err = fmt.Errorf("user %d not found", userID)
		return err
	}

	return nil
}

// CountActiveSuperAdmins counts active super-administrator accounts
func (r *UserRepositoryImpl) CountActiveSuperAdmins(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.RoleSuperAdmin, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active super admins: %w", err)
	}

	return count, nil
}
