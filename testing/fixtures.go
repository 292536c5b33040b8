// Package testing provides test utilities and in-memory stores for testing the platform
package testing

import (
	"context"
	"errors"
	"fmt"

	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned by memory stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// TestPassword is the plaintext behind every fixture user's password hash.
const TestPassword = "SecurePass123!"

// UserOption mutates a fixture user before it is stored.
type UserOption func(*models.User)

func WithRole(role string) UserOption {
	return func(u *models.User) { u.Role = role }
}

func WithPlan(plan string) UserOption {
	return func(u *models.User) { u.Plan = plan }
}

func WithInactive() UserOption {
	return func(u *models.User) { u.IsActive = utils.ToPtr(false) }
}

func WithTwoFactor() UserOption {
	return func(u *models.User) { u.TwoFactorEnabled = utils.ToPtr(true) }
}

func WithVerificationToken(token string) UserOption {
	return func(u *models.User) {
		u.IsActive = utils.ToPtr(false)
		u.VerificationToken = utils.ToPtr(token)
	}
}

func WithUsage(generalQueries, blockchainTools int) UserOption {
	return func(u *models.User) {
		u.Usage.GeneralQueries = generalQueries
		u.Usage.BlockchainTools = blockchainTools
	}
}

// CreateTestUser stores an active Free-plan user and returns it. Options
// adjust role, plan, status, and usage before the save.
func CreateTestUser(repo *MemoryUserRepository, email string, opts ...UserOption) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash fixture password: %w", err)
	}

	now := utils.UTCNow()
	user := &models.User{
		UUID:             uuid.New(),
		Email:            email,
		PasswordHash:     string(hash),
		Role:             models.RoleUser,
		Plan:             models.PlanFree,
		IsActive:         utils.ToPtr(true),
		TwoFactorEnabled: utils.ToPtr(false),
		Usage:            models.Usage{WindowStart: now},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, opt := range opts {
		opt(user)
	}

	if err := repo.Save(context.Background(), user); err != nil {
		return nil, err
	}
	return user, nil
}
