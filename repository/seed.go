// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"fmt"
	"log"

	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// seedUser describes one fixture account installed when the user store is empty.
type seedUser struct {
	Email            string
	Role             string
	Plan             string
	IsActive         bool
	TwoFactorEnabled bool
}

// seedUsers is the documented fixture set the store falls back to. The first
// entry is the bootstrap super-administrator.
var seedUsers = []seedUser{
	{Email: "fitotechnologyllc@gmail.com", Role: models.RoleSuperAdmin, Plan: models.PlanFullAccess, IsActive: true, TwoFactorEnabled: true},
	{Email: "admin@elby.ai", Role: models.RoleSubAdmin, Plan: models.PlanFullAccess, IsActive: true},
	{Email: "freeuser@elby.ai", Role: models.RoleUser, Plan: models.PlanFree, IsActive: true},
	{Email: "generaluser@elby.ai", Role: models.RoleUser, Plan: models.PlanGeneral, IsActive: true},
	{Email: "inactive@elby.ai", Role: models.RoleUser, Plan: models.PlanFree, IsActive: false},
}

// EnsureSeedData reinstalls the fixture accounts and default site content when
// the corresponding tables are empty. An empty or freshly recreated store
// (e.g. after corruption recovery) therefore always comes back with a usable
// super-administrator instead of failing.
func EnsureSeedData(db *gorm.DB, seedPassword string) error {
	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}

	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}

		for _, s := range seedUsers {
			user := &models.User{
				UUID:             uuid.New(),
				Email:            s.Email,
				PasswordHash:     string(hash),
				Role:             s.Role,
				Plan:             s.Plan,
				IsActive:         utils.ToPtr(s.IsActive),
				TwoFactorEnabled: utils.ToPtr(s.TwoFactorEnabled),
				Usage: models.Usage{
					WindowStart: utils.UTCNow(),
				},
			}
			if err := db.Create(user).Error; err != nil {
				return fmt.Errorf("failed to seed user %s: %w", s.Email, err)
			}
		}
		log.Printf("Seeded %d fixture accounts", len(seedUsers))
	}

	var contentCount int64
	if err := db.Model(&models.SiteContent{}).Count(&contentCount).Error; err != nil {
		return fmt.Errorf("failed to count site content: %w", err)
	}

	if contentCount == 0 {
		content := &models.SiteContent{}
		content.ApplyDefaults()
		if err := db.Create(content).Error; err != nil {
			return fmt.Errorf("failed to seed site content: %w", err)
		}
		log.Println("Seeded default site content")
	}

	return nil
}

// Migrate creates or updates the schema for all domain tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.AuditLog{},
		&models.SiteContent{},
	)
}
