// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/elby-ai/elby-backend/models"
	"gorm.io/gorm"
)

// SiteContentRepositoryImpl implements SiteContentRepository interface
type SiteContentRepositoryImpl struct {
	*BaseRepository[models.SiteContent]
}

// NewSiteContentRepository creates a new site content repository
func NewSiteContentRepository(db *gorm.DB) SiteContentRepository {
	return &SiteContentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SiteContent](db),
	}
}

// Get returns the single site content record with defaults backfilled for
// any missing field. A missing record yields the full defaults.
func (r *SiteContentRepositoryImpl) Get(ctx context.Context) (*models.SiteContent, error) {
	db := r.getDB(ctx)

	var content models.SiteContent
	err := db.First(&content).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			content = models.SiteContent{}
			content.ApplyDefaults()
			return &content, nil
		}
		return nil, fmt.Errorf("failed to load site content: %w", err)
	}

	content.ApplyDefaults()
	return &content, nil
}

// Update upserts the single site content record
func (r *SiteContentRepositoryImpl) Update(ctx context.Context, content *models.SiteContent) error {
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

	content.ApplyDefaults()

	if content.ID == 0 {
		var existing models.SiteContent
		findErr := db.First(&existing).Error
		switch {
		case findErr == nil:
			content.ID = existing.ID
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			// First write creates the record
		default:
			err = fmt.Errorf("failed to load site content: %w", findErr)
			return err
		}
	}

	if saveErr := db.Save(content).Error; saveErr != nil {
		err = fmt.Errorf("failed to update site content: %w", saveErr)
		return err
	}

	return nil
}
