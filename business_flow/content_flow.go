// Package businessflow contains the core business logic and use cases for account, quota, and content workflows
package businessflow

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/repository"
	"github.com/elby-ai/elby-backend/utils"
)

// ContentFlow handles the editable landing-page copy
type ContentFlow interface {
	Get(ctx context.Context) (*dto.SiteContentResponse, error)
	Update(ctx context.Context, actorID uint, req *dto.UpdateSiteContentRequest, metadata *ClientMetadata) (*dto.SiteContentResponse, error)
}

// ContentFlowImpl implements the site content business flow
type ContentFlowImpl struct {
	contentRepo repository.SiteContentRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewContentFlow creates a new content flow instance
func NewContentFlow(
	contentRepo repository.SiteContentRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ContentFlow {
	return &ContentFlowImpl{
		contentRepo: contentRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// Get returns the landing-page copy. Missing fields read as the defaults so
// the page always has something to render.
func (c *ContentFlowImpl) Get(ctx context.Context) (*dto.SiteContentResponse, error) {
	content, err := c.contentRepo.Get(ctx)
	if err != nil {
		return nil, NewBusinessError("CONTENT_LOAD_FAILED", "Failed to load site content", err)
	}
	return &dto.SiteContentResponse{
		HeroTitle:    content.HeroTitle,
		HeroSubtitle: content.HeroSubtitle,
	}, nil
}

// Update replaces the landing-page copy. Blank fields fall back to the
// defaults rather than persisting empty strings.
func (c *ContentFlowImpl) Update(ctx context.Context, actorID uint, req *dto.UpdateSiteContentRequest, metadata *ClientMetadata) (*dto.SiteContentResponse, error) {
	content := &models.SiteContent{
		HeroTitle:    strings.TrimSpace(req.HeroTitle),
		HeroSubtitle: strings.TrimSpace(req.HeroSubtitle),
	}
	content.ApplyDefaults()

	err := repository.WithTransaction(ctx, c.db, func(txCtx context.Context) error {
		return c.contentRepo.Update(txCtx, content)
	})
	if err != nil {
		return nil, NewBusinessError("CONTENT_UPDATE_FAILED", "Failed to update site content", err)
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}
	description := "Site content updated"
	_ = c.auditRepo.Save(ctx, &models.AuditLog{
		UserID:      &actorID,
		Action:      models.AuditActionSiteContentUpdated,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	})

	return &dto.SiteContentResponse{
		HeroTitle:    content.HeroTitle,
		HeroSubtitle: content.HeroSubtitle,
	}, nil
}
