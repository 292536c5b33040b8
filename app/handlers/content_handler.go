package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/middleware"
	businessflow "github.com/elby-ai/elby-backend/business_flow"
)

// ContentHandler handles the public site content endpoints
type ContentHandler struct {
	contentFlow businessflow.ContentFlow
	validator   *validator.Validate
}

// NewContentHandler creates a new site content handler
func NewContentHandler(contentFlow businessflow.ContentFlow) *ContentHandler {
	return &ContentHandler{
		contentFlow: contentFlow,
		validator:   validator.New(),
	}
}

// Get returns the landing-page copy
// @Summary Site Content
// @Description Return the editable landing-page copy. Public endpoint.
// @Tags Content
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SiteContentResponse} "Site content"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/content [get]
func (h *ContentHandler) Get(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.contentFlow.Get(ctx)
	if err != nil {
		log.Println("Site content lookup failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load site content", "CONTENT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Site content", result)
}

// Update replaces the landing-page copy
// @Summary Update Site Content
// @Description Update the landing-page copy. Blank fields fall back to the defaults.
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateSiteContentRequest true "New copy"
// @Success 200 {object} dto.APIResponse{data=dto.SiteContentResponse} "Updated content"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Admin access required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/content [put]
func (h *ContentHandler) Update(c fiber.Ctx) error {
	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.UpdateSiteContentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.contentFlow.Update(ctx, actorID, &req, clientMetadata(c))
	if err != nil {
		log.Println("Site content update failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to update site content", "CONTENT_UPDATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Site content updated", result)
}
