package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/middleware"
	businessflow "github.com/elby-ai/elby-backend/business_flow"
)

// AdminHandler handles the admin console endpoints
type AdminHandler struct {
	adminFlow businessflow.AdminFlow
	validator *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminFlow businessflow.AdminFlow) *AdminHandler {
	return &AdminHandler{
		adminFlow: adminFlow,
		validator: validator.New(),
	}
}

// ListUsers returns the user listing with optional filters
// @Summary List Users
// @Description List accounts with usage counters, filtered by email, role, plan or status
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param email query string false "Filter by email substring"
// @Param role query string false "Filter by role"
// @Param plan query string false "Filter by plan"
// @Param is_active query bool false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListUsersResponse} "User listing"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Admin access required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c fiber.Ctx) error {
	var req dto.ListUsersRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.adminFlow.ListUsers(ctx, &req)
	if err != nil {
		log.Println("User listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list users", "LIST_USERS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Users retrieved", result)
}

// UpdateUserRole changes a user's role
// @Summary Update User Role
// @Description Change a user's role. Promotion to an admin role grants Full Access; demoting an admin to user drops the plan to Free.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateUserRoleRequest true "New role"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateUserResponse} "User updated"
// @Failure 400 {object} dto.APIResponse "Validation error or self-modification"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 409 {object} dto.APIResponse "Last super-admin"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/users/{id}/role [put]
func (h *AdminHandler) UpdateUserRole(c fiber.Ctx) error {
	actorID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}

	var req dto.UpdateUserRoleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.adminFlow.UpdateUserRole(ctx, actorID, targetID, &req, clientMetadata(c))
	if err != nil {
		return h.adminMutationError(c, err, "Failed to update user role", "UPDATE_ROLE_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "User role updated", result)
}

// UpdateUserStatus activates or deactivates an account
// @Summary Update User Status
// @Description Activate or deactivate an account. Deactivation revokes all of the user's sessions.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateUserStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateUserResponse} "User updated"
// @Failure 400 {object} dto.APIResponse "Validation error or self-modification"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 409 {object} dto.APIResponse "Last super-admin"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/users/{id}/status [put]
func (h *AdminHandler) UpdateUserStatus(c fiber.Ctx) error {
	actorID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}

	var req dto.UpdateUserStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.adminFlow.UpdateUserStatus(ctx, actorID, targetID, &req, clientMetadata(c))
	if err != nil {
		return h.adminMutationError(c, err, "Failed to update user status", "UPDATE_STATUS_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "User status updated", result)
}

// UpdateUserPlan changes a user's subscription plan
// @Summary Update User Plan
// @Description Change a user's subscription plan
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateUserPlanRequest true "New plan"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateUserResponse} "User updated"
// @Failure 400 {object} dto.APIResponse "Validation error or unknown plan"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/users/{id}/plan [put]
func (h *AdminHandler) UpdateUserPlan(c fiber.Ctx) error {
	actorID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}

	var req dto.UpdateUserPlanRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.adminFlow.UpdateUserPlan(ctx, actorID, targetID, &req, clientMetadata(c))
	if err != nil {
		return h.adminMutationError(c, err, "Failed to update user plan", "UPDATE_PLAN_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "User plan updated", result)
}

// ExportUsers streams an xlsx report of all accounts
// @Summary Export Users Report
// @Description Download an xlsx report of all accounts with usage counters
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} binary "Report file"
// @Failure 403 {object} dto.APIResponse "Admin access required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/users/export [get]
func (h *AdminHandler) ExportUsers(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	filename, data, err := h.adminFlow.ExportUsersReport(ctx)
	if err != nil {
		log.Println("Users report export failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to export users report", "EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}

// SystemHealth reports component health for the admin console
// @Summary System Health
// @Description Probe backing components and report aggregate health
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SystemHealthResponse} "Health report"
// @Failure 403 {object} dto.APIResponse "Admin access required"
// @Router /api/v1/admin/health [get]
func (h *AdminHandler) SystemHealth(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.adminFlow.SystemHealth(ctx)
	if err != nil {
		log.Println("Health probe failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to probe system health", "HEALTH_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "System health", result)
}

// actorAndTarget resolves the acting admin from the auth context and the
// target user from the path.
func (h *AdminHandler) actorAndTarget(c fiber.Ctx) (uint, uint, error) {
	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return 0, 0, errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	targetID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || targetID == 0 {
		return 0, 0, errorResponse(c, fiber.StatusBadRequest, "Invalid user ID", "INVALID_USER_ID", nil)
	}

	return actorID, uint(targetID), nil
}

func (h *AdminHandler) adminMutationError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsUserNotFound(err) {
		return errorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
	}
	if businessflow.IsSelfModification(err) {
		return errorResponse(c, fiber.StatusBadRequest, "You cannot change your own role or status", "SELF_MODIFICATION", nil)
	}
	if businessflow.IsLastSuperAdmin(err) {
		return errorResponse(c, fiber.StatusConflict, "Cannot remove the last active super-admin", "LAST_SUPER_ADMIN", nil)
	}
	if businessflow.IsInvalidRole(err) {
		return errorResponse(c, fiber.StatusBadRequest, "Unknown role", "INVALID_ROLE", nil)
	}
	if businessflow.IsInvalidPlan(err) {
		return errorResponse(c, fiber.StatusBadRequest, "Unknown plan", "INVALID_PLAN", nil)
	}

	log.Println(message, err)
	return errorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}
