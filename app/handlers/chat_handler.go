package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/middleware"
	businessflow "github.com/elby-ai/elby-backend/business_flow"
)

// ChatHandler handles the metered AI endpoints and the usage summary
type ChatHandler struct {
	chatFlow  businessflow.ChatFlow
	usageFlow businessflow.UsageFlow
	validator *validator.Validate
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatFlow businessflow.ChatFlow, usageFlow businessflow.UsageFlow) *ChatHandler {
	return &ChatHandler{
		chatFlow:  chatFlow,
		usageFlow: usageFlow,
		validator: validator.New(),
	}
}

// Chat handles a metered chat completion
// @Summary Chat Completion
// @Description Send a conversation to the legal assistant. The regulator persona is metered as a blockchain tool, everything else as a general query.
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChatRequest true "Conversation and persona"
// @Success 200 {object} dto.APIResponse{data=dto.ChatResponse} "Assistant reply"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 429 {object} dto.APIResponse "Daily limit reached"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.ChatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.chatFlow.Chat(ctx, userID, &req, clientMetadata(c))
	if err != nil {
		return h.meteredError(c, err, "Chat request failed", "CHAT_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Chat completed", result)
}

// AnalyzeContract handles a metered smart contract analysis
// @Summary Smart Contract Analysis
// @Description Generate an IRAC-style legal analysis for a contract address. Metered as a blockchain tool.
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ContractAnalysisRequest true "Contract address"
// @Success 200 {object} dto.APIResponse{data=dto.ContractAnalysisResponse} "Analysis"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 429 {object} dto.APIResponse "Daily limit reached"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/tools/contract-analysis [post]
func (h *ChatHandler) AnalyzeContract(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.ContractAnalysisRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.chatFlow.AnalyzeContract(ctx, userID, &req, clientMetadata(c))
	if err != nil {
		return h.meteredError(c, err, "Contract analysis failed", "CONTRACT_ANALYSIS_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Analysis completed", result)
}

// GeneratePlaybook handles a metered compliance playbook generation
// @Summary Compliance Playbook
// @Description Generate a compliance playbook for a project type and jurisdiction. Metered as a blockchain tool.
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PlaybookRequest true "Project type and jurisdiction"
// @Success 200 {object} dto.APIResponse{data=dto.PlaybookResponse} "Playbook"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 429 {object} dto.APIResponse "Daily limit reached"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/tools/playbook [post]
func (h *ChatHandler) GeneratePlaybook(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.PlaybookRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.chatFlow.GeneratePlaybook(ctx, userID, &req, clientMetadata(c))
	if err != nil {
		return h.meteredError(c, err, "Playbook generation failed", "PLAYBOOK_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Playbook generated", result)
}

// RegulatoryNews returns the curated regulatory news feed
// @Summary Regulatory News
// @Description Return the curated regulatory news feed. Not metered.
// @Tags AI
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.RegulatoryNewsResponse} "News feed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/news [get]
func (h *ChatHandler) RegulatoryNews(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.chatFlow.RegulatoryNews(ctx)
	if err != nil {
		log.Println("News feed failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load news feed", "NEWS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Regulatory news", result)
}

// UsageSummary returns the caller's consumption for the current window
// @Summary Usage Summary
// @Description Report consumption against plan limits for both tool categories
// @Tags AI
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UsageSummaryResponse} "Usage summary"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/usage [get]
func (h *ChatHandler) UsageSummary(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.usageFlow.Summary(ctx, userID)
	if err != nil {
		log.Println("Usage summary failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load usage summary", "USAGE_SUMMARY_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Usage summary", result)
}

// meteredError maps quota denials to 429 with the user-facing upgrade message
// and everything else to a generic failure.
func (h *ChatHandler) meteredError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsQuotaExceeded(err) {
		var bizErr *businessflow.BusinessError
		detail := "You have reached your daily limit. Please upgrade your plan for more access."
		if businessflow.AsBusinessError(err, &bizErr) {
			detail = bizErr.Message
		}
		return errorResponse(c, fiber.StatusTooManyRequests, detail, "QUOTA_EXCEEDED", nil)
	}
	if businessflow.IsUserNotFound(err) {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}
	if businessflow.IsInvalidToolName(err) {
		return errorResponse(c, fiber.StatusBadRequest, "Unknown tool category", "INVALID_TOOL", nil)
	}

	log.Println(message, err)
	return errorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}
