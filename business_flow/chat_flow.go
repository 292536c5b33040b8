// Package businessflow contains the core business logic and use cases for account, quota, and content workflows
package businessflow

import (
	"context"
	"log"
	"strings"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/services"
	"github.com/elby-ai/elby-backend/models"
)

// Fallback copy returned when the AI backend is unreachable. The request
// still succeeds (and still counts against quota) so the client can render
// something instead of an error page.
const (
	chatFallbackMessage     = "I'm sorry, but I'm having trouble connecting to my knowledge base at the moment. Please try your request again in a few moments."
	analysisFallbackMessage = "I'm sorry, but I'm having trouble performing the analysis at the moment. Please try again later."
	invalidAddressMessage   = "## Invalid Contract Address\n\nPlease provide a valid Ethereum-style contract address starting with '0x'."
	playbookFallbackMessage = "I'm sorry, but I'm having trouble generating the playbook at the moment. Please try again later."
)

// regulatoryNews is the curated feed served to the radar page.
var regulatoryNews = []dto.RegulatoryNewsItem{
	{
		ID:      1,
		Title:   "SEC Announces New Framework for Digital Asset Offerings",
		Date:    "2024-07-28",
		Source:  "U.S. Securities and Exchange Commission",
		Summary: "The SEC has released a new guidance paper aimed at clarifying when digital assets may be considered securities. The framework introduces a more nuanced approach to the Howey Test in the context of decentralized networks.",
		Tags:    []string{"SEC", "Regulation", "USA"},
	},
	{
		ID:      2,
		Title:   "EU Parliament Approves MiCA Regulation",
		Date:    "2024-07-25",
		Source:  "European Parliament",
		Summary: "The Markets in Crypto-Assets (MiCA) regulation has been formally approved, establishing a unified licensing regime for crypto-asset service providers across the European Union. The rules are expected to come into effect in 2025.",
		Tags:    []string{"MiCA", "EU", "Licensing"},
	},
	{
		ID:      3,
		Title:   "Singapore MAS Issues Stricter Rules for Crypto Exchanges",
		Date:    "2024-07-22",
		Source:  "Monetary Authority of Singapore (MAS)",
		Summary: "MAS has updated its requirements for Digital Payment Token (DPT) service providers, focusing on customer protection, asset segregation, and risk management to bolster investor confidence.",
		Tags:    []string{"Singapore", "MAS", "Exchanges"},
	},
}

// ChatFlow handles the metered AI features and the regulatory feed
type ChatFlow interface {
	Chat(ctx context.Context, userID uint, req *dto.ChatRequest, metadata *ClientMetadata) (*dto.ChatResponse, error)
	AnalyzeContract(ctx context.Context, userID uint, req *dto.ContractAnalysisRequest, metadata *ClientMetadata) (*dto.ContractAnalysisResponse, error)
	GeneratePlaybook(ctx context.Context, userID uint, req *dto.PlaybookRequest, metadata *ClientMetadata) (*dto.PlaybookResponse, error)
	RegulatoryNews(ctx context.Context) (*dto.RegulatoryNewsResponse, error)
}

// ChatFlowImpl implements the chat business flow
type ChatFlowImpl struct {
	usageFlow UsageFlow
	aiService services.AIService
}

// NewChatFlow creates a new chat flow instance
func NewChatFlow(usageFlow UsageFlow, aiService services.AIService) ChatFlow {
	return &ChatFlowImpl{
		usageFlow: usageFlow,
		aiService: aiService,
	}
}

// Chat charges the quota for the persona's tool category and generates a
// reply. The blockchain persona is metered as a blockchain tool; the general
// assistant as a general query.
func (c *ChatFlowImpl) Chat(ctx context.Context, userID uint, req *dto.ChatRequest, metadata *ClientMetadata) (*dto.ChatResponse, error) {
	tool := models.ToolGeneralQueries
	persona := services.PersonaAssistant
	if req.Persona == "regulator" {
		tool = models.ToolBlockchainTools
		persona = services.PersonaRegulator
	}

	usage, err := c.usageFlow.CheckAndConsume(ctx, userID, tool, metadata)
	if err != nil {
		return nil, err
	}

	messages := make([]services.AIMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, services.AIMessage{Role: m.Role, Text: m.Text})
	}

	reply, err := c.aiService.GenerateChat(ctx, messages, persona)
	if err != nil {
		log.Printf("chat generation failed for user %d: %v", userID, err)
		reply = chatFallbackMessage
	}

	return &dto.ChatResponse{Reply: reply, Usage: *usage}, nil
}

// AnalyzeContract charges a blockchain-tool use and produces a preliminary
// securities-law analysis for the address. Addresses without the 0x prefix
// get a fixed rejection message instead of an AI call; the charge stands.
func (c *ChatFlowImpl) AnalyzeContract(ctx context.Context, userID uint, req *dto.ContractAnalysisRequest, metadata *ClientMetadata) (*dto.ContractAnalysisResponse, error) {
	usage, err := c.usageFlow.CheckAndConsume(ctx, userID, models.ToolBlockchainTools, metadata)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(req.ContractAddress, "0x") {
		return &dto.ContractAnalysisResponse{Analysis: invalidAddressMessage, Usage: *usage}, nil
	}

	analysis, err := c.aiService.AnalyzeContract(ctx, req.ContractAddress)
	if err != nil {
		log.Printf("contract analysis failed for user %d: %v", userID, err)
		analysis = analysisFallbackMessage
	}

	return &dto.ContractAnalysisResponse{Analysis: analysis, Usage: *usage}, nil
}

// GeneratePlaybook charges a blockchain-tool use and produces a compliance playbook
func (c *ChatFlowImpl) GeneratePlaybook(ctx context.Context, userID uint, req *dto.PlaybookRequest, metadata *ClientMetadata) (*dto.PlaybookResponse, error) {
	usage, err := c.usageFlow.CheckAndConsume(ctx, userID, models.ToolBlockchainTools, metadata)
	if err != nil {
		return nil, err
	}

	playbook, err := c.aiService.GeneratePlaybook(ctx, req.ProjectType, req.Jurisdiction)
	if err != nil {
		log.Printf("playbook generation failed for user %d: %v", userID, err)
		playbook = playbookFallbackMessage
	}

	return &dto.PlaybookResponse{Playbook: playbook, Usage: *usage}, nil
}

// RegulatoryNews returns the curated regulatory feed. The feed is static and
// unmetered.
func (c *ChatFlowImpl) RegulatoryNews(ctx context.Context) (*dto.RegulatoryNewsResponse, error) {
	items := make([]dto.RegulatoryNewsItem, len(regulatoryNews))
	copy(items, regulatoryNews)
	return &dto.RegulatoryNewsResponse{Items: items}, nil
}
