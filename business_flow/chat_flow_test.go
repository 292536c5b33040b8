package businessflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/app/services"
	businessflow "github.com/elby-ai/elby-backend/business_flow"
	"github.com/elby-ai/elby-backend/models"
	testutil "github.com/elby-ai/elby-backend/testing"
)

func newChatEnv(t *testing.T, ai *services.MockAIService) (businessflow.ChatFlow, *testutil.MemoryUserRepository) {
	t.Helper()
	userRepo := testutil.NewMemoryUserRepository()
	usageFlow := businessflow.NewUsageFlow(userRepo, testutil.NewMemoryAuditRepository(), nil)
	return businessflow.NewChatFlow(usageFlow, ai), userRepo
}

func chatRequest(persona string) *dto.ChatRequest {
	return &dto.ChatRequest{
		Persona:  persona,
		Messages: []dto.ChatMessage{{Role: "user", Text: "Is my token a security?"}},
	}
}

func TestChatMetersGeneralQueries(t *testing.T) {
	flow, userRepo := newChatEnv(t, services.NewMockAIService("Here is my answer."))
	user, err := testutil.CreateTestUser(userRepo, "user@example.com")
	require.NoError(t, err)

	resp, err := flow.Chat(context.Background(), user.ID, chatRequest(""), nil)
	require.NoError(t, err)

	assert.Equal(t, "Here is my answer.", resp.Reply)
	assert.Equal(t, string(models.ToolGeneralQueries), resp.Usage.Tool)
	assert.Equal(t, 1, resp.Usage.Used)
}

func TestRegulatorPersonaMetersBlockchainTools(t *testing.T) {
	flow, userRepo := newChatEnv(t, services.NewMockAIService("Chain answer."))
	user, err := testutil.CreateTestUser(userRepo, "user@example.com")
	require.NoError(t, err)

	resp, err := flow.Chat(context.Background(), user.ID, chatRequest("regulator"), nil)
	require.NoError(t, err)

	assert.Equal(t, string(models.ToolBlockchainTools), resp.Usage.Tool)
	assert.Equal(t, 1, resp.Usage.Used)
}

func TestChatDeniedWhenQuotaExhausted(t *testing.T) {
	flow, userRepo := newChatEnv(t, services.NewMockAIService("unused"))
	user, err := testutil.CreateTestUser(userRepo, "user@example.com", testutil.WithUsage(5, 0))
	require.NoError(t, err)

	_, err = flow.Chat(context.Background(), user.ID, chatRequest(""), nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsQuotaExceeded(err))
}

func TestChatFallsBackWhenAIUnavailable(t *testing.T) {
	ai := services.NewMockAIService("")
	ai.Err = errors.New("backend timeout")

	flow, userRepo := newChatEnv(t, ai)
	user, err := testutil.CreateTestUser(userRepo, "user@example.com")
	require.NoError(t, err)

	resp, err := flow.Chat(context.Background(), user.ID, chatRequest(""), nil)
	require.NoError(t, err)
	assert.Contains(t, resp.Reply, "trouble connecting")

	// The failed generation still consumed quota
	stored, err := userRepo.ByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Usage.GeneralQueries)
}

func TestAnalyzeContractMetersBlockchainTools(t *testing.T) {
	flow, userRepo := newChatEnv(t, services.NewMockAIService("## Preliminary IRAC Analysis"))
	user, err := testutil.CreateTestUser(userRepo, "user@example.com")
	require.NoError(t, err)

	ctx := context.Background()
	resp, err := flow.AnalyzeContract(ctx, user.ID, &dto.ContractAnalysisRequest{ContractAddress: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"}, nil)
	require.NoError(t, err)

	assert.Contains(t, resp.Analysis, "IRAC")
	assert.Equal(t, string(models.ToolBlockchainTools), resp.Usage.Tool)
}

func TestAnalyzeContractRejectsNonHexAddress(t *testing.T) {
	flow, userRepo := newChatEnv(t, services.NewMockAIService("## Preliminary IRAC Analysis"))
	user, err := testutil.CreateTestUser(userRepo, "user@example.com")
	require.NoError(t, err)

	ctx := context.Background()
	resp, err := flow.AnalyzeContract(ctx, user.ID, &dto.ContractAnalysisRequest{ContractAddress: "uniswap.eth"}, nil)
	require.NoError(t, err)

	// The canned rejection comes back instead of a generated analysis
	assert.Contains(t, resp.Analysis, "Invalid Contract Address")
	assert.NotContains(t, resp.Analysis, "IRAC")

	// The attempt still counts against the blockchain-tool allowance
	stored, err := userRepo.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Usage.BlockchainTools)
}

func TestGeneratePlaybookFallback(t *testing.T) {
	ai := services.NewMockAIService("")
	ai.Err = errors.New("backend down")

	flow, userRepo := newChatEnv(t, ai)
	user, err := testutil.CreateTestUser(userRepo, "user@example.com")
	require.NoError(t, err)

	resp, err := flow.GeneratePlaybook(context.Background(), user.ID, &dto.PlaybookRequest{ProjectType: "DeFi Lending", Jurisdiction: "EU"}, nil)
	require.NoError(t, err)
	assert.Contains(t, resp.Playbook, "trouble generating the playbook")
}

func TestRegulatoryNewsFeed(t *testing.T) {
	flow, _ := newChatEnv(t, services.NewMockAIService("unused"))

	news, err := flow.RegulatoryNews(context.Background())
	require.NoError(t, err)

	require.Len(t, news.Items, 3)
	assert.Equal(t, "EU Parliament Approves MiCA Regulation", news.Items[1].Title)
	assert.NotEmpty(t, news.Items[0].Tags)
}
