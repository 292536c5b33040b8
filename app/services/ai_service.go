// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Persona selects the system instruction used for chat generation.
type Persona string

const (
	PersonaAssistant Persona = "Elby Assistant"
	PersonaRegulator Persona = "Chain Assistant"
)

// AIMessage is one turn of a chat conversation passed to the generator.
type AIMessage struct {
	Role string // "user" or "model"
	Text string
}

// AIService generates text through an external generative-AI backend. The
// backend is opaque: callers get text or an error, and substitute their own
// fallback copy on failure.
type AIService interface {
	GenerateChat(ctx context.Context, messages []AIMessage, persona Persona) (string, error)
	AnalyzeContract(ctx context.Context, contractAddress string) (string, error)
	GeneratePlaybook(ctx context.Context, projectType, jurisdiction string) (string, error)
}

const assistantInstruction = "You are Elby, a helpful and friendly AI legal assistant. You provide clear, concise information on general legal topics. Your responses should be informative but not overly long. Always end your response with a clear disclaimer that you are an AI assistant, not a human lawyer, and your response does not constitute legal advice."

const regulatorInstruction = "You are Chain Assistant, a specialized AI focusing on blockchain technology and its legal implications. You answer technical questions about smart contracts, DeFi, Web3 concepts, and regulatory frameworks like the Howey Test or MiCA. Your tone is professional and precise. Always end your response with a clear disclaimer that you are an AI assistant, not a human lawyer, and your response does not constitute financial or legal advice."

const contractAnalystInstruction = "You are an AI legal analyst specializing in blockchain and securities law. Your task is to provide a preliminary analysis based on the Howey Test. Your analysis must be structured using the IRAC (Issue, Rule, Analysis, Conclusion) framework. This is a preliminary, high-level analysis for informational purposes only and does not constitute legal advice. You must generate the response in well-formatted Markdown."

const playbookConsultantInstruction = "You are an AI legal tech consultant. You create high-level compliance playbooks for blockchain projects. Your tone is professional, informative, and structured. The playbook should be practical and provide actionable recommendations. This does not constitute legal advice. You must generate the response in well-formatted Markdown."

// GeminiService calls the Gemini generateContent REST endpoint with a request
// timeout and a bounded retry for transient failures.
type GeminiService struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	client     *http.Client
}

// NewGeminiService creates a Gemini-backed AI service
func NewGeminiService(apiKey, model string, timeout time.Duration, maxRetries int) AIService {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &GeminiService{
		apiKey:     apiKey,
		model:      model,
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateChat generates a chat reply for the given history and persona
func (s *GeminiService) GenerateChat(ctx context.Context, messages []AIMessage, persona Persona) (string, error) {
	instruction := assistantInstruction
	if persona == PersonaRegulator {
		instruction = regulatorInstruction
	}

	contents := make([]geminiContent, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == "model" || msg.Role == "ai" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Text}},
		})
	}

	return s.generate(ctx, instruction, contents)
}

// AnalyzeContract produces a preliminary Howey Test analysis for a contract address
func (s *GeminiService) AnalyzeContract(ctx context.Context, contractAddress string) (string, error) {
	prompt := fmt.Sprintf(`Analyze the potential for a token associated with the smart contract address %s to be considered a security under the U.S. Howey Test. Given that you cannot access live blockchain data, base your analysis on common patterns and characteristics of tokens associated with smart contracts.

Provide the output in Markdown format with the following structure:
## Preliminary IRAC Analysis: Howey Test
**Contract:** %s
*Disclaimer: This is an AI-generated analysis for informational purposes and does not constitute legal or financial advice. A qualified attorney should be consulted for a definitive legal opinion.*

### Issue
Whether tokens associated with the smart contract could be classified as "investment contracts" and therefore as securities under the U.S. Howey Test.

### Rule
State the four prongs of the Howey Test:
1. An investment of money
2. In a common enterprise
3. With a reasonable expectation of profits
4. To be derived from the entrepreneurial or managerial efforts of others.

### Analysis
Apply each prong of the Howey Test to hypothetical scenarios typical for a token project associated with this contract.

### Conclusion
Provide a summary conclusion about the potential risk level (e.g., low, moderate, high) that the token could be classified as a security, based on the hypothetical analysis. Emphasize that this is not a definitive legal finding.`, contractAddress, contractAddress)

	return s.generate(ctx, contractAnalystInstruction, []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}})
}

// GeneratePlaybook produces a high-level compliance playbook
func (s *GeminiService) GeneratePlaybook(ctx context.Context, projectType, jurisdiction string) (string, error) {
	prompt := fmt.Sprintf(`Generate a high-level compliance playbook for a project with the following characteristics:
- Project Type: %s
- Target Jurisdiction: %s

Provide the output in Markdown format with the following structure:
## High-Level Compliance Playbook
**Project Type:** %s
**Jurisdiction:** %s
*Disclaimer: This is a generated, high-level guide and not a substitute for professional legal counsel. Regulations are complex and subject to change.*

### 1. Corporate Structure & Formation
### 2. Tokenomics & Securities Law
### 3. Anti-Money Laundering (AML) / Know Your Customer (KYC)
### 4. Data Privacy & Security
### 5. Marketing & Community Guidelines

Each section must contain a **Recommendation** and an **Action Item** tailored to the project type and the laws of %s.`, projectType, jurisdiction, projectType, jurisdiction, jurisdiction)

	return s.generate(ctx, playbookConsultantInstruction, []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}})
}

func (s *GeminiService) generate(ctx context.Context, instruction string, contents []geminiContent) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("AI API key not configured")
	}

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: instruction}}},
		Contents:          contents,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode AI request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		text, retryable, err := s.doGenerate(ctx, endpoint, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		log.Printf("AI generation attempt %d failed: %v", attempt+1, err)
	}

	return "", lastErr
}

func (s *GeminiService) doGenerate(ctx context.Context, endpoint string, payload []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("failed to build AI request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("AI request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		// Server-side errors and throttling are worth retrying, client errors are not
		retryable = resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retryable, fmt.Errorf("AI backend returned status %d: %s", resp.StatusCode, string(body))
	}

	var body geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false, fmt.Errorf("failed to decode AI response: %w", err)
	}

	if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 {
		return "", false, fmt.Errorf("AI backend returned no candidates")
	}

	return body.Candidates[0].Content.Parts[0].Text, false, nil
}

// MockAIService returns canned responses without network calls.
type MockAIService struct {
	ChatResponse string
	Err          error
}

func NewMockAIService(response string) *MockAIService {
	return &MockAIService{ChatResponse: response}
}

func (s *MockAIService) GenerateChat(ctx context.Context, messages []AIMessage, persona Persona) (string, error) {
	return s.ChatResponse, s.Err
}

func (s *MockAIService) AnalyzeContract(ctx context.Context, contractAddress string) (string, error) {
	return s.ChatResponse, s.Err
}

func (s *MockAIService) GeneratePlaybook(ctx context.Context, projectType, jurisdiction string) (string, error) {
	return s.ChatResponse, s.Err
}
