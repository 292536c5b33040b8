package dto

// ChatMessage represents one turn of a conversation sent to the assistant
type ChatMessage struct {
	Role string `json:"role" validate:"required,oneof=user model" example:"user"`
	Text string `json:"text" validate:"required,max=8000"`
}

// ChatRequest represents a metered chat completion request. Persona selects
// the assistant flavor: the general legal assistant or the blockchain one.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
	Persona  string        `json:"persona" validate:"omitempty,oneof=assistant regulator" example:"assistant"`
}

// ChatResponse represents the assistant reply plus the caller's remaining quota
type ChatResponse struct {
	Reply string    `json:"reply"`
	Usage UsageInfo `json:"usage"`
}

// ContractAnalysisRequest represents a request to analyze a smart contract address
type ContractAnalysisRequest struct {
	ContractAddress string `json:"contract_address" validate:"required,min=4,max=128" example:"0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"`
}

// ContractAnalysisResponse represents the generated analysis in Markdown
type ContractAnalysisResponse struct {
	Analysis string    `json:"analysis"`
	Usage    UsageInfo `json:"usage"`
}

// PlaybookRequest represents a request to generate a compliance playbook
type PlaybookRequest struct {
	ProjectType  string `json:"project_type" validate:"required,min=2,max=128" example:"DeFi Lending Protocol"`
	Jurisdiction string `json:"jurisdiction" validate:"required,min=2,max=128" example:"European Union"`
}

// PlaybookResponse represents the generated playbook in Markdown
type PlaybookResponse struct {
	Playbook string    `json:"playbook"`
	Usage    UsageInfo `json:"usage"`
}

// UsageInfo reports current consumption against plan limits for a window.
// Remaining is -1 when the plan places no cap on the tool.
type UsageInfo struct {
	Tool      string `json:"tool" example:"general_queries"`
	Used      int    `json:"used" example:"3"`
	Limit     int    `json:"limit" example:"5"`
	Remaining int    `json:"remaining" example:"2"`
}

// UsageSummaryResponse reports the caller's consumption for both tool
// categories in the current window
type UsageSummaryResponse struct {
	Plan           string    `json:"plan" example:"Free"`
	GeneralQueries UsageInfo `json:"general_queries"`
	BlockchainTool UsageInfo `json:"blockchain_tools"`
}

// RegulatoryNewsItem is one entry of the curated regulatory feed
type RegulatoryNewsItem struct {
	ID      int      `json:"id" example:"1"`
	Title   string   `json:"title"`
	Source  string   `json:"source"`
	Date    string   `json:"date" example:"2024-07-21"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags,omitempty"`
}

// RegulatoryNewsResponse wraps the feed
type RegulatoryNewsResponse struct {
	Items []RegulatoryNewsItem `json:"items"`
}
