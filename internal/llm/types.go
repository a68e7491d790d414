package llm

import "context"

// Client represents any OpenAI-compatible completion provider.
type Client interface {
	// Complete sends messages and returns a response (non-streaming).
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Model returns the model identifier.
	Model() string
}

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest contains all parameters for a completion call.
type CompletionRequest struct {
	Messages    []Message      `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	// TopLogProbs requests per-token log-probability output with the given
	// number of alternative tokens at each generation step. Zero disables it.
	TopLogProbs int `json:"top_logprobs,omitempty"`

	// JSONOutput asks the provider for a JSON object response.
	JSONOutput bool `json:"-"`
}

// TokenLogProb is one candidate token with its log-probability.
type TokenLogProb struct {
	Token   string  `json:"token"`
	LogProb float64 `json:"logprob"`
}

// LogProbStep holds the chosen token and top-K alternatives for one
// generation step.
type LogProbStep struct {
	Token       string         `json:"token"`
	LogProb     float64        `json:"logprob"`
	TopLogProbs []TokenLogProb `json:"top_logprobs"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the provider's response.
type CompletionResponse struct {
	Content      string        `json:"content"`
	LogProbs     []LogProbStep `json:"logprobs,omitempty"`
	FinishReason string        `json:"finish_reason"`
	Usage        TokenUsage    `json:"usage"`
}

// Config configures an LLM client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    int // Seconds
	Headers    map[string]string
	MaxRespMiB int
}
