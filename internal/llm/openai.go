package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"warden/internal/httpclient"
	"warden/internal/logging"
)

const defaultMaxResponseBytes = 8 << 20

// OpenAI-compatible chat completions client.
type openaiClient struct {
	model        string
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	logger       logging.Logger
	headers      map[string]string
	maxRespBytes int64
}

// NewOpenAIClient constructs a client that speaks the OpenAI-compatible chat
// completions API using the provided configuration.
func NewOpenAIClient(model string, config Config) (Client, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := 30 * time.Second
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}

	maxRespBytes := int64(defaultMaxResponseBytes)
	if config.MaxRespMiB > 0 {
		maxRespBytes = int64(config.MaxRespMiB) << 20
	}

	return &openaiClient{
		model:        model,
		apiKey:       config.APIKey,
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		httpClient:   httpclient.NewWithCircuitBreaker(timeout, "llm-"+model),
		logger:       logging.NewComponentLogger("llm"),
		headers:      config.Headers,
		maxRespBytes: maxRespBytes,
	}, nil
}

func (c *openaiClient) Model() string {
	return c.model
}

func (c *openaiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	oaiReq := map[string]any{
		"model":       c.model,
		"messages":    req.Messages,
		"temperature": req.Temperature,
		"stream":      false,
	}
	if req.MaxTokens > 0 {
		oaiReq["max_tokens"] = req.MaxTokens
	}
	if len(req.Metadata) > 0 {
		oaiReq["metadata"] = req.Metadata
	}
	if req.TopLogProbs > 0 {
		oaiReq["logprobs"] = true
		oaiReq["top_logprobs"] = req.TopLogProbs
	}
	if req.JSONOutput {
		oaiReq["response_format"] = map[string]any{"type": "json_object"}
	}

	body, err := json.Marshal(oaiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	c.logger.Debug("POST %s model=%s logprobs=%d", endpoint, c.model, req.TopLogProbs)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapRequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := httpclient.ReadAllWithLimit(resp.Body, c.maxRespBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("error response (%d): %s", resp.StatusCode, string(respBody))
		return nil, mapHTTPError(resp.StatusCode, respBody, resp.Header)
	}

	var oaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			LogProbs *struct {
				Content []LogProbStep `json:"content"`
			} `json:"logprobs"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage TokenUsage `json:"usage"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if oaiResp.Error != nil {
		return nil, fmt.Errorf("provider error: %s (%s)", oaiResp.Error.Message, oaiResp.Error.Type)
	}
	if len(oaiResp.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	choice := oaiResp.Choices[0]
	result := &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage:        oaiResp.Usage,
	}
	if choice.LogProbs != nil {
		result.LogProbs = choice.LogProbs.Content
	}

	return result, nil
}
