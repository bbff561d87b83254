package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appconfig "market-insight/config"
	"market-insight/observability"
)

const anthropicAPIVersion = "2023-06-01"

// AnthropicService handles communication with the Anthropic Messages API
type AnthropicService struct {
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	baseURL    string
}

// NewAnthropicService creates a new AnthropicService instance
func NewAnthropicService(cfg *appconfig.Config) (*AnthropicService, error) {
	if cfg.Anthropic.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	return &AnthropicService{
		apiKey:     cfg.Anthropic.APIKey,
		model:      cfg.Anthropic.Model,
		maxTokens:  cfg.Anthropic.MaxTokens,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    "https://api.anthropic.com/v1",
	}, nil
}

// Name returns the provider name
func (s *AnthropicService) Name() string {
	return BreakerAnthropic
}

// Complete sends one chat-completion request to Claude and returns the
// response content as ordered segments
func (s *AnthropicService) Complete(ctx context.Context, req CompletionRequest) ([]Segment, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAnthropic, "messages")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerAnthropic, func() ([]Segment, error) {
		messages, err := encodeClaudeMessages(req.Messages)
		if err != nil {
			return nil, err
		}

		maxTokens := req.MaxTokens
		if maxTokens <= 0 {
			maxTokens = s.maxTokens
		}

		wireReq := ClaudeRequest{
			Model:       s.model,
			MaxTokens:   maxTokens,
			Temperature: req.Temperature,
			System:      req.System,
			Messages:    messages,
			Tools:       encodeClaudeTools(req.Tools),
		}

		body, err := json.Marshal(wireReq)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", s.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

		resp, err := s.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("failed to invoke model: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("Anthropic API returned status %d: %s", resp.StatusCode, detail)
		}

		var wireResp ClaudeResponse
		if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		segments := decodeClaudeContent(wireResp.Content)
		if len(segments) == 0 {
			return nil, fmt.Errorf("empty response from model")
		}

		return segments, nil
	})

	timer.ObserveExternalAPI(BreakerAnthropic, "messages")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAnthropic, "messages", categorizeAPIError(err))
	}
	return result, err
}
