package services

import (
	"context"
	"errors"
	"testing"

	"market-insight/config"

	"github.com/openai/openai-go"
)

// mockOpenAIClient returns a canned completion
type mockOpenAIClient struct {
	completion *openai.ChatCompletion
	err        error
	gotParams  openai.ChatCompletionNewParams
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	m.gotParams = params
	if m.err != nil {
		return nil, m.err
	}
	return m.completion, nil
}

func TestNewOpenAIService_RequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIService(config.NewTestConfig()); err == nil {
		t.Error("expected error when API key is missing")
	}
}

func TestOpenAIService_CompleteText(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	client := &mockOpenAIClient{
		completion: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "Markets were flat."}},
			},
		},
	}
	svc := newOpenAIServiceWithClient(client, "gpt-4o", 1024)

	segments, err := svc.Complete(context.Background(), CompletionRequest{
		System:      "You are a financial analyst.",
		Messages:    []Message{UserMessage("how did markets do?")},
		Temperature: 0.7,
		MaxTokens:   2048,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "Markets were flat." {
		t.Errorf("segments = %+v", segments)
	}

	params := client.gotParams
	if string(params.Model) != "gpt-4o" {
		t.Errorf("model = %q", params.Model)
	}
	if params.MaxTokens.Value != 2048 {
		t.Errorf("max_tokens = %d", params.MaxTokens.Value)
	}
	if params.Temperature.Value != 0.7 {
		t.Errorf("temperature = %v", params.Temperature.Value)
	}
	// System prompt becomes the first message
	if len(params.Messages) != 2 || params.Messages[0].OfSystem == nil {
		t.Errorf("messages = %+v, want system then user", params.Messages)
	}
}

func TestOpenAIService_CompleteToolCalls(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	client := &mockOpenAIClient{
		completion: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{
					Content: "Let me look that up.",
					ToolCalls: []openai.ChatCompletionMessageToolCall{
						{
							ID: "call_1",
							Function: openai.ChatCompletionMessageToolCallFunction{
								Name:      "fetch_stock_news",
								Arguments: `{"symbol":"TSLA"}`,
							},
						},
					},
				}},
			},
		},
	}
	svc := newOpenAIServiceWithClient(client, "gpt-4o", 1024)

	segments, err := svc.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserMessage("news about tesla?")},
		Tools:    []ToolDefinition{{Name: "fetch_stock_news", InputSchema: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("segments = %d, want text then tool_use", len(segments))
	}
	if segments[0].Type != SegmentText {
		t.Errorf("segment 0 type = %v", segments[0].Type)
	}
	use := segments[1]
	if use.Type != SegmentToolUse || use.ID != "call_1" || use.Name != "fetch_stock_news" {
		t.Errorf("tool_use segment = %+v", use)
	}
	if use.Input["symbol"] != "TSLA" {
		t.Errorf("tool input = %v", use.Input)
	}

	if len(client.gotParams.Tools) != 1 {
		t.Errorf("request tools = %d, want 1", len(client.gotParams.Tools))
	}
}

func TestOpenAIService_BuildParamsToolRoundTrip(t *testing.T) {
	svc := newOpenAIServiceWithClient(&mockOpenAIClient{}, "gpt-4o", 1024)

	params, err := svc.buildParams(CompletionRequest{
		Messages: []Message{
			UserMessage("analyze the market"),
			{
				Role: RoleAssistant,
				Content: []Segment{
					TextSegment("Fetching headlines."),
					ToolUseSegment("call_1", "fetch_top_financial_headlines", map[string]any{"category": "business"}),
				},
			},
			ToolResultsMessage([]Segment{ToolResultSegment("call_1", `{"status":"success"}`)}),
		},
	})
	if err != nil {
		t.Fatalf("buildParams() error = %v", err)
	}

	if len(params.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(params.Messages))
	}

	assistant := params.Messages[1].OfAssistant
	if assistant == nil {
		t.Fatal("message 1 is not an assistant message")
	}
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_1" {
		t.Errorf("assistant tool calls = %+v", assistant.ToolCalls)
	}
	if assistant.ToolCalls[0].Function.Name != "fetch_top_financial_headlines" {
		t.Errorf("tool call function = %+v", assistant.ToolCalls[0].Function)
	}

	tool := params.Messages[2].OfTool
	if tool == nil {
		t.Fatal("message 2 is not a tool message")
	}
	if tool.ToolCallID != "call_1" {
		t.Errorf("tool call ID = %q", tool.ToolCallID)
	}
}

func TestOpenAIService_CompleteError(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	client := &mockOpenAIClient{err: errors.New("429 rate limit exceeded")}
	svc := newOpenAIServiceWithClient(client, "gpt-4o", 1024)

	_, err := svc.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenAIService_CompleteEmptyChoices(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	client := &mockOpenAIClient{completion: &openai.ChatCompletion{}}
	svc := newOpenAIServiceWithClient(client, "gpt-4o", 1024)

	_, err := svc.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCategorizeAPIError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{errors.New("context deadline exceeded"), "timeout"},
		{errors.New("HTTP 429: rate limit"), "rate_limit"},
		{errors.New("401 unauthorized"), "auth_error"},
		{errors.New("connection refused"), "connection_error"},
		{errors.New("service openai unavailable: circuit breaker open"), "circuit_open"},
		{errors.New("something else"), "unknown"},
	}

	for _, tt := range tests {
		if got := categorizeAPIError(tt.err); got != tt.want {
			t.Errorf("categorizeAPIError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
