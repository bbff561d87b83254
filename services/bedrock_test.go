package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// mockBedrockClient returns a canned InvokeModel response
type mockBedrockClient struct {
	response ClaudeResponse
	err      error
	gotInput *bedrockruntime.InvokeModelInput
}

func (m *mockBedrockClient) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	m.gotInput = params
	if m.err != nil {
		return nil, m.err
	}
	body, err := json.Marshal(m.response)
	if err != nil {
		return nil, err
	}
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func TestBedrockService_Complete(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	client := &mockBedrockClient{
		response: ClaudeResponse{
			Content: []ClaudeBlock{
				{Type: "text", Text: "Energy stocks led the session."},
			},
		},
	}
	svc := newBedrockServiceWithClient(client, "anthropic.claude-sonnet-4-20250514-v1:0", 1024)

	segments, err := svc.Complete(context.Background(), CompletionRequest{
		System:      "You are a financial analyst.",
		Messages:    []Message{UserMessage("what led markets today?")},
		Temperature: 0.3,
		MaxTokens:   2048,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "Energy stocks led the session." {
		t.Errorf("segments = %+v", segments)
	}

	if *client.gotInput.ModelId != "anthropic.claude-sonnet-4-20250514-v1:0" {
		t.Errorf("ModelId = %q", *client.gotInput.ModelId)
	}

	var wireReq ClaudeRequest
	if err := json.Unmarshal(client.gotInput.Body, &wireReq); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if wireReq.AnthropicVersion != "bedrock-2023-05-31" {
		t.Errorf("anthropic_version = %q", wireReq.AnthropicVersion)
	}
	if wireReq.Model != "" {
		t.Errorf("model = %q, should be empty for Bedrock", wireReq.Model)
	}
	if wireReq.MaxTokens != 2048 || wireReq.System != "You are a financial analyst." {
		t.Errorf("wire request = %+v", wireReq)
	}
}

func TestBedrockService_CompleteToolUse(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	client := &mockBedrockClient{
		response: ClaudeResponse{
			Content: []ClaudeBlock{
				{Type: "tool_use", ID: "tu_1", Name: "search_financial_news", Input: json.RawMessage(`{"query":"fed"}`)},
			},
			StopReason: "tool_use",
		},
	}
	svc := newBedrockServiceWithClient(client, "model-id", 1024)

	segments, err := svc.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserMessage("fed news")},
		Tools:    []ToolDefinition{{Name: "search_financial_news", InputSchema: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(segments) != 1 || segments[0].Type != SegmentToolUse {
		t.Fatalf("segments = %+v", segments)
	}
	if segments[0].Input["query"] != "fed" {
		t.Errorf("tool input = %v", segments[0].Input)
	}

	var wireReq ClaudeRequest
	json.Unmarshal(client.gotInput.Body, &wireReq)
	if len(wireReq.Tools) != 1 || wireReq.Tools[0].Name != "search_financial_news" {
		t.Errorf("wire tools = %+v", wireReq.Tools)
	}
}

func TestBedrockService_CompleteError(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	client := &mockBedrockClient{err: errors.New("throttled")}
	svc := newBedrockServiceWithClient(client, "model-id", 1024)

	_, err := svc.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestBedrockService_CompleteEmptyContent(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	client := &mockBedrockClient{response: ClaudeResponse{}}
	svc := newBedrockServiceWithClient(client, "model-id", 1024)

	_, err := svc.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestBedrockService_Name(t *testing.T) {
	svc := &BedrockService{}
	if svc.Name() != BreakerBedrock {
		t.Errorf("Name() = %q", svc.Name())
	}
}
