package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	appconfig "market-insight/config"
	"market-insight/observability"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openaiClient defines the interface for OpenAI API calls (for testing)
type openaiClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// openaiClientWrapper wraps the openai.Client to implement our interface
type openaiClientWrapper struct {
	client openai.Client
}

func (w *openaiClientWrapper) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return w.client.Chat.Completions.New(ctx, params)
}

// OpenAIService handles communication with the OpenAI API
type OpenAIService struct {
	client    openaiClient
	model     string
	maxTokens int
}

// NewOpenAIService creates a new OpenAIService instance
func NewOpenAIService(cfg *appconfig.Config) (*OpenAIService, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	client := openai.NewClient(option.WithAPIKey(cfg.OpenAI.APIKey))

	return &OpenAIService{
		client:    &openaiClientWrapper{client: client},
		model:     cfg.OpenAI.Model,
		maxTokens: cfg.OpenAI.MaxTokens,
	}, nil
}

// newOpenAIServiceWithClient creates an OpenAIService with a custom client (for testing)
func newOpenAIServiceWithClient(client openaiClient, model string, maxTokens int) *OpenAIService {
	return &OpenAIService{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Name returns the provider name
func (s *OpenAIService) Name() string {
	return BreakerOpenAI
}

// Complete sends one chat-completion request to OpenAI and returns the
// response content as ordered segments. Tool calls are surfaced as tool_use
// segments after any text content.
func (s *OpenAIService) Complete(ctx context.Context, req CompletionRequest) ([]Segment, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerOpenAI, "chat")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerOpenAI, func() ([]Segment, error) {
		params, err := s.buildParams(req)
		if err != nil {
			return nil, err
		}

		completion, err := s.client.CreateChatCompletion(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to invoke OpenAI: %w", err)
		}

		if len(completion.Choices) == 0 {
			return nil, fmt.Errorf("empty response from OpenAI")
		}

		msg := completion.Choices[0].Message
		segments := make([]Segment, 0, 1+len(msg.ToolCalls))
		if msg.Content != "" {
			segments = append(segments, TextSegment(msg.Content))
		}
		for _, call := range msg.ToolCalls {
			input := map[string]any{}
			if call.Function.Arguments != "" {
				// Malformed arguments degrade to an empty input; the tool
				// registry substitutes documented defaults.
				_ = json.Unmarshal([]byte(call.Function.Arguments), &input)
			}
			segments = append(segments, ToolUseSegment(call.ID, call.Function.Name, input))
		}

		if len(segments) == 0 {
			return nil, fmt.Errorf("empty response from OpenAI")
		}

		return segments, nil
	})

	timer.ObserveExternalAPI(BreakerOpenAI, "chat")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerOpenAI, "chat", categorizeAPIError(err))
	}
	return result, err
}

// buildParams converts the generic completion request to OpenAI chat params.
// Claude-style tool_result segments become tool-role messages.
func (s *OpenAIService) buildParams(req CompletionRequest) (openai.ChatCompletionNewParams, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if text := msg.Text(); text != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(text),
				}
			}
			for _, seg := range msg.Content {
				if seg.Type != SegmentToolUse {
					continue
				}
				input := seg.Input
				if input == nil {
					input = map[string]any{}
				}
				args, err := json.Marshal(input)
				if err != nil {
					return openai.ChatCompletionNewParams{}, fmt.Errorf("failed to marshal tool input: %w", err)
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: seg.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      seg.Name,
						Arguments: string(args),
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case RoleUser:
			for _, seg := range msg.Content {
				if seg.Type == SegmentToolResult {
					messages = append(messages, openai.ToolMessage(seg.Content, seg.ToolUseID))
				}
			}
			if text := msg.Text(); text != "" {
				messages = append(messages, openai.UserMessage(text))
			}

		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.maxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(s.model),
		MaxTokens: openai.Int(int64(maxTokens)),
		Messages:  messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.InputSchema),
			},
		})
	}

	return params, nil
}

// categorizeAPIError categorizes an error for metrics purposes
func categorizeAPIError(err error) string {
	if err == nil {
		return "none"
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "timeout", "deadline"):
		return "timeout"
	case containsAny(errStr, "rate limit", "429"):
		return "rate_limit"
	case containsAny(errStr, "unauthorized", "401"):
		return "auth_error"
	case containsAny(errStr, "connection", "network"):
		return "connection_error"
	case containsAny(errStr, "circuit breaker"):
		return "circuit_open"
	default:
		return "unknown"
	}
}

// containsAny checks if the string contains any of the substrings
func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
