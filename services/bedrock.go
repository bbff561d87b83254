package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"market-insight/observability"
)

// BedrockService handles communication with AWS Bedrock for Claude models.
// It speaks the same Messages wire format as AnthropicService.
type BedrockService struct {
	client    bedrockClient
	model     string
	maxTokens int
}

// bedrockClient defines the interface for Bedrock API calls (for testing)
type bedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// NewBedrockService creates a new BedrockService instance
func NewBedrockService(ctx context.Context, region, modelID string, maxTokens int) (*BedrockService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return &BedrockService{
		client:    bedrockruntime.NewFromConfig(cfg),
		model:     modelID,
		maxTokens: maxTokens,
	}, nil
}

// newBedrockServiceWithClient creates a BedrockService with a custom client (for testing)
func newBedrockServiceWithClient(client bedrockClient, model string, maxTokens int) *BedrockService {
	return &BedrockService{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Name returns the provider name
func (s *BedrockService) Name() string {
	return BreakerBedrock
}

// Complete sends one chat-completion request to Claude via Bedrock
func (s *BedrockService) Complete(ctx context.Context, req CompletionRequest) ([]Segment, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerBedrock, "invoke_model")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerBedrock, func() ([]Segment, error) {
		messages, err := encodeClaudeMessages(req.Messages)
		if err != nil {
			return nil, err
		}

		maxTokens := req.MaxTokens
		if maxTokens <= 0 {
			maxTokens = s.maxTokens
		}

		anthropicVersion := "bedrock-2023-05-31"
		if val := os.Getenv("BEDROCK_ANTHROPIC_VERSION"); val != "" {
			anthropicVersion = val
		}

		wireReq := ClaudeRequest{
			AnthropicVersion: anthropicVersion,
			MaxTokens:        maxTokens,
			Temperature:      req.Temperature,
			System:           req.System,
			Messages:         messages,
			Tools:            encodeClaudeTools(req.Tools),
		}

		body, err := json.Marshal(wireReq)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		output, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(s.model),
			Body:        body,
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to invoke model: %w", err)
		}

		var wireResp ClaudeResponse
		if err := json.Unmarshal(output.Body, &wireResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		segments := decodeClaudeContent(wireResp.Content)
		if len(segments) == 0 {
			return nil, fmt.Errorf("empty response from model")
		}

		return segments, nil
	})

	timer.ObserveExternalAPI(BreakerBedrock, "invoke_model")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerBedrock, "invoke_model", categorizeAPIError(err))
	}
	return result, err
}
