package services

import (
	"encoding/json"
	"fmt"
)

// Wire format for Claude models via the Anthropic Messages API. The same
// request/response shapes are accepted by AWS Bedrock (with anthropic_version
// set instead of model), so both providers share these types.

// ClaudeRequest represents a Messages API request
type ClaudeRequest struct {
	Model            string          `json:"model,omitempty"`
	AnthropicVersion string          `json:"anthropic_version,omitempty"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature,omitempty"`
	System           string          `json:"system,omitempty"`
	Messages         []ClaudeMessage `json:"messages"`
	Tools            []ClaudeTool    `json:"tools,omitempty"`
}

// ClaudeTool describes a tool in the Messages API tool catalogue
type ClaudeTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ClaudeMessage represents a message in the Claude conversation
type ClaudeMessage struct {
	Role    string        `json:"role"`
	Content []ClaudeBlock `json:"content"`
}

// ClaudeBlock is one content block: text, tool_use, or tool_result
type ClaudeBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// ClaudeResponse represents the response from Claude models
type ClaudeResponse struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Role       string        `json:"role"`
	Content    []ClaudeBlock `json:"content"`
	StopReason string        `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// encodeClaudeTools converts the generic tool catalogue to wire form
func encodeClaudeTools(tools []ToolDefinition) []ClaudeTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]ClaudeTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ClaudeTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return out
}

// encodeClaudeMessages converts generic conversation messages to wire form
func encodeClaudeMessages(messages []Message) ([]ClaudeMessage, error) {
	out := make([]ClaudeMessage, 0, len(messages))
	for _, msg := range messages {
		blocks := make([]ClaudeBlock, 0, len(msg.Content))
		for _, seg := range msg.Content {
			switch seg.Type {
			case SegmentText:
				blocks = append(blocks, ClaudeBlock{Type: "text", Text: seg.Text})
			case SegmentToolUse:
				input := seg.Input
				if input == nil {
					input = map[string]any{}
				}
				raw, err := json.Marshal(input)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal tool input: %w", err)
				}
				blocks = append(blocks, ClaudeBlock{
					Type:  "tool_use",
					ID:    seg.ID,
					Name:  seg.Name,
					Input: raw,
				})
			case SegmentToolResult:
				blocks = append(blocks, ClaudeBlock{
					Type:      "tool_result",
					ToolUseID: seg.ToolUseID,
					Content:   seg.Content,
				})
			default:
				return nil, fmt.Errorf("unsupported segment type %q", seg.Type)
			}
		}
		out = append(out, ClaudeMessage{Role: msg.Role, Content: blocks})
	}
	return out, nil
}

// decodeClaudeContent converts response content blocks to generic segments,
// preserving order. Unknown block types are skipped.
func decodeClaudeContent(blocks []ClaudeBlock) []Segment {
	segments := make([]Segment, 0, len(blocks))
	for _, block := range blocks {
		switch block.Type {
		case "text":
			segments = append(segments, TextSegment(block.Text))
		case "tool_use":
			input := map[string]any{}
			if len(block.Input) > 0 {
				// A malformed input object becomes an empty one; the tool
				// registry substitutes documented defaults.
				_ = json.Unmarshal(block.Input, &input)
			}
			segments = append(segments, ToolUseSegment(block.ID, block.Name, input))
		}
	}
	return segments
}
