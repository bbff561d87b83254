package services

import "context"

// Message roles in an agent conversation
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SegmentType discriminates the variants of a message segment
type SegmentType string

// Segment variants
const (
	SegmentText       SegmentType = "text"
	SegmentToolUse    SegmentType = "tool_use"
	SegmentToolResult SegmentType = "tool_result"
)

// Segment is one piece of message content: plain text, a tool invocation
// requested by the model, or the result of executing one. Only the fields
// for the active variant are set.
type Segment struct {
	Type SegmentType

	// text
	Text string

	// tool_use
	ID    string
	Name  string
	Input map[string]any

	// tool_result
	ToolUseID string
	Content   string
}

// TextSegment creates a text segment
func TextSegment(text string) Segment {
	return Segment{Type: SegmentText, Text: text}
}

// ToolUseSegment creates a tool invocation request segment
func ToolUseSegment(id, name string, input map[string]any) Segment {
	return Segment{Type: SegmentToolUse, ID: id, Name: name, Input: input}
}

// ToolResultSegment creates a tool result segment. Content is a JSON-serialized
// success or error payload; errors travel as data, never as Go errors.
func ToolResultSegment(toolUseID, content string) Segment {
	return Segment{Type: SegmentToolResult, ToolUseID: toolUseID, Content: content}
}

// Message is one turn of an agent conversation, an ordered sequence of segments
type Message struct {
	Role    string
	Content []Segment
}

// UserMessage creates a user message with a single text segment
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []Segment{TextSegment(text)}}
}

// ToolResultsMessage creates the user-role message carrying tool results
// back to the model
func ToolResultsMessage(results []Segment) Message {
	return Message{Role: RoleUser, Content: results}
}

// Text concatenates all text segments of the message, in order
func (m Message) Text() string {
	var out string
	for _, seg := range m.Content {
		if seg.Type == SegmentText {
			out += seg.Text
		}
	}
	return out
}

// ToolDefinition describes a callable operation the model may invoke.
// InputSchema is a JSON-schema object ({"type":"object","properties":...}).
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// CompletionRequest is one chat-completion call to a hosted language model
type CompletionRequest struct {
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// CompletionClient is the boundary abstraction over a hosted language-model
// completion endpoint. Implementations return the model's response content as
// an ordered sequence of text and tool_use segments.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) ([]Segment, error)
	Name() string
}
