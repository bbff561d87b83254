package agents

import (
	"context"
	"fmt"
	"strings"

	"market-insight/observability"
	"market-insight/services"
)

// Sentinel responses returned when a run terminates without model text
const (
	msgCompletedEmpty    = "Agent completed without response."
	msgBudgetExceeded    = "Agent reached maximum iterations without completing."
	defaultMaxIterations = 10
)

// RunOptions control a single agent run
type RunOptions struct {
	System        string
	MaxIterations int
	Temperature   float64
	MaxTokens     int
}

// AgentRunner drives the tool-calling conversation loop: it sends the
// conversation to the model, executes any tools the model requests, feeds the
// results back, and repeats until the model answers in plain text or the
// iteration budget runs out.
type AgentRunner struct {
	llm      CompletionClient
	registry *ToolRegistry
}

// NewAgentRunner creates a runner over the given model client and tool registry
func NewAgentRunner(llm CompletionClient, registry *ToolRegistry) *AgentRunner {
	return &AgentRunner{llm: llm, registry: registry}
}

// Run executes the agent loop for a single user message and returns the
// model's final text. Model call failures abort the run; tool failures are
// encoded into tool results and the loop continues.
func (a *AgentRunner) Run(ctx context.Context, userMessage string, opts RunOptions) (string, error) {
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	history := []services.Message{services.UserMessage(userMessage)}

	for iteration := 1; iteration <= maxIterations; iteration++ {
		segments, err := a.llm.Complete(ctx, services.CompletionRequest{
			System:      opts.System,
			Messages:    history,
			Tools:       a.registry.List(),
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		})
		if err != nil {
			observability.Error("model call failed", "provider", a.llm.Name(),
				"iteration", iteration, "error", err)
			observability.GetMetrics().RecordAgentIterations("error", iteration)
			return "", fmt.Errorf("completion failed on iteration %d: %w", iteration, err)
		}

		var toolUses []services.Segment
		var texts []string
		for _, seg := range segments {
			switch seg.Type {
			case services.SegmentToolUse:
				toolUses = append(toolUses, seg)
			case services.SegmentText:
				texts = append(texts, seg.Text)
			}
		}

		if len(toolUses) == 0 {
			observability.GetMetrics().RecordAgentIterations("done", iteration)
			final := strings.Join(texts, "")
			if final == "" {
				return msgCompletedEmpty, nil
			}
			return final, nil
		}

		history = append(history, services.Message{Role: services.RoleAssistant, Content: segments})

		results := make([]services.Segment, 0, len(toolUses))
		for _, use := range toolUses {
			observability.Debug("executing tool", "tool", use.Name, "iteration", iteration)
			content := a.registry.Execute(ctx, use.Name, use.Input)
			results = append(results, services.ToolResultSegment(use.ID, content))
		}
		history = append(history, services.ToolResultsMessage(results))
	}

	// The final history message is always the tool-results turn, so there is
	// no model text to salvage here.
	observability.Warn("agent run exhausted iteration budget",
		"max_iterations", maxIterations)
	observability.GetMetrics().RecordAgentIterations("budget_exceeded", maxIterations)
	return msgBudgetExceeded, nil
}
