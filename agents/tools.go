package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"market-insight/models"
	"market-insight/observability"
	"market-insight/services"
)

const (
	toolTopHeadlines = "fetch_top_financial_headlines"
	toolSearchNews   = "search_financial_news"
	toolStockNews    = "fetch_stock_news"

	defaultPageSize = 20
	maxPageSize     = 100
)

// ToolRegistry exposes the news tools available to the agent loop and
// dispatches tool calls requested by the model.
type ToolRegistry struct {
	news    NewsFetcher
	country string
}

// NewToolRegistry creates a registry backed by the given news service.
// Headline fetches are pinned to the given country ("us" when empty).
func NewToolRegistry(news NewsFetcher, country string) *ToolRegistry {
	if country == "" {
		country = "us"
	}
	return &ToolRegistry{news: news, country: country}
}

// List returns the tool definitions advertised to the model
func (r *ToolRegistry) List() []services.ToolDefinition {
	return []services.ToolDefinition{
		{
			Name:        toolTopHeadlines,
			Description: "Fetch the current top financial and business news headlines. Use this to get a broad view of what is happening in the markets right now.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category": map[string]any{
						"type":        "string",
						"enum":        []string{"business", "technology", "general"},
						"description": "News category to fetch. Defaults to business.",
					},
					"page_size": map[string]any{
						"type":        "integer",
						"description": "Number of headlines to fetch, up to 100. Defaults to 20.",
					},
				},
			},
		},
		{
			Name:        toolSearchNews,
			Description: "Search financial news articles for a specific topic, keyword, or phrase. Use this when the user asks about a particular subject.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Search terms describing the topic to look up.",
					},
					"page_size": map[string]any{
						"type":        "integer",
						"description": "Number of articles to fetch, up to 100. Defaults to 20.",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        toolStockNews,
			Description: "Fetch recent news about a specific stock by ticker symbol. Use this when the user asks about a particular company or ticker.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{
						"type":        "string",
						"description": "Stock ticker symbol, for example AAPL or TSLA.",
					},
					"page_size": map[string]any{
						"type":        "integer",
						"description": "Number of articles to fetch, up to 100. Defaults to 20.",
					},
				},
				"required": []string{"symbol"},
			},
		},
	}
}

// Execute runs the named tool and returns its result serialized as JSON.
// Failures are encoded into the result payload so the agent loop can feed
// them back to the model instead of aborting the run.
func (r *ToolRegistry) Execute(ctx context.Context, name string, input map[string]any) string {
	metrics := observability.GetMetrics()

	var payload map[string]any
	switch name {
	case toolTopHeadlines:
		payload = r.executeTopHeadlines(ctx, input)
	case toolSearchNews:
		payload = r.executeSearchNews(ctx, input)
	case toolStockNews:
		payload = r.executeStockNews(ctx, input)
	default:
		observability.Warn("unknown tool requested", "tool", name)
		metrics.RecordToolExecution(name, "unknown")
		return encodeToolResult(map[string]any{"error": fmt.Sprintf("Unknown tool: %s", name)})
	}

	if _, failed := payload["error"]; failed {
		metrics.RecordToolExecution(name, "error")
	} else {
		metrics.RecordToolExecution(name, "success")
	}
	return encodeToolResult(payload)
}

func (r *ToolRegistry) executeTopHeadlines(ctx context.Context, input map[string]any) map[string]any {
	category := stringParam(input, "category", "business")
	pageSize := intParam(input, "page_size", defaultPageSize)

	articles, total, err := r.news.GetTopHeadlines(ctx, category, r.country, pageSize)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return successPayload(articles, total)
}

func (r *ToolRegistry) executeSearchNews(ctx context.Context, input map[string]any) map[string]any {
	query := stringParam(input, "query", "")
	pageSize := intParam(input, "page_size", defaultPageSize)

	articles, total, err := r.news.SearchNews(ctx, query, pageSize)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	payload := successPayload(articles, total)
	payload["query"] = query
	return payload
}

func (r *ToolRegistry) executeStockNews(ctx context.Context, input map[string]any) map[string]any {
	symbol := strings.ToUpper(strings.TrimSpace(stringParam(input, "symbol", "")))
	pageSize := intParam(input, "page_size", defaultPageSize)

	articles, total, err := r.news.GetStockNews(ctx, symbol, pageSize)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	payload := successPayload(articles, total)
	payload["symbol"] = symbol
	return payload
}

func successPayload(articles []models.NewsArticle, total int) map[string]any {
	items := make([]map[string]any, 0, len(articles))
	for _, a := range articles {
		items = append(items, map[string]any{
			"title":       a.Title,
			"description": a.Description,
			"source":      a.Source,
			"publishedAt": a.PublishedAt,
			"url":         a.URL,
		})
	}
	return map[string]any{
		"status":        "success",
		"total_results": total,
		"articles":      items,
	}
}

func encodeToolResult(payload map[string]any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

func stringParam(input map[string]any, key, fallback string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intParam(input map[string]any, key string, fallback int) int {
	var n int
	switch v := input[key].(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	default:
		return fallback
	}
	if n <= 0 {
		return fallback
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}
