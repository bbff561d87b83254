package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"market-insight/config"
	"market-insight/models"
	"market-insight/observability"
	"market-insight/services"

	"github.com/google/uuid"
)

const analyzeSystemPrompt = `You are an expert financial analyst AI agent. Your role is to:
1. Use available tools to fetch relevant financial news based on user queries
2. Analyze the fetched news to identify market-moving events
3. Provide comprehensive insights in a structured format

IMPORTANT: Format your response using markdown-style structure that the frontend can parse:
- Use section headers: "### 1. Most Impactful News Items" or "1. Most Impactful News Items"
- Use numbered items with bold titles: "1. **News Title**" followed by description
- Use bullet points for details: "* Why it matters: ..." or "- Impact: ..."
- Use clear paragraphs for explanations

Structure your response with these sections:
1. Most Impactful News Items and Why They Matter
2. Which Companies or Sectors Are Affected
3. Potential Market Impact (high/medium/low) and Direction (positive/negative)
4. Actionable Insights for Traders

IMPORTANT: Be concise and efficient. Use tools only when necessary. Complete your analysis quickly.`

const structuredSystemPrompt = "You are a financial analyst. Return only valid JSON."

// errEmptyAnalysis marks an agent run that finished without producing text
var errEmptyAnalysis = errors.New("agent produced no analysis")

// APIAgent is the application-facing entry point for agent-driven news
// analysis. It composes the agent loop, the tool registry, the response
// normalizer, and a TTL result cache.
type APIAgent struct {
	cfg        *config.Config
	llm        CompletionClient
	news       NewsFetcher
	runner     *AgentRunner
	normalizer *ResponseNormalizer
	cache      *ResultCache
}

// NewAPIAgent wires an APIAgent over the given model client and news service
func NewAPIAgent(cfg *config.Config, llm CompletionClient, news NewsFetcher) *APIAgent {
	registry := NewToolRegistry(news, cfg.Agent.HeadlineFetchCountry)
	return &APIAgent{
		cfg:        cfg,
		llm:        llm,
		news:       news,
		runner:     NewAgentRunner(llm, registry),
		normalizer: NewResponseNormalizer(news),
		cache:      NewResultCache(),
	}
}

// AnalyzeMarketNews runs the agent loop over a free-form query and returns a
// narrative markdown analysis. It never returns an error; failures are folded
// into the returned text.
func (a *APIAgent) AnalyzeMarketNews(ctx context.Context, query string) string {
	metrics := observability.GetMetrics()
	metrics.RecordAgentRun("analyze")
	timer := metrics.NewTimer()

	cacheKey := "analyze_" + strings.ToLower(strings.TrimSpace(query))
	ttl := time.Duration(a.cfg.Agent.AnalyzeCacheTTLSec) * time.Second

	value, err := a.cache.GetOrCompute(ctx, "analyze", cacheKey, ttl, func(ctx context.Context) (any, error) {
		response, err := a.runner.Run(ctx, query, RunOptions{
			System:        analyzeSystemPrompt,
			MaxIterations: a.cfg.Agent.AnalyzeIterations,
			Temperature:   a.cfg.Agent.Temperature,
			MaxTokens:     a.cfg.Agent.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(response) == "" {
			return nil, errEmptyAnalysis
		}
		return response, nil
	})
	if errors.Is(err, errEmptyAnalysis) {
		timer.ObserveAgentRun("analyze", "empty")
		return "No analysis could be generated. Please try a different query."
	}
	if err != nil {
		observability.WithQuery(query).Error("market news analysis failed", "error", err)
		metrics.RecordAgentError("analyze", "run_failed")
		timer.ObserveAgentRun("analyze", "error")
		return "Error during agent analysis: " + truncate(err.Error(), 200)
	}

	timer.ObserveAgentRun("analyze", "success")
	return value.(string)
}

// FindMarketImpactNews returns a structured ranking of the most impactful
// current financial news. It fetches headlines directly, asks the model for a
// single structured completion, and falls back to the agent loop when that
// call fails. The result is always well-formed; it never returns an error.
func (a *APIAgent) FindMarketImpactNews(ctx context.Context, limit int) models.MarketImpactResult {
	if limit <= 0 {
		limit = 10
	}

	metrics := observability.GetMetrics()
	metrics.RecordAgentRun("market_impact")
	timer := metrics.NewTimer()

	cacheKey := fmt.Sprintf("market_impact_%d", limit)
	ttl := time.Duration(a.cfg.Agent.ImpactCacheTTLSec) * time.Second

	if cached, ok := a.cache.Get(cacheKey); ok {
		metrics.RecordCacheLookup("market_impact", "hit")
		timer.ObserveAgentRun("market_impact", "cached")
		return cached.(models.MarketImpactResult)
	}
	metrics.RecordCacheLookup("market_impact", "miss")

	articles := a.fetchImpactHeadlines(ctx, limit)
	if len(articles) == 0 {
		timer.ObserveAgentRun("market_impact", "no_news")
		return models.MarketImpactResult{
			Success:   false,
			Message:   "No news articles found.",
			NewsItems: []models.MarketImpactItem{},
		}
	}

	response := a.requestStructuredRanking(ctx, articles, limit)

	result := a.normalizer.Normalize(ctx, response, limit)
	result.AnalysisID = uuid.New().String()
	result.GeneratedAt = time.Now().UTC()

	if result.Success {
		a.cache.Put(cacheKey, result, ttl)
		timer.ObserveAgentRun("market_impact", "success")
	} else {
		metrics.RecordAgentError("market_impact", "normalize_failed")
		timer.ObserveAgentRun("market_impact", "error")
	}
	return result
}

// fetchImpactHeadlines pulls twice the requested number of business headlines
// so the model has room to choose, retrying without a category filter when
// the business feed comes back empty
func (a *APIAgent) fetchImpactHeadlines(ctx context.Context, limit int) []models.NewsArticle {
	country := a.cfg.Agent.HeadlineFetchCountry

	articles, _, err := a.news.GetTopHeadlines(ctx, "business", country, limit*2)
	if err != nil {
		observability.Warn("business headline fetch failed", "error", err)
	}
	if len(articles) == 0 {
		articles, _, err = a.news.GetTopHeadlines(ctx, "", country, limit*2)
		if err != nil {
			observability.Warn("uncategorized headline fetch failed", "error", err)
		}
	}
	if len(articles) > limit*2 {
		articles = articles[:limit*2]
	}
	return articles
}

// requestStructuredRanking asks the model once for a JSON ranking of the
// given articles, falling back to a short agent-loop run if the direct call
// errors. The returned string is raw model output for the normalizer.
func (a *APIAgent) requestStructuredRanking(ctx context.Context, articles []models.NewsArticle, limit int) string {
	prompt := buildImpactPrompt(articles, limit)

	segments, err := a.llm.Complete(ctx, services.CompletionRequest{
		System:      structuredSystemPrompt,
		Messages:    []services.Message{services.UserMessage(prompt)},
		Temperature: a.cfg.Agent.StructuredTemp,
		MaxTokens:   a.cfg.Agent.MaxTokens,
	})
	if err == nil {
		var text strings.Builder
		for _, seg := range segments {
			if seg.Type == services.SegmentText {
				text.WriteString(seg.Text)
			}
		}
		return text.String()
	}

	observability.Warn("direct ranking call failed, falling back to agent loop", "error", err)
	response, loopErr := a.runner.Run(ctx, impactLoopQuery(limit), RunOptions{
		System:        impactLoopSystemPrompt(limit),
		MaxIterations: 3,
		Temperature:   a.cfg.Agent.StructuredTemp,
		MaxTokens:     a.cfg.Agent.MaxTokens,
	})
	if loopErr != nil {
		observability.Error("agent-loop ranking fallback failed", "error", loopErr)
		return ""
	}
	return response
}

const impactItemSchema = `{
  "news_items": [
    {
      "rank": 1,
      "title": "News headline",
      "impact_level": "high|medium|low",
      "impact_direction": "positive|negative|neutral",
      "why_it_matters": "Brief explanation",
      "affected_sectors": ["sector1"],
      "affected_companies": ["company1"],
      "trading_insight": "Actionable insight",
      "source": "source name"
    }
  ]
}`

func buildImpactPrompt(articles []models.NewsArticle, limit int) string {
	var summary strings.Builder
	for i, art := range articles {
		if i > 0 {
			summary.WriteString("\n\n")
		}
		fmt.Fprintf(&summary, "Article %d:\nTitle: %s\nDescription: %s\nSource: %s\nPublished: %s",
			i+1, orNA(art.Title), orNA(art.Description), orNA(art.Source),
			art.PublishedAt.Format(time.RFC3339))
	}

	return fmt.Sprintf(`Analyze the following financial news articles and return ONLY a JSON object with this exact structure:

%s

News Articles:
%s

Return ONLY valid JSON, no markdown, no explanations. Select the top %d most impactful items.`,
		impactItemSchema, summary.String(), limit)
}

func impactLoopSystemPrompt(limit int) string {
	return fmt.Sprintf(`You are a financial news analysis agent. Your task is to:
1. Fetch top financial headlines using the fetch_top_financial_headlines tool
2. Analyze the news to identify the top %d most impactful items
3. Return your analysis as a JSON object with this EXACT structure:

%s

CRITICAL: Return ONLY valid JSON. No markdown, no explanations, no code blocks. Just the JSON object.
Ensure you return exactly %d news items, properly formatted as valid JSON.`, limit, impactItemSchema, limit)
}

func impactLoopQuery(limit int) string {
	return fmt.Sprintf("Find and analyze the top %d most impactful financial news items that could significantly affect stock markets. Fetch the latest headlines and return the analysis as a JSON object with the exact structure specified.", limit)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
