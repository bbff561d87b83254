package agents

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"market-insight/models"
	"market-insight/observability"
)

// Item field limits enforced during validation
const (
	maxTitleLen  = 200
	maxDetailLen = 500
	maxSourceLen = 100
)

var newsItemsPattern = regexp.MustCompile(`(?s)\{[^{}]*"news_items"[^{}]*\[[^\]]*\][^{}]*\}`)

// ResponseNormalizer turns free-form model output into a structured
// MarketImpactResult. It tries progressively looser extraction strategies and
// falls back to synthesizing items from raw headlines when the model output is
// unusable.
type ResponseNormalizer struct {
	news NewsFetcher
}

// NewResponseNormalizer creates a normalizer backed by the given news service
func NewResponseNormalizer(news NewsFetcher) *ResponseNormalizer {
	return &ResponseNormalizer{news: news}
}

// Normalize extracts up to limit ranked news items from the model's raw
// response. It never returns an error; when every strategy fails the result
// carries success=false and an empty item list.
func (n *ResponseNormalizer) Normalize(ctx context.Context, raw string, limit int) models.MarketImpactResult {
	metrics := observability.GetMetrics()

	cleaned := stripCodeFences(raw)

	if match := newsItemsPattern.FindString(cleaned); match != "" {
		if result, ok := parseImpactJSON(match, limit); ok {
			metrics.RecordNormalizerOutcome("extracted")
			return result
		}
	}

	if result, ok := parseImpactJSON(cleaned, limit); ok {
		metrics.RecordNormalizerOutcome("parsed")
		return result
	}

	observability.Warn("model response was not parseable, synthesizing from headlines")
	if result, ok := n.synthesizeFromHeadlines(ctx, limit); ok {
		metrics.RecordNormalizerOutcome("synthesized")
		return result
	}

	metrics.RecordNormalizerOutcome("failed")
	return models.MarketImpactResult{
		Success:   false,
		NewsItems: []models.MarketImpactItem{},
		Message:   "Unable to parse agent response or fetch news",
	}
}

// stripCodeFences removes markdown code fence markers from the payload
func stripCodeFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func parseImpactJSON(payload string, limit int) (models.MarketImpactResult, bool) {
	var parsed struct {
		NewsItems []map[string]any `json:"news_items"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return models.MarketImpactResult{}, false
	}
	if parsed.NewsItems == nil {
		return models.MarketImpactResult{}, false
	}

	items := make([]models.MarketImpactItem, 0, len(parsed.NewsItems))
	for _, rawItem := range parsed.NewsItems {
		if len(items) >= limit {
			break
		}
		items = append(items, validateItem(rawItem, len(items)+1))
	}
	if len(items) == 0 {
		// Zero validated items is not a usable result; let the cascade
		// continue to the headline fallback.
		return models.MarketImpactResult{}, false
	}

	return models.MarketImpactResult{Success: true, NewsItems: items}, true
}

// validateItem coerces one raw item into a well-formed MarketImpactItem.
// Ranks are re-derived from position, enums are lowercased with safe
// defaults, and oversized strings are truncated.
func validateItem(raw map[string]any, rank int) models.MarketImpactItem {
	return models.MarketImpactItem{
		Rank:              rank,
		Title:             truncate(stringFieldDefault(raw, "title", "Unknown"), maxTitleLen),
		ImpactLevel:       normalizeEnum(stringField(raw, "impact_level"), models.ImpactLevelMedium, models.ImpactLevelHigh, models.ImpactLevelMedium, models.ImpactLevelLow),
		ImpactDirection:   normalizeEnum(stringField(raw, "impact_direction"), models.ImpactDirectionNeutral, models.ImpactDirectionPositive, models.ImpactDirectionNegative, models.ImpactDirectionNeutral),
		WhyItMatters:      truncate(stringField(raw, "why_it_matters"), maxDetailLen),
		AffectedSectors:   stringListField(raw, "affected_sectors"),
		AffectedCompanies: stringListField(raw, "affected_companies"),
		TradingInsight:    truncate(stringField(raw, "trading_insight"), maxDetailLen),
		Source:            truncate(stringFieldDefault(raw, "source", "Unknown"), maxSourceLen),
	}
}

// synthesizeFromHeadlines builds a best-effort result directly from business
// headlines when the model output could not be parsed
func (n *ResponseNormalizer) synthesizeFromHeadlines(ctx context.Context, limit int) (models.MarketImpactResult, bool) {
	articles, _, err := n.news.GetTopHeadlines(ctx, "business", "us", limit)
	if err != nil || len(articles) == 0 {
		return models.MarketImpactResult{}, false
	}

	items := make([]models.MarketImpactItem, 0, limit)
	for i, article := range articles {
		if i >= limit {
			break
		}
		title := article.Title
		if title == "" {
			title = "No title"
		}
		why := article.Description
		if why == "" {
			why = "Market-moving financial news"
		}
		source := article.Source
		if source == "" {
			source = "Unknown"
		}
		items = append(items, models.MarketImpactItem{
			Rank:              i + 1,
			Title:             truncate(title, maxTitleLen),
			ImpactLevel:       models.ImpactLevelMedium,
			ImpactDirection:   models.ImpactDirectionNeutral,
			WhyItMatters:      truncate(why, maxDetailLen),
			AffectedSectors:   []string{"General"},
			AffectedCompanies: []string{},
			TradingInsight:    "Monitor market reaction to this news",
			Source:            truncate(source, maxSourceLen),
		})
	}

	return models.MarketImpactResult{Success: true, NewsItems: items}, true
}

func stringField(raw map[string]any, key string) string {
	return stringFieldDefault(raw, key, "")
}

func stringFieldDefault(raw map[string]any, key, fallback string) string {
	if v, ok := raw[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func stringListField(raw map[string]any, key string) []string {
	list, ok := raw[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func normalizeEnum(value, fallback string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}

// truncate caps s at max characters, not bytes, so multibyte text is never
// cut mid-rune
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
