package models

import "time"

// NewsArticle represents a single news article returned by the news backend
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Impact levels for a market impact item
const (
	ImpactLevelHigh   = "high"
	ImpactLevelMedium = "medium"
	ImpactLevelLow    = "low"
)

// Impact directions for a market impact item
const (
	ImpactDirectionPositive = "positive"
	ImpactDirectionNegative = "negative"
	ImpactDirectionNeutral  = "neutral"
)

// MarketImpactItem is one ranked news item with its market impact assessment
type MarketImpactItem struct {
	Rank              int      `json:"rank"`
	Title             string   `json:"title"`
	ImpactLevel       string   `json:"impact_level"`
	ImpactDirection   string   `json:"impact_direction"`
	WhyItMatters      string   `json:"why_it_matters"`
	AffectedSectors   []string `json:"affected_sectors"`
	AffectedCompanies []string `json:"affected_companies"`
	TradingInsight    string   `json:"trading_insight"`
	Source            string   `json:"source"`
}

// MarketImpactResult is the normalized outcome of a market impact analysis
type MarketImpactResult struct {
	Success     bool               `json:"success"`
	NewsItems   []MarketImpactItem `json:"news_items"`
	Message     string             `json:"message,omitempty"`
	AnalysisID  string             `json:"analysis_id,omitempty"`
	GeneratedAt time.Time          `json:"generated_at,omitempty"`
}
