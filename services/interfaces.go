package services

import (
	"context"

	"market-insight/models"
)

// NewsAPIServiceInterface defines the contract for news retrieval
type NewsAPIServiceInterface interface {
	GetTopHeadlines(ctx context.Context, category, country string, pageSize int) ([]models.NewsArticle, int, error)
	SearchNews(ctx context.Context, query string, pageSize int) ([]models.NewsArticle, int, error)
	GetStockNews(ctx context.Context, symbol string, pageSize int) ([]models.NewsArticle, int, error)
}

// AlphaVantageServiceInterface defines the contract for market data retrieval
type AlphaVantageServiceInterface interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// Compile-time interface checks
var _ NewsAPIServiceInterface = (*NewsAPIService)(nil)
var _ AlphaVantageServiceInterface = (*AlphaVantageService)(nil)
var _ CompletionClient = (*AnthropicService)(nil)
var _ CompletionClient = (*BedrockService)(nil)
var _ CompletionClient = (*OpenAIService)(nil)
