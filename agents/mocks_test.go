package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-insight/models"
	"market-insight/services"
)

var errTest = errors.New("news backend unavailable")

// mockCompletionClient returns scripted responses in order and records
// every request it receives
type mockCompletionClient struct {
	responses [][]services.Segment
	err       error
	errAtCall int // 1-based call index that returns err; 0 means every call
	calls     int
	requests  []services.CompletionRequest
}

func (m *mockCompletionClient) Complete(ctx context.Context, req services.CompletionRequest) ([]services.Segment, error) {
	m.calls++
	m.requests = append(m.requests, req)

	if m.err != nil && (m.errAtCall == 0 || m.errAtCall == m.calls) {
		return nil, m.err
	}

	if len(m.responses) == 0 {
		return []services.Segment{services.TextSegment("done")}, nil
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func (m *mockCompletionClient) Name() string {
	return "mock"
}

// mockNewsService returns canned articles and records the calls made
type mockNewsService struct {
	articles []models.NewsArticle
	total    int
	err      error

	headlineCalls     []string // categories requested, in order
	headlineCountries []string
	searchQueries     []string
	stockSymbols      []string
	pageSizes         []int
}

func (m *mockNewsService) GetTopHeadlines(ctx context.Context, category, country string, pageSize int) ([]models.NewsArticle, int, error) {
	m.headlineCalls = append(m.headlineCalls, category)
	m.headlineCountries = append(m.headlineCountries, country)
	m.pageSizes = append(m.pageSizes, pageSize)
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.articles, m.total, nil
}

func (m *mockNewsService) SearchNews(ctx context.Context, query string, pageSize int) ([]models.NewsArticle, int, error) {
	m.searchQueries = append(m.searchQueries, query)
	m.pageSizes = append(m.pageSizes, pageSize)
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.articles, m.total, nil
}

func (m *mockNewsService) GetStockNews(ctx context.Context, symbol string, pageSize int) ([]models.NewsArticle, int, error) {
	m.stockSymbols = append(m.stockSymbols, symbol)
	m.pageSizes = append(m.pageSizes, pageSize)
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.articles, m.total, nil
}

func sampleArticles(n int) []models.NewsArticle {
	articles := make([]models.NewsArticle, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, models.NewsArticle{
			Title:       fmt.Sprintf("Headline %d", i+1),
			Description: fmt.Sprintf("Description %d", i+1),
			Source:      "Test Wire",
			URL:         fmt.Sprintf("https://example.com/%d", i+1),
			PublishedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		})
	}
	return articles
}
