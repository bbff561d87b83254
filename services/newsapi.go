package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"market-insight/models"
	"market-insight/observability"
)

// NewsAPIService handles communication with NewsAPI.org
type NewsAPIService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewNewsAPIService creates a new NewsAPIService instance
func NewNewsAPIService(apiKey, baseURL string) *NewsAPIService {
	if baseURL == "" {
		baseURL = "https://newsapi.org/v2"
	}
	return &NewsAPIService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// NewsAPIResponse represents the response from NewsAPI
type NewsAPIResponse struct {
	Status       string `json:"status"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

func clampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return 20
	}
	if pageSize > 100 {
		return 100
	}
	return pageSize
}

// GetTopHeadlines returns top headlines for a category and country. An empty
// category fetches headlines across all categories.
func (s *NewsAPIService) GetTopHeadlines(ctx context.Context, category, country string, pageSize int) ([]models.NewsArticle, int, error) {
	params := url.Values{}
	params.Set("pageSize", fmt.Sprintf("%d", clampPageSize(pageSize)))
	if category != "" {
		params.Set("category", category)
	}
	if country != "" {
		params.Set("country", country)
	}

	return s.fetch(ctx, "top_headlines", "/top-headlines?"+params.Encode())
}

// SearchNews searches financial news articles matching the query. The query is
// augmented with finance terms to keep results market-relevant; an empty query
// falls back to business headlines.
func (s *NewsAPIService) SearchNews(ctx context.Context, query string, pageSize int) ([]models.NewsArticle, int, error) {
	if query == "" {
		return s.GetTopHeadlines(ctx, "business", "us", pageSize)
	}

	params := url.Values{}
	params.Set("q", query+" finance OR stock OR market OR trading")
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprintf("%d", clampPageSize(pageSize)))

	return s.fetch(ctx, "everything", "/everything?"+params.Encode())
}

// GetStockNews returns news specific to a stock ticker symbol
func (s *NewsAPIService) GetStockNews(ctx context.Context, symbol string, pageSize int) ([]models.NewsArticle, int, error) {
	params := url.Values{}
	params.Set("q", symbol+" stock OR company OR earnings")
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprintf("%d", clampPageSize(pageSize)))

	return s.fetch(ctx, "everything", "/everything?"+params.Encode())
}

func (s *NewsAPIService) fetch(ctx context.Context, operation, path string) ([]models.NewsArticle, int, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerNewsAPI, operation)
	timer := metrics.NewTimer()

	var articles []models.NewsArticle
	var totalResults int

	err := WithRetry(ctx, DefaultRetryConfig, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-Api-Key", s.apiKey)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch news: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("NewsAPI returned status %d", resp.StatusCode)
		}

		var newsResp NewsAPIResponse
		if err := json.NewDecoder(resp.Body).Decode(&newsResp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		totalResults = newsResp.TotalResults
		articles = make([]models.NewsArticle, 0, len(newsResp.Articles))
		for _, item := range newsResp.Articles {
			publishedAt, err := time.Parse(time.RFC3339, item.PublishedAt)
			if err != nil {
				observability.Warn("failed to parse article timestamp, using current time",
					"published_at", item.PublishedAt, "error", err)
				publishedAt = time.Now()
			}

			articles = append(articles, models.NewsArticle{
				Title:       item.Title,
				Description: item.Description,
				URL:         item.URL,
				Source:      item.Source.Name,
				Author:      item.Author,
				ImageURL:    item.URLToImage,
				PublishedAt: publishedAt,
			})
		}

		return nil
	})

	timer.ObserveExternalAPI(BreakerNewsAPI, operation)
	if err != nil {
		metrics.RecordExternalAPIError(BreakerNewsAPI, operation, categorizeAPIError(err))
		return nil, 0, err
	}

	return articles, totalResults, nil
}
