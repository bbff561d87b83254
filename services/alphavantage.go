package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"market-insight/models"
	"market-insight/observability"

	"github.com/shopspring/decimal"
)

// AlphaVantageService handles communication with the Alpha Vantage API
type AlphaVantageService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewAlphaVantageService creates a new AlphaVantageService instance
func NewAlphaVantageService(apiKey string) *AlphaVantageService {
	return &AlphaVantageService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://www.alphavantage.co/query",
	}
}

// QuoteResponse represents a quote from Alpha Vantage
type QuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Open          string `json:"02. open"`
		High          string `json:"03. high"`
		Low           string `json:"04. low"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		LatestDay     string `json:"07. latest trading day"`
		PrevClose     string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// GetQuote returns the latest quote for a symbol
func (s *AlphaVantageService) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlphaVantage, "global_quote")
	timer := metrics.NewTimer()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	var quote *models.Quote
	err := WithRetry(ctx, DefaultRetryConfig, func() error {
		params := url.Values{}
		params.Set("function", "GLOBAL_QUOTE")
		params.Set("symbol", symbol)
		params.Set("apikey", s.apiKey)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch quote: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("Alpha Vantage returned status %d", resp.StatusCode)
		}

		var quoteResp QuoteResponse
		if err := json.NewDecoder(resp.Body).Decode(&quoteResp); err != nil {
			return fmt.Errorf("failed to decode quote: %w", err)
		}

		if quoteResp.GlobalQuote.Symbol == "" {
			return fmt.Errorf("no quote data for symbol %s", symbol)
		}

		open, _ := decimal.NewFromString(quoteResp.GlobalQuote.Open)
		high, _ := decimal.NewFromString(quoteResp.GlobalQuote.High)
		low, _ := decimal.NewFromString(quoteResp.GlobalQuote.Low)
		price, _ := decimal.NewFromString(quoteResp.GlobalQuote.Price)
		prevClose, _ := decimal.NewFromString(quoteResp.GlobalQuote.PrevClose)
		change, _ := decimal.NewFromString(quoteResp.GlobalQuote.Change)

		var volume int64
		if quoteResp.GlobalQuote.Volume != "" {
			volume, err = strconv.ParseInt(quoteResp.GlobalQuote.Volume, 10, 64)
			if err != nil {
				observability.Warn("failed to parse quote volume",
					"volume", quoteResp.GlobalQuote.Volume, "error", err)
			}
		}

		quote = &models.Quote{
			Symbol:        symbol,
			Open:          open,
			High:          high,
			Low:           low,
			Last:          price,
			PrevClose:     prevClose,
			Change:        change,
			ChangePercent: quoteResp.GlobalQuote.ChangePercent,
			Volume:        volume,
			Timestamp:     time.Now(),
		}

		return nil
	})

	timer.ObserveExternalAPI(BreakerAlphaVantage, "global_quote")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlphaVantage, "global_quote", categorizeAPIError(err))
		return nil, err
	}

	return quote, nil
}
