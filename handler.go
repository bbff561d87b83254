package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"market-insight/agents"
	"market-insight/config"
	"market-insight/services"

	"github.com/go-chi/chi/v5"
)

// APIHandler handles HTTP API requests
type APIHandler struct {
	agent  *agents.APIAgent
	stocks services.AlphaVantageServiceInterface
	cfg    *config.Config
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(agent *agents.APIAgent, stocks services.AlphaVantageServiceInterface, cfg *config.Config) *APIHandler {
	return &APIHandler{agent: agent, stocks: stocks, cfg: cfg}
}

// handleHealth returns the health status of the application
func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	servicesStatus := map[string]string{
		"llm_provider": h.cfg.LLMProvider,
		"news_api":     "not_configured",
		"market_data":  "not_configured",
	}
	if h.cfg.HasNewsAPI() {
		servicesStatus["news_api"] = "configured"
	}
	if h.cfg.HasAlphaVantage() {
		servicesStatus["market_data"] = "configured"
	}

	h.jsonResponse(w, map[string]interface{}{
		"status":           "ok",
		"services":         servicesStatus,
		"circuit_breakers": services.GetGlobalRegistry().Status(),
	})
}

// handleAnalyzeNewsPath analyzes news for a query given as a path parameter
func (h *APIHandler) handleAnalyzeNewsPath(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	h.analyzeNews(w, r, query)
}

// handleAnalyzeNewsGet analyzes news for a query given as a query parameter
func (h *APIHandler) handleAnalyzeNewsGet(w http.ResponseWriter, r *http.Request) {
	h.analyzeNews(w, r, r.URL.Query().Get("query"))
}

// handleAnalyzeNewsPost analyzes news for a query given in a JSON body
func (h *APIHandler) handleAnalyzeNewsPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Try form value
		req.Query = r.FormValue("query")
	}

	h.analyzeNews(w, r, req.Query)
}

func (h *APIHandler) analyzeNews(w http.ResponseWriter, r *http.Request, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		h.jsonError(w, "Query is required", http.StatusBadRequest)
		return
	}

	analysis := h.agent.AnalyzeMarketNews(r.Context(), query)

	h.jsonResponse(w, map[string]string{
		"analysis": analysis,
		"query":    query,
	})
}

// handleMarketImpact returns a structured ranking of the most impactful news
func (h *APIHandler) handleMarketImpact(w http.ResponseWriter, r *http.Request) {
	limit := h.parseLimitParam(r, 10)
	if limit > 50 {
		limit = 50
	}

	result := h.agent.FindMarketImpactNews(r.Context(), limit)

	h.jsonResponse(w, result)
}

// handleGetQuote returns the latest quote for a stock symbol
func (h *APIHandler) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	if h.stocks == nil {
		h.jsonError(w, "Market data service not configured", http.StatusServiceUnavailable)
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if err := h.validateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	quote, err := h.stocks.GetQuote(r.Context(), symbol)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.jsonResponse(w, quote)
}

// Helper functions

func (h *APIHandler) validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	matched, _ := regexp.MatchString("^[A-Z0-9.-]+$", symbol)
	if !matched {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

func (h *APIHandler) parseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *APIHandler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *APIHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
