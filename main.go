package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-insight/agents"
	"market-insight/config"
	"market-insight/observability"
	"market-insight/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		observability.Info("no .env file found, using environment variables")
	}

	observability.InitLogger(os.Getenv("ENV") == "production")
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	llm, err := newCompletionClient(ctx, cfg)
	if err != nil {
		observability.Fatal("failed to initialize model client", "provider", cfg.LLMProvider, "error", err)
	}

	if !cfg.HasNewsAPI() {
		observability.Warn("NewsAPI key not set, news tools will return errors")
	}
	newsService := services.NewNewsAPIService(cfg.NewsAPI.APIKey, cfg.NewsAPI.BaseURL)

	var stockService services.AlphaVantageServiceInterface
	if cfg.HasAlphaVantage() {
		stockService = services.NewAlphaVantageService(cfg.AlphaVantage.APIKey)
	} else {
		observability.Warn("Alpha Vantage API key not set, stock quotes disabled")
	}

	apiAgent := agents.NewAPIAgent(cfg, llm, newsService)
	handler := NewAPIHandler(apiAgent, stockService, cfg)
	router := NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		observability.Info("starting server", "port", cfg.HTTP.Port, "provider", cfg.LLMProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}

	observability.Info("server stopped")
}

// newCompletionClient builds the model client for the configured provider
func newCompletionClient(ctx context.Context, cfg *config.Config) (services.CompletionClient, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return services.NewOpenAIService(cfg)
	case config.ProviderBedrock:
		return services.NewBedrockService(ctx, cfg.Bedrock.Region, cfg.Bedrock.ModelID, cfg.Agent.MaxTokens)
	default:
		return services.NewAnthropicService(cfg)
	}
}
