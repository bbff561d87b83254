package agents

import "market-insight/services"

// CompletionClient is the model client used by the agent loop.
type CompletionClient = services.CompletionClient

// NewsFetcher is the news backend used by the agent tools.
type NewsFetcher = services.NewsAPIServiceInterface
