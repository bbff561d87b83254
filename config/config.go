package config

import (
	"fmt"
	"os"
	"strconv"
)

// LLM provider names selectable via LLM_PROVIDER
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderBedrock   = "bedrock"
)

// Config holds all application configuration
type Config struct {
	// LLM provider selection and per-provider configuration
	LLMProvider string
	Anthropic   AnthropicConfig
	OpenAI      OpenAIConfig
	Bedrock     BedrockConfig

	// External service configurations
	NewsAPI      NewsAPIConfig
	AlphaVantage AlphaVantageConfig

	// Agent configuration
	Agent AgentConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// AnthropicConfig holds Anthropic API configuration
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// BedrockConfig holds AWS Bedrock configuration
type BedrockConfig struct {
	Region  string
	ModelID string
}

// NewsAPIConfig holds NewsAPI configuration
type NewsAPIConfig struct {
	APIKey  string
	BaseURL string
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey string
}

// AgentConfig holds agent-loop configuration
type AgentConfig struct {
	MaxIterations        int // hard iteration budget for the tool-calling loop
	AnalyzeIterations    int // lowered budget for the narrative analysis path
	TimeoutSeconds       int
	AnalyzeCacheTTLSec   int // TTL for cached narrative analyses
	ImpactCacheTTLSec    int // TTL for cached structured rankings
	Temperature          float64
	StructuredTemp       float64
	MaxTokens            int
	HeadlineFetchCountry string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               string
	CORSAllowedOrigins string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LLMProvider: getEnvString("LLM_PROVIDER", ProviderAnthropic),
		Anthropic: AnthropicConfig{
			APIKey:    os.Getenv("ANTHROPIC_API_KEY"),
			Model:     getEnvString("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens: getEnvInt("ANTHROPIC_MAX_TOKENS", 4096),
		},
		OpenAI: OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     getEnvString("OPENAI_MODEL", "gpt-4o"),
			MaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 4096),
		},
		Bedrock: BedrockConfig{
			Region:  os.Getenv("AWS_REGION"),
			ModelID: os.Getenv("BEDROCK_MODEL_ID"),
		},
		NewsAPI: NewsAPIConfig{
			APIKey:  os.Getenv("NEWS_API_KEY"),
			BaseURL: getEnvString("NEWS_API_URL", "https://newsapi.org/v2"),
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		},
		Agent: AgentConfig{
			MaxIterations:        getEnvInt("AGENT_MAX_ITERATIONS", 10),
			AnalyzeIterations:    getEnvInt("AGENT_ANALYZE_ITERATIONS", 5),
			TimeoutSeconds:       getEnvInt("AGENT_TIMEOUT_SECONDS", 60),
			AnalyzeCacheTTLSec:   getEnvInt("AGENT_ANALYZE_CACHE_TTL_SECONDS", 300),
			ImpactCacheTTLSec:    getEnvInt("AGENT_IMPACT_CACHE_TTL_SECONDS", 120),
			Temperature:          getEnvFloat("AGENT_TEMPERATURE", 0.7),
			StructuredTemp:       getEnvFloat("AGENT_STRUCTURED_TEMPERATURE", 0.3),
			MaxTokens:            getEnvInt("AGENT_MAX_TOKENS", 2048),
			HeadlineFetchCountry: getEnvString("AGENT_HEADLINE_COUNTRY", "us"),
		},
		HTTP: HTTPConfig{
			Port:               getEnvString("PORT", "8000"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderAnthropic, ProviderOpenAI, ProviderBedrock:
	default:
		return fmt.Errorf("LLM_PROVIDER must be one of %s, %s, %s, got %q",
			ProviderAnthropic, ProviderOpenAI, ProviderBedrock, c.LLMProvider)
	}

	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("AGENT_MAX_ITERATIONS must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.AnalyzeIterations <= 0 || c.Agent.AnalyzeIterations > c.Agent.MaxIterations {
		return fmt.Errorf("AGENT_ANALYZE_ITERATIONS must be in 1..%d, got %d",
			c.Agent.MaxIterations, c.Agent.AnalyzeIterations)
	}
	if c.Agent.TimeoutSeconds <= 0 {
		return fmt.Errorf("AGENT_TIMEOUT_SECONDS must be positive, got %d", c.Agent.TimeoutSeconds)
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 1 {
		return fmt.Errorf("AGENT_TEMPERATURE must be between 0 and 1, got %.2f", c.Agent.Temperature)
	}
	if c.Agent.StructuredTemp < 0 || c.Agent.StructuredTemp > 1 {
		return fmt.Errorf("AGENT_STRUCTURED_TEMPERATURE must be between 0 and 1, got %.2f", c.Agent.StructuredTemp)
	}
	if c.Agent.MaxTokens <= 0 {
		return fmt.Errorf("AGENT_MAX_TOKENS must be positive, got %d", c.Agent.MaxTokens)
	}

	return nil
}

// HasAnthropic returns true if Anthropic configuration is available
func (c *Config) HasAnthropic() bool {
	return c.Anthropic.APIKey != ""
}

// HasOpenAI returns true if OpenAI configuration is available
func (c *Config) HasOpenAI() bool {
	return c.OpenAI.APIKey != ""
}

// HasBedrock returns true if Bedrock configuration is available
func (c *Config) HasBedrock() bool {
	return c.Bedrock.Region != "" && c.Bedrock.ModelID != ""
}

// HasNewsAPI returns true if NewsAPI configuration is available
func (c *Config) HasNewsAPI() bool {
	return c.NewsAPI.APIKey != ""
}

// HasAlphaVantage returns true if Alpha Vantage configuration is available
func (c *Config) HasAlphaVantage() bool {
	return c.AlphaVantage.APIKey != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= 0 && parsed <= 1 {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		LLMProvider: ProviderAnthropic,
		Anthropic: AnthropicConfig{
			APIKey:    "",
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
		},
		OpenAI: OpenAIConfig{
			APIKey:    "",
			Model:     "gpt-4o",
			MaxTokens: 4096,
		},
		Bedrock: BedrockConfig{},
		NewsAPI: NewsAPIConfig{
			APIKey:  "",
			BaseURL: "https://newsapi.org/v2",
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey: "",
		},
		Agent: AgentConfig{
			MaxIterations:        10,
			AnalyzeIterations:    5,
			TimeoutSeconds:       60,
			AnalyzeCacheTTLSec:   300,
			ImpactCacheTTLSec:    120,
			Temperature:          0.7,
			StructuredTemp:       0.3,
			MaxTokens:            2048,
			HeadlineFetchCountry: "us",
		},
		HTTP: HTTPConfig{
			Port:               "8000",
			CORSAllowedOrigins: "*",
		},
	}
}
