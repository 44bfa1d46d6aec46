package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// LLM settings
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Storage
	DBPath string `env:"CHAT_DB_PATH" envDefault:"chatbot.db"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`

	// Tools
	AlphaVantageAPIKey string        `env:"ALPHAVANTAGE_API_KEY"`
	ToolHTTPTimeout    time.Duration `env:"TOOL_HTTP_TIMEOUT" envDefault:"10s"`

	// Engine
	EngineTimeout time.Duration `env:"ENGINE_TIMEOUT" envDefault:"120s"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
