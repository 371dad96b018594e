package llm

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/menusweep/internal/model"
)

// NewProvider creates a provider from configuration. An empty provider name disables the digest.
func NewProvider(config Config, logger logrus.FieldLogger) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config, logger)
	case "ollama":
		return NewOllamaProvider(config, logger)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:     c.Provider,
		Model:        c.Model,
		APIKey:       c.APIKey,
		BaseURL:      c.BaseURL,
		Timeout:      c.Timeout,
		StrictPrices: c.StrictPrices,
		MaxTokens:    c.MaxTokens,
	}
}
