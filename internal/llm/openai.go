package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// ErrUngroundedPrice is returned when a digest quotes a price that was not scanned
var ErrUngroundedPrice = errors.New("digest quoted a price not on the menu")

// OpenAIProvider implements Provider against the Chat Completions API.
// Ollama is served through its OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	config Config
	name   string
	logger logrus.FieldLogger
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config, logger logrus.FieldLogger) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return newChatProvider("openai", config, logger), nil
}

// NewOllamaProvider targets a local Ollama server; no API key is needed
func NewOllamaProvider(config Config, logger logrus.FieldLogger) (*OpenAIProvider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434/v1"
	}
	if config.APIKey == "" {
		config.APIKey = "ollama"
	}
	if config.Model == "" {
		config.Model = "llama3.1"
	}
	return newChatProvider("ollama", config, logger), nil
}

func newChatProvider(name string, config Config, logger logrus.FieldLogger) *OpenAIProvider {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   name,
		logger: logger.WithField("provider", name),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks the endpoint with a lightweight model listing
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		p.logger.WithError(err).Warn("LLM endpoint check failed")
		return false
	}
	return true
}

// Summarize generates a digest using the Chat Completions API
func (p *OpenAIProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Report, req.AllowedPrices)
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 600
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You summarize scraped restaurant menus and only quote prices you are given.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	quoted := ExtractPrices(summary)

	if p.config.StrictPrices {
		allowed := make(map[string]bool, len(req.AllowedPrices))
		for _, a := range req.AllowedPrices {
			allowed[NormalizePrice(a)] = true
		}
		for _, q := range quoted {
			if !allowed[q] {
				return nil, fmt.Errorf("%s: %w", q, ErrUngroundedPrice)
			}
		}
	}

	return &SummarizeResponse{
		Summary:      summary,
		QuotedPrices: quoted,
		Model:        model,
		TokensUsed:   resp.Usage.TotalTokens,
	}, nil
}
