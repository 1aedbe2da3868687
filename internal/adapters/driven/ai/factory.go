// Package ai provides factory functions for creating model client adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/mnemo/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/mnemo/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/llm/guarded"
	ollamallm "github.com/custodia-labs/mnemo/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/mnemo/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateModelClient creates a model client and validates connectivity.
// Returns nil without error when the model is disabled or not configured.
func CreateAndValidateModelClient(settings *domain.LLMSettings) (driven.ModelClient, error) {
	client, err := CreateModelClient(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'mnemo config' to fix", domain.ErrModelUnavailable, err)
	}
	if client == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrModelUnavailable, err)
	}
	return client, nil
}

// ValidateLLMConfig validates an LLM configuration by creating a client and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	client, err := CreateModelClient(settings)
	if err != nil {
		return err
	}
	if client == nil {
		return nil
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return client.Ping(ctx)
}

// CreateModelClient creates the provider client for settings, wrapped with the
// rate limiter and circuit breaker. Returns nil if the provider is not configured.
func CreateModelClient(settings *domain.LLMSettings) (driven.ModelClient, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		client driven.ModelClient
		err    error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		client = ollamallm.NewClient(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderOpenAI:
		client, err = openaillm.NewClient(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderAnthropic:
		client, err = anthropicllm.NewClient(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderGemini:
		client, err = geminillm.NewClient(context.Background(), geminillm.Config{
			APIKey: settings.APIKey,
			Model:  settings.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	opts := guarded.DefaultOptions(settings.Provider.String())
	opts.RequestsPerMinute = settings.RequestsPerMinute
	return guarded.New(client, opts), nil
}
