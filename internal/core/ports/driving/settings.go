package driving

import "github.com/custodia-labs/mnemo/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, applying defaults for missing keys.
	Get() (*domain.EngineSettings, error)

	// Save persists settings.
	Save(settings *domain.EngineSettings) error

	// SetLLMProvider configures the model provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks the current settings for consistency.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.EngineSettings

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}
