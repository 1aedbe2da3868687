package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a language-model provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI"
	case AIProviderAnthropic:
		return "Anthropic"
	case AIProviderGemini:
		return "Google Gemini"
	default:
		return unknownDescription
	}
}

// LLMSettings holds model provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxOutputTokens is reserved for the answer.
	MaxOutputTokens int

	// Timeout bounds a single model call.
	Timeout time.Duration

	// Disabled turns off model calls entirely.
	Disabled bool

	// RequestsPerMinute limits outbound calls. Zero means unlimited.
	RequestsPerMinute int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if l.Disabled || !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// BudgetSettings holds the reservations subtracted from the context window.
type BudgetSettings struct {
	SystemReserve int
	SafetyMargin  int

	// Redistribute spends budget left by short sources on longer ones.
	Redistribute bool
}

// ChunkerSettings holds token window parameters.
type ChunkerSettings struct {
	Window  int
	Overlap int
}

// RetrySettings shapes the model-call retry policy.
type RetrySettings struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RunSettings shapes the request guard.
type RunSettings struct {
	// StaleAfter releases a guard left behind by a crashed run.
	StaleAfter time.Duration

	// DebounceWindow is how long a trigger id is remembered.
	DebounceWindow time.Duration
}

// EngineSettings holds all application settings.
type EngineSettings struct {
	LLM     LLMSettings
	Budget  BudgetSettings
	Chunker ChunkerSettings
	Retry   RetrySettings
	Run     RunSettings

	// RedisURL enables the shared debounce cache when set.
	RedisURL string

	// ModelTablePath points at an optional YAML model table override.
	ModelTablePath string
}

// Defaults for EngineSettings.
const (
	DefaultModel           = "gpt-4o-mini"
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 2048
	DefaultModelTimeout    = 60 * time.Second
	DefaultSystemReserve   = 300
	DefaultSafetyMargin    = 1000
	DefaultChunkWindow     = 1600
	DefaultChunkOverlap    = 150
	DefaultMaxAttempts     = 3
	DefaultRetryBaseDelay  = time.Second
	DefaultRetryMaxDelay   = 10 * time.Second
	DefaultStaleAfter      = 5 * time.Minute
	DefaultDebounceWindow  = 10 * time.Second
)

// DefaultEngineSettings returns settings with sensible defaults.
// The provider is OpenAI; an API key must still be configured.
func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		LLM: LLMSettings{
			Provider:        AIProviderOpenAI,
			Model:           DefaultModel,
			Temperature:     DefaultTemperature,
			MaxOutputTokens: DefaultMaxOutputTokens,
			Timeout:         DefaultModelTimeout,
		},
		Budget: BudgetSettings{
			SystemReserve: DefaultSystemReserve,
			SafetyMargin:  DefaultSafetyMargin,
		},
		Chunker: ChunkerSettings{
			Window:  DefaultChunkWindow,
			Overlap: DefaultChunkOverlap,
		},
		Retry: RetrySettings{
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   DefaultRetryBaseDelay,
			MaxDelay:    DefaultRetryMaxDelay,
		},
		Run: RunSettings{
			StaleAfter:     DefaultStaleAfter,
			DebounceWindow: DefaultDebounceWindow,
		},
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    DefaultModel,
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}
