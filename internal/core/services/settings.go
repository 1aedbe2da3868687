package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMTemperature    = "llm.temperature"
	keyLLMMaxOutput      = "llm.max_output_tokens"
	keyLLMTimeout        = "llm.timeout_seconds"
	keyLLMDisabled       = "llm.disabled"
	keyLLMRPM            = "llm.requests_per_minute"
	keyBudgetReserve     = "budget.system_reserve"
	keyBudgetMargin      = "budget.safety_margin"
	keyBudgetRedistrib   = "budget.redistribute"
	keyChunkerWindow     = "chunker.window"
	keyChunkerOverlap    = "chunker.overlap"
	keyRetryAttempts     = "retry.max_attempts"
	keyRetryBaseDelay    = "retry.base_delay_ms"
	keyRetryMaxDelay     = "retry.max_delay_ms"
	keyRunStaleAfter     = "run.stale_after_seconds"
	keyRunDebounce       = "run.debounce_seconds"
	keyCacheRedisURL     = "cache.redis_url"
	keyModelsTablePath   = "models.table_path"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// SettingsService manages engine settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current settings, applying defaults for missing keys.
func (s *SettingsService) Get() (*domain.EngineSettings, error) {
	d := domain.DefaultEngineSettings()
	if s.configStore == nil {
		return &d, nil
	}

	settings := &domain.EngineSettings{
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:             s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL), // empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			Temperature:       s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxOutputTokens:   s.getInt(keyLLMMaxOutput, d.LLM.MaxOutputTokens),
			Timeout:           s.getDuration(keyLLMTimeout, time.Second, d.LLM.Timeout),
			Disabled:          s.getBool(keyLLMDisabled, d.LLM.Disabled),
			RequestsPerMinute: s.getInt(keyLLMRPM, d.LLM.RequestsPerMinute),
		},
		Budget: domain.BudgetSettings{
			SystemReserve: s.getInt(keyBudgetReserve, d.Budget.SystemReserve),
			SafetyMargin:  s.getInt(keyBudgetMargin, d.Budget.SafetyMargin),
			Redistribute:  s.getBool(keyBudgetRedistrib, d.Budget.Redistribute),
		},
		Chunker: domain.ChunkerSettings{
			Window:  s.getInt(keyChunkerWindow, d.Chunker.Window),
			Overlap: s.getInt(keyChunkerOverlap, d.Chunker.Overlap),
		},
		Retry: domain.RetrySettings{
			MaxAttempts: s.getInt(keyRetryAttempts, d.Retry.MaxAttempts),
			BaseDelay:   s.getDuration(keyRetryBaseDelay, time.Millisecond, d.Retry.BaseDelay),
			MaxDelay:    s.getDuration(keyRetryMaxDelay, time.Millisecond, d.Retry.MaxDelay),
		},
		Run: domain.RunSettings{
			StaleAfter:     s.getDuration(keyRunStaleAfter, time.Second, d.Run.StaleAfter),
			DebounceWindow: s.getDuration(keyRunDebounce, time.Second, d.Run.DebounceWindow),
		},
		RedisURL:       s.configStore.GetString(keyCacheRedisURL),
		ModelTablePath: s.configStore.GetString(keyModelsTablePath),
	}

	return settings, nil
}

// Save persists settings.
func (s *SettingsService) Save(settings *domain.EngineSettings) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}

	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxOutput, settings.LLM.MaxOutputTokens},
		{keyLLMTimeout, int(settings.LLM.Timeout / time.Second)},
		{keyLLMDisabled, settings.LLM.Disabled},
		{keyLLMRPM, settings.LLM.RequestsPerMinute},
		{keyBudgetReserve, settings.Budget.SystemReserve},
		{keyBudgetMargin, settings.Budget.SafetyMargin},
		{keyBudgetRedistrib, settings.Budget.Redistribute},
		{keyChunkerWindow, settings.Chunker.Window},
		{keyChunkerOverlap, settings.Chunker.Overlap},
		{keyRetryAttempts, settings.Retry.MaxAttempts},
		{keyRetryBaseDelay, int(settings.Retry.BaseDelay / time.Millisecond)},
		{keyRetryMaxDelay, int(settings.Retry.MaxDelay / time.Millisecond)},
		{keyRunStaleAfter, int(settings.Run.StaleAfter / time.Second)},
		{keyRunDebounce, int(settings.Run.DebounceWindow / time.Second)},
		{keyCacheRedisURL, settings.RedisURL},
		{keyModelsTablePath, settings.ModelTablePath},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// An empty key never overwrites a stored one.
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyLLMAPIKey, err)
		}
	}

	return nil
}

// SetLLMProvider configures the model provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if m, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = m
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaBaseURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the current settings for consistency.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.LLM.Provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", settings.LLM.Provider)
	}
	if !settings.LLM.Disabled && settings.LLM.Provider.RequiresAPIKey() && settings.LLM.APIKey == "" {
		return fmt.Errorf("provider %q requires an API key", settings.LLM.Provider.Description())
	}
	if settings.Chunker.Window <= 0 {
		return fmt.Errorf("chunker.window must be positive: %w", domain.ErrInvalidInput)
	}
	if settings.Chunker.Overlap < 0 || settings.Chunker.Overlap >= settings.Chunker.Window {
		return fmt.Errorf("chunker.overlap must be in [0, window): %w", domain.ErrInvalidInput)
	}
	if settings.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1: %w", domain.ErrInvalidInput)
	}
	if settings.Budget.SystemReserve < 0 || settings.Budget.SafetyMargin < 0 {
		return fmt.Errorf("budget reservations must not be negative: %w", domain.ErrInvalidInput)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.EngineSettings {
	return domain.DefaultEngineSettings()
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	n := s.configStore.GetInt(key)
	if n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * unit
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
