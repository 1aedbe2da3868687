package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the model provider, token budget and retry settings.

Every value can also be overridden with an environment variable named
MNEMO_<SECTION>_<KEY>, for example MNEMO_LLM_MODEL.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Choose the model provider, model and API key used to answer questions.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Settings"))
	cmd.Println()

	cmd.Println(headerStyle.Render("[LLM]"))
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() || settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Printf("  Temperature: %.2f\n", settings.LLM.Temperature)
	cmd.Printf("  Max output tokens: %d\n", settings.LLM.MaxOutputTokens)
	cmd.Printf("  Timeout: %s\n", settings.LLM.Timeout)
	if settings.LLM.RequestsPerMinute > 0 {
		cmd.Printf("  Requests per minute: %d\n", settings.LLM.RequestsPerMinute)
	}
	status := "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println(headerStyle.Render("[Budget]"))
	cmd.Printf("  System reserve: %d\n", settings.Budget.SystemReserve)
	cmd.Printf("  Safety margin: %d\n", settings.Budget.SafetyMargin)
	cmd.Printf("  Redistribute unused budget: %s\n", onOff(settings.Budget.Redistribute))
	cmd.Println()

	cmd.Println(headerStyle.Render("[Chunker]"))
	cmd.Printf("  Window: %d tokens, overlap %d\n", settings.Chunker.Window, settings.Chunker.Overlap)
	cmd.Println()

	cmd.Println(headerStyle.Render("[Retry]"))
	cmd.Printf("  Attempts: %d, delay %s to %s\n", settings.Retry.MaxAttempts, settings.Retry.BaseDelay, settings.Retry.MaxDelay)
	cmd.Println()

	cmd.Println(headerStyle.Render("[Run]"))
	cmd.Printf("  Stale guard after: %s\n", settings.Run.StaleAfter)
	cmd.Printf("  Debounce window: %s\n", settings.Run.DebounceWindow)
	if settings.RedisURL != "" {
		cmd.Printf("  Redis: %s\n", settings.RedisURL)
	}
	if settings.ModelTablePath != "" {
		cmd.Printf("  Model table: %s\n", settings.ModelTablePath)
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Println()
		cmd.Println(warningStyle.Render("Warning: " + err.Error()))
	}
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureLLMProvider(cmd, cmd.InOrStdin())
}

func configureLLMProvider(cmd *cobra.Command, in io.Reader) error {
	reader := bufio.NewReader(in)

	cmd.Println("Select LLM Provider")
	cmd.Println("-------------------")

	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultLLMModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(in, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise from reader.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
