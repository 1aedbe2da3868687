// Package cli provides the mnemo command line interface.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
	"github.com/custodia-labs/mnemo/internal/logger"
	"github.com/custodia-labs/mnemo/internal/normalisers"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// envOperator overrides the default operator id.
const envOperator = "MNEMO_OPERATOR"

// skipWiring marks commands that run without services.
const skipWiring = "skip-wiring"

var (
	verbose    bool
	operatorID int64
	baseDir    string
	ephemeral  bool
)

// Services used by the commands. They are set by the root pre-run hook,
// or directly by tests.
var (
	catalogService   driving.CatalogService
	selectionService driving.SelectionService
	documentService  driving.DocumentService
	pipelineService  driving.PipelineService
	budgetService    driving.BudgetService
	settingsService  driving.SettingsService
	metricsHandler   http.Handler
	importers        *normalisers.Registry

	servicesReady bool
	shutdown      func()
)

var errNotConfigured = errors.New("services not configured")

var rootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Assemble token-budgeted context from selected documents",
	Long: `mnemo keeps project documents in collections, lets you pick a basket of
sources, and sends a question to a language model with only those sources
as context, fitted to the model's token budget.`,
	SilenceUsage:      true,
	PersistentPreRunE: wireServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().Int64Var(&operatorID, "operator", defaultOperator(), "operator id whose selection is used")
	rootCmd.PersistentFlags().StringVar(&baseDir, "data-dir", "", "directory for config and data (default ~/.mnemo)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep everything in memory for this invocation")
}

// Execute runs the root command.
func Execute() error {
	defer closeServices()
	return rootCmd.ExecuteContext(context.Background())
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func defaultOperator() int64 {
	if v := os.Getenv(envOperator); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return 1
}

func wireServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if servicesReady || cmd.Annotations[skipWiring] == "true" {
		return nil
	}

	a, err := buildApp(appOptions{BaseDir: baseDir, Ephemeral: ephemeral})
	if err != nil {
		return err
	}
	a.install()
	return nil
}

func closeServices() {
	if shutdown != nil {
		shutdown()
		shutdown = nil
	}
}

func requireServices() error {
	if !servicesReady {
		return errNotConfigured
	}
	return nil
}
