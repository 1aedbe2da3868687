package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/mnemo/internal/adapters/driven/ai"
	rediscache "github.com/custodia-labs/mnemo/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/hasher"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/modelcatalog"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/storage/sqlite"
	promobserver "github.com/custodia-labs/mnemo/internal/adapters/driven/telemetry/prometheus"
	"github.com/custodia-labs/mnemo/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/services"
	"github.com/custodia-labs/mnemo/internal/logger"
	"github.com/custodia-labs/mnemo/internal/normalisers"
	"github.com/custodia-labs/mnemo/internal/normalisers/docx"
	"github.com/custodia-labs/mnemo/internal/normalisers/eml"
	"github.com/custodia-labs/mnemo/internal/normalisers/html"
	"github.com/custodia-labs/mnemo/internal/normalisers/markdown"
	"github.com/custodia-labs/mnemo/internal/normalisers/plaintext"
	"github.com/custodia-labs/mnemo/internal/postprocessors"
)

// appOptions selects the adapters behind the services.
type appOptions struct {
	// BaseDir holds config.toml, prompts/ and data/. Defaults to ~/.mnemo.
	BaseDir string

	// Ephemeral uses in-memory stores and no files.
	Ephemeral bool

	// Model replaces the configured model client.
	Model driven.ModelClient
}

// app is the composed set of services and the resources they hold.
type app struct {
	catalog   *services.CatalogService
	selection *services.SelectionService
	documents *services.DocumentService
	pipeline  *services.PipelineService
	budget    *services.BudgetCalculator
	settings  *services.SettingsService
	observer  *promobserver.Observer
	importers *normalisers.Registry

	closers []func() error
}

// buildApp wires driven adapters into the core services.
func buildApp(opts appOptions) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	base, err := resolveBaseDir(opts)
	if err != nil {
		return nil, err
	}

	var configStore driven.ConfigStore
	if opts.Ephemeral {
		configStore = memory.NewConfigStore()
	} else {
		fileStore, err := file.NewConfigStore(base)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		configStore = fileStore
	}

	a.settings = services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := a.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	var (
		docStore      driven.DocumentStore
		operatorStore driven.OperatorStore
	)
	if opts.Ephemeral {
		docStore = memory.NewDocumentStore()
		operatorStore = memory.NewOperatorStore()
	} else {
		store, err := sqlite.NewStore(filepath.Join(base, "data"))
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		docStore = store.DocumentStore()
		operatorStore = store.OperatorStore()
		logger.Debug("store: %s", store.Path())
	}

	tok := tokenizer.New()
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, tok)
	ingest, err := postprocessors.BuildPipeline(registry, settings.Chunker)
	if err != nil {
		return nil, fmt.Errorf("building ingest pipeline: %w", err)
	}

	catalog, err := modelcatalog.Load(settings.ModelTablePath)
	if err != nil {
		return nil, err
	}

	var promptStore driven.PromptStore
	if !opts.Ephemeral {
		promptStore, err = file.NewPromptStore(filepath.Join(base, "prompts"))
		if err != nil {
			return nil, err
		}
	}

	model := opts.Model
	if model == nil {
		model, err = ai.CreateModelClient(&settings.LLM)
		if err != nil {
			logger.Warn("model client unavailable: %v", err)
		}
	}
	if model != nil {
		a.closers = append(a.closers, model.Close)
	}

	normaliser := plaintext.New()
	a.importers = newImporters()
	chunkKey := fmt.Sprintf("%s/%d/%d", tok.Name(), settings.Chunker.Window, settings.Chunker.Overlap)

	a.budget = services.NewBudgetCalculator(catalog)
	a.catalog = services.NewCatalogService(docStore, operatorStore)
	a.selection = services.NewSelectionService(operatorStore, docStore)
	a.documents = services.NewDocumentService(docStore, operatorStore, ingest, hasher.Blake3{}, normaliser, chunkKey)
	a.observer = promobserver.NewObserver()
	a.pipeline = services.NewPipelineService(services.PipelineDeps{
		OperatorStore: operatorStore,
		DocStore:      docStore,
		Retrieval:     services.NewRetrievalService(docStore, operatorStore, normaliser),
		Prompts:       services.NewPromptAssembler(promptStore),
		Budget:        a.budget,
		Documents:     a.documents,
		Model:         model,
		Tokenizer:     tok,
		Debounce:      a.debounceCache(settings.RedisURL),
		Observer:      a.observer,
		Retry:         services.NewRetryPolicy(settings.Retry),
		Settings:      *settings,
	})

	ok = true
	return a, nil
}

// newImporters registers the file converters used by doc add --file.
func newImporters() *normalisers.Registry {
	r := normalisers.NewRegistry()
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(eml.New())
	return r
}

// debounceCache returns the shared Redis cache when configured, falling
// back to a per-process cache.
func (a *app) debounceCache(url string) driven.DebounceCache {
	if url == "" {
		return memory.NewDebounceCache()
	}
	cache, err := rediscache.New(url)
	if err != nil {
		logger.Warn("debounce: using in-process cache: %v", err)
		return memory.NewDebounceCache()
	}
	a.closers = append(a.closers, cache.Close)
	return cache
}

// install publishes the services to the commands.
func (a *app) install() {
	catalogService = a.catalog
	selectionService = a.selection
	documentService = a.documents
	pipelineService = a.pipeline
	budgetService = a.budget
	settingsService = a.settings
	metricsHandler = a.observer.Handler()
	importers = a.importers
	servicesReady = true
	shutdown = func() {
		a.close()
		servicesReady = false
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Debug("close: %v", err)
		}
	}
	a.closers = nil
}

func resolveBaseDir(opts appOptions) (string, error) {
	if opts.BaseDir != "" || opts.Ephemeral {
		return opts.BaseDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".mnemo"), nil
}
