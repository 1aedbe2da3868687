package cli

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// fakeModel answers every call with a fixed text.
type fakeModel struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []driven.ModelRequest
}

func (m *fakeModel) Call(_ context.Context, req driven.ModelRequest) (*driven.ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	return &driven.ModelResponse{Text: m.text, Model: "fake-model", TokensIn: 120, TokensOut: 12}, nil
}

func (m *fakeModel) ModelName() string            { return "fake-model" }
func (m *fakeModel) Ping(_ context.Context) error { return nil }
func (m *fakeModel) Close() error                 { return nil }

func (m *fakeModel) requests() []driven.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driven.ModelRequest(nil), m.calls...)
}

// setupTestServices installs in-memory services backed by model.
func setupTestServices(t *testing.T, model driven.ModelClient) {
	t.Helper()
	a, err := buildApp(appOptions{Ephemeral: true, Model: model})
	require.NoError(t, err)
	a.install()
	t.Cleanup(func() {
		closeServices()
		catalogService = nil
		selectionService = nil
		documentService = nil
		pipelineService = nil
		budgetService = nil
		settingsService = nil
		metricsHandler = nil
		servicesReady = false
	})
}

// resetFlags restores command flag variables between executions.
func resetFlags() {
	operatorID = 1
	searchPage = 1
	searchPageSize = domain.DefaultPageSize
	searchJSON = false
	askTrigger = ""
	docAddTitle = ""
	docAddKind = string(domain.KindNote)
	docAddTags = nil
	docAddFile = ""
	docAddParent = 0
	docGetChunks = false
	docCleanupCollection = 0
	docCleanupAll = false
}

// runCLI executes the root command with args and returns its combined output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

var storedID = regexp.MustCompile(`document #(\d+)`)

// addDocument stores text in the active collection and returns its id.
func addDocument(t *testing.T, args ...string) int64 {
	t.Helper()
	out, err := runCLI(t, "", append([]string{"doc", "add"}, args...)...)
	require.NoError(t, err, out)
	m := storedID.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id, err := strconv.ParseInt(m[1], 10, 64)
	require.NoError(t, err)
	return id
}
