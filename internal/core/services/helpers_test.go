package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

const testOperator int64 = 1

// fixture wires memory stores with one active collection for testOperator.
type fixture struct {
	docs      *memory.DocumentStore
	operators *memory.OperatorStore
	active    *domain.Collection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		docs:      memory.NewDocumentStore(),
		operators: memory.NewOperatorStore(),
	}

	col, err := f.docs.EnsureCollection(ctx, "work")
	require.NoError(t, err)
	f.active = col

	st, err := f.operators.Get(ctx, testOperator)
	require.NoError(t, err)
	st.ActiveCollectionID = &col.ID
	require.NoError(t, f.operators.Save(ctx, st))
	return f
}

// addDoc stores a document in collectionID with one chunk per token count.
func (f *fixture) addDoc(t *testing.T, collectionID int64, title string, tags []string, tokens ...int) int64 {
	t.Helper()
	doc := &domain.Document{CollectionID: collectionID, Kind: domain.KindNote, Title: title, Tags: tags}
	chunks := make([]domain.Chunk, 0, len(tokens))
	for i, n := range tokens {
		chunks = append(chunks, domain.Chunk{
			Index:  i,
			Text:   title + " part " + string(rune('a'+i)),
			Tokens: n,
		})
	}
	require.NoError(t, f.docs.SaveDocument(context.Background(), doc, chunks))
	return doc.ID
}

func (f *fixture) state(t *testing.T) *domain.OperatorState {
	t.Helper()
	st, err := f.operators.Get(context.Background(), testOperator)
	require.NoError(t, err)
	return st
}

func (f *fixture) selectDocs(t *testing.T, ids ...int64) {
	t.Helper()
	st := f.state(t)
	st.Basket = ids
	require.NoError(t, f.operators.Save(context.Background(), st))
}

// paragraphPipeline chunks on blank lines, one token per word.
type paragraphPipeline struct{}

func (paragraphPipeline) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, p := range strings.Split(doc.Text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{Index: len(chunks), Text: p, Tokens: len(strings.Fields(p))})
	}
	return chunks, nil
}

// joinHasher "hashes" by joining its parts.
type joinHasher struct{}

func (joinHasher) Hash(parts ...string) string { return strings.Join(parts, "|") }

// wordTokenizer counts whitespace-separated words.
type wordTokenizer struct{}

func (wordTokenizer) Name() string { return "words" }

func (wordTokenizer) Encode(text string) []int {
	ids := make([]int, len(strings.Fields(text)))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func (wordTokenizer) Decode(ids []int) string { return strings.Repeat("w ", len(ids)) }

func (wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }

// scriptedModel returns the queued errors in order, then succeeds.
type scriptedModel struct {
	mu       sync.Mutex
	errs     []error
	response driven.ModelResponse
	requests []driven.ModelRequest

	// block, when set, holds every call until it is closed.
	block   chan struct{}
	started chan struct{}
}

func (m *scriptedModel) Call(ctx context.Context, req driven.ModelRequest) (*driven.ModelResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var err error
	if len(m.errs) > 0 {
		err = m.errs[0]
		m.errs = m.errs[1:]
	}
	block, started := m.block, m.started
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	resp := m.response
	return &resp, nil
}

func (m *scriptedModel) ModelName() string           { return "gpt-4o-mini" }
func (m *scriptedModel) Ping(_ context.Context) error { return nil }
func (m *scriptedModel) Close() error                { return nil }

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *scriptedModel) lastRequest() driven.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

// recordingObserver counts pipeline events.
type recordingObserver struct {
	mu        sync.Mutex
	started   int
	debounced []string
	failures  []string
	finished  []domain.RunState
}

func (o *recordingObserver) RunStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) RunDebounced(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.debounced = append(o.debounced, reason)
}

func (o *recordingObserver) AttemptFailed(reason string, _ bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, reason)
}

func (o *recordingObserver) RunFinished(state domain.RunState, _ time.Duration, _ domain.Usage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, state)
}

// staticPrompts serves a fixed system prompt.
type staticPrompts struct {
	text string
	err  error
}

func (p staticPrompts) Load(string) (string, error) { return p.text, p.err }
func (p staticPrompts) Reload()                     {}

// fixedCatalog reports one context window and price for every model.
type fixedCatalog struct {
	window  int
	in, out float64
}

func (c fixedCatalog) ContextWindow(string) int          { return c.window }
func (c fixedCatalog) Pricing(string) (float64, float64) { return c.in, c.out }

func noSleep(context.Context, time.Duration) error { return nil }
