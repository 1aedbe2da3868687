package mcp

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	page       *domain.SearchPage
	err        error
	gotOp      int64
	gotQuery   string
	gotPageArg int
}

func (m *mockCatalogService) Search(_ context.Context, op int64, query string, page, _ int) (*domain.SearchPage, error) {
	m.gotOp, m.gotQuery, m.gotPageArg = op, query, page
	if m.err != nil {
		return nil, m.err
	}
	if m.page == nil {
		return &domain.SearchPage{Page: 1, PageSize: domain.DefaultPageSize}, nil
	}
	return m.page, nil
}

func (m *mockCatalogService) SearchIn(_ context.Context, _ []int64, _ string, _, _ int) (*domain.SearchPage, error) {
	return m.page, m.err
}

// mockSelectionService keeps one state per operator in memory.
type mockSelectionService struct {
	states map[int64]*domain.OperatorState
	err    error
}

func newMockSelectionService() *mockSelectionService {
	return &mockSelectionService{states: make(map[int64]*domain.OperatorState)}
}

func (m *mockSelectionService) state(op int64) *domain.OperatorState {
	st, ok := m.states[op]
	if !ok {
		st = domain.NewOperatorState(op)
		m.states[op] = st
	}
	return st
}

func (m *mockSelectionService) Toggle(_ context.Context, op, id int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.state(op).ToggleBasket(id), nil
}

func (m *mockSelectionService) Clear(_ context.Context, op int64) error {
	if m.err != nil {
		return m.err
	}
	m.state(op).Basket = []int64{}
	return nil
}

func (m *mockSelectionService) SetAutoClear(_ context.Context, op int64, on bool) error {
	if m.err != nil {
		return m.err
	}
	m.state(op).AutoClear = on
	return nil
}

func (m *mockSelectionService) Get(_ context.Context, op int64) ([]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return domain.SortedUnique(m.state(op).Basket), nil
}

func (m *mockSelectionService) State(_ context.Context, op int64) (*domain.OperatorState, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.state(op), nil
}

func (m *mockSelectionService) UseCollection(_ context.Context, _ int64, name string) (*domain.Collection, error) {
	return &domain.Collection{ID: 1, Name: name}, m.err
}

func (m *mockSelectionService) ToggleLink(_ context.Context, _, _ int64) (bool, error) {
	return true, m.err
}

func (m *mockSelectionService) SetScope(_ context.Context, _ int64, _ domain.ScopeMode) error {
	return m.err
}

func (m *mockSelectionService) CycleScope(_ context.Context, _ int64) (domain.ScopeMode, error) {
	return domain.ScopeAll, m.err
}

func (m *mockSelectionService) Arm(_ context.Context, _ int64) error    { return m.err }
func (m *mockSelectionService) Disarm(_ context.Context, _ int64) error { return m.err }

func (m *mockSelectionService) SetModel(_ context.Context, _ int64, _ string) error {
	return m.err
}

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	result *driving.RunResult
	err    error
	got    driving.RunInput
}

func (m *mockPipelineService) RunRequest(_ context.Context, in driving.RunInput) (*driving.RunResult, error) {
	m.got = in
	return m.result, m.err
}

func (m *mockPipelineService) Preview(_ context.Context, _ int64) (*driving.Preview, error) {
	return &driving.Preview{}, m.err
}

func (m *mockPipelineService) LastRun(_ context.Context, _ int64) (*domain.LastRun, error) {
	return nil, domain.ErrNoLastRun
}

func (m *mockPipelineService) DeleteLastRun(_ context.Context, _ int64) error { return m.err }

func (m *mockPipelineService) SaveLastRun(_ context.Context, _ int64) (*domain.Document, error) {
	return nil, m.err
}

func (m *mockPipelineService) PinLastRun(_ context.Context, _ int64) (bool, error) {
	return false, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	document    *domain.Document
	collections []domain.Collection
	counts      map[int64]int
	err         error
}

func (m *mockDocumentService) Create(_ context.Context, _ int64, _ driving.NewDocument) (*driving.CreateResult, error) {
	return nil, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ int64) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ int64) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockDocumentService) SetTags(_ context.Context, _ int64, _ []string) error { return m.err }

func (m *mockDocumentService) TogglePin(_ context.Context, _ int64) (bool, error) {
	return false, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ int64) error { return m.err }

func (m *mockDocumentService) Cleanup(_ context.Context, _ int64, _ bool) (int, error) {
	return 0, m.err
}

func (m *mockDocumentService) ListCollections(_ context.Context) ([]domain.Collection, error) {
	return m.collections, m.err
}

func (m *mockDocumentService) CountDocuments(_ context.Context, id int64) (int, error) {
	return m.counts[id], m.err
}

// newTestPorts returns ports backed by fresh mocks.
func newTestPorts() (*Ports, *mockCatalogService, *mockSelectionService, *mockPipelineService) {
	catalog := &mockCatalogService{}
	selection := newMockSelectionService()
	pipeline := &mockPipelineService{}
	return &Ports{Catalog: catalog, Selection: selection, Pipeline: pipeline}, catalog, selection, pipeline
}
