package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// maxChunkLoaders bounds concurrent chunk reads per load.
const maxChunkLoaders = 4

// RetrievalService loads the operator's selected documents as normalised sources.
type RetrievalService struct {
	docStore      driven.DocumentStore
	operatorStore driven.OperatorStore
	normaliser    driven.TextNormaliser
}

// NewRetrievalService creates a new retrieval service. normaliser may be nil,
// in which case chunk text is used as stored.
func NewRetrievalService(
	docStore driven.DocumentStore,
	operatorStore driven.OperatorStore,
	normaliser driven.TextNormaliser,
) *RetrievalService {
	return &RetrievalService{
		docStore:      docStore,
		operatorStore: operatorStore,
		normaliser:    normaliser,
	}
}

// Load reads the operator's record and loads selectedIDs under its scope.
func (s *RetrievalService) Load(ctx context.Context, operatorID int64, selectedIDs []int64) (*domain.LoadResult, error) {
	if s.operatorStore == nil {
		return nil, domain.ErrNotImplemented
	}
	st, err := s.operatorStore.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return s.LoadForState(ctx, st, selectedIDs)
}

// LoadForState loads the visible subset of selectedIDs with their chunks.
// Invisible and unknown ids are dropped without error. Documents without any
// non-empty chunk are omitted.
func (s *RetrievalService) LoadForState(
	ctx context.Context,
	st *domain.OperatorState,
	selectedIDs []int64,
) (*domain.LoadResult, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}

	visible, ok, err := visibleCollections(ctx, s.docStore, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &domain.LoadResult{Sources: []domain.Source{}, NoActiveCollection: true}, nil
	}

	ids := uniqueInOrder(selectedIDs)
	if len(ids) == 0 || len(visible) == 0 {
		return &domain.LoadResult{Sources: []domain.Source{}}, nil
	}

	docs, err := s.docStore.GetDocuments(ctx, ids, visible)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	if dropped := len(ids) - len(docs); dropped > 0 {
		logger.Debug("retrieval: dropped %d selected id(s) outside visibility", dropped)
	}
	docs = dedupeDocuments(docs)

	loaded := make([]domain.Source, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxChunkLoaders)
	for i := range docs {
		g.Go(func() error {
			chunks, err := s.docStore.GetChunks(gctx, docs[i].ID)
			if err != nil {
				return fmt.Errorf("loading chunks for document %d: %w", docs[i].ID, err)
			}
			loaded[i] = s.buildSource(&docs[i], chunks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.LoadResult{Sources: make([]domain.Source, 0, len(loaded))}
	for i := range loaded {
		if len(loaded[i].Chunks) == 0 {
			continue
		}
		result.Sources = append(result.Sources, loaded[i])
		result.TotalTokens += loaded[i].TotalTokens
	}
	return result, nil
}

func (s *RetrievalService) buildSource(doc *domain.Document, chunks []domain.Chunk) domain.Source {
	src := domain.Source{
		ID:        doc.ID,
		Title:     doc.DisplayTitle(),
		Tags:      doc.Tags,
		CreatedAt: doc.CreatedAt,
		Chunks:    make([]domain.SourceChunk, 0, len(chunks)),
	}
	for _, c := range chunks {
		text := c.Text
		if s.normaliser != nil {
			text = s.normaliser.Normalise(text)
		}
		if text == "" {
			continue
		}
		tokens := c.Tokens
		if tokens <= 0 {
			tokens = utf8.RuneCountInString(text) / 4
		}
		src.Chunks = append(src.Chunks, domain.SourceChunk{Index: c.Index, Text: text, Tokens: tokens})
		src.TotalTokens += tokens
	}
	return src
}

// ExtractForBudget walks sources in order and includes whole chunks from
// each until the next would exceed that source's even share of budget.
// With redistribute set, budget left unused by short sources is then spent
// on the remaining chunks, still in source order and still whole.
func ExtractForBudget(sources []domain.Source, budget int, redistribute bool) []domain.ContextChunk {
	taken := planBudget(sources, budget, redistribute)
	var out []domain.ContextChunk
	for i := range sources {
		for _, c := range sources[i].Chunks[:taken[i]] {
			out = append(out, domain.ContextChunk{
				SourceID:    sources[i].ID,
				SourceTitle: sources[i].Title,
				Index:       c.Index,
				Text:        c.Text,
				Tokens:      c.Tokens,
			})
		}
	}
	return out
}

// IncludedSources returns sources trimmed to the chunks ExtractForBudget
// would include. Sources left without chunks are dropped.
func IncludedSources(sources []domain.Source, budget int, redistribute bool) []domain.Source {
	taken := planBudget(sources, budget, redistribute)
	out := make([]domain.Source, 0, len(sources))
	for i := range sources {
		if taken[i] == 0 {
			continue
		}
		src := sources[i]
		src.Chunks = append([]domain.SourceChunk(nil), sources[i].Chunks[:taken[i]]...)
		src.TotalTokens = 0
		for _, c := range src.Chunks {
			src.TotalTokens += c.Tokens
		}
		out = append(out, src)
	}
	return out
}

// planBudget returns how many leading chunks of each source fit.
func planBudget(sources []domain.Source, budget int, redistribute bool) []int {
	taken := make([]int, len(sources))
	if budget <= 0 || len(sources) == 0 {
		return taken
	}

	share := AllocatePerSource(budget, len(sources))
	used := 0
	for i := range sources {
		acc := 0
		for _, c := range sources[i].Chunks {
			if acc+c.Tokens > share {
				break
			}
			acc += c.Tokens
			taken[i]++
		}
		used += acc
	}

	if !redistribute {
		return taken
	}

	left := budget - used
	for i := range sources {
		for taken[i] < len(sources[i].Chunks) {
			next := sources[i].Chunks[taken[i]].Tokens
			if next > left {
				break
			}
			left -= next
			taken[i]++
		}
	}
	return taken
}

func uniqueInOrder(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
