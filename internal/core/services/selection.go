package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

// Ensure SelectionService implements the interface.
var _ driving.SelectionService = (*SelectionService)(nil)

// SelectionService edits the persisted per-operator selection record.
// Each operation is a read-modify-write of the whole record.
type SelectionService struct {
	operatorStore driven.OperatorStore
	docStore      driven.DocumentStore
}

// NewSelectionService creates a new selection service.
func NewSelectionService(operatorStore driven.OperatorStore, docStore driven.DocumentStore) *SelectionService {
	return &SelectionService{
		operatorStore: operatorStore,
		docStore:      docStore,
	}
}

// update loads the record, applies fn and saves it.
func (s *SelectionService) update(ctx context.Context, operatorID int64, fn func(*domain.OperatorState) error) (*domain.OperatorState, error) {
	if s.operatorStore == nil {
		return nil, domain.ErrNotImplemented
	}
	st, err := s.operatorStore.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if err := s.operatorStore.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Toggle removes documentID from the basket if present, otherwise adds it.
func (s *SelectionService) Toggle(ctx context.Context, operatorID, documentID int64) (bool, error) {
	if documentID <= 0 {
		return false, fmt.Errorf("document id %d: %w", documentID, domain.ErrInvalidInput)
	}
	var added bool
	_, err := s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		added = st.ToggleBasket(documentID)
		return nil
	})
	return added, err
}

// Clear empties the basket.
func (s *SelectionService) Clear(ctx context.Context, operatorID int64) error {
	_, err := s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		st.Basket = []int64{}
		st.Armed = false
		return nil
	})
	return err
}

// SetAutoClear sets whether a successful run empties the basket.
func (s *SelectionService) SetAutoClear(ctx context.Context, operatorID int64, on bool) error {
	_, err := s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		st.AutoClear = on
		return nil
	})
	return err
}

// Get returns the basket in ascending order.
func (s *SelectionService) Get(ctx context.Context, operatorID int64) ([]int64, error) {
	st, err := s.State(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return domain.SortedUnique(st.Basket), nil
}

// State returns the full record.
func (s *SelectionService) State(ctx context.Context, operatorID int64) (*domain.OperatorState, error) {
	if s.operatorStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.operatorStore.Get(ctx, operatorID)
}

// UseCollection makes the named collection active, creating it if needed.
func (s *SelectionService) UseCollection(ctx context.Context, operatorID int64, name string) (*domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("collection name: %w", domain.ErrInvalidInput)
	}
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	col, err := s.docStore.EnsureCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	_, err = s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		id := col.ID
		st.ActiveCollectionID = &id
		if st.IsLinked(id) {
			st.ToggleLink(id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return col, nil
}

// ToggleLink adds or removes a linked collection.
func (s *SelectionService) ToggleLink(ctx context.Context, operatorID, collectionID int64) (bool, error) {
	if s.docStore == nil {
		return false, domain.ErrNotImplemented
	}
	if _, err := s.docStore.GetCollection(ctx, collectionID); err != nil {
		return false, err
	}
	var linked bool
	_, err := s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		if st.ActiveCollectionID != nil && *st.ActiveCollectionID == collectionID {
			return fmt.Errorf("collection %d is active: %w", collectionID, domain.ErrInvalidInput)
		}
		linked = st.ToggleLink(collectionID)
		return nil
	})
	return linked, err
}

// SetScope sets the visibility scope.
func (s *SelectionService) SetScope(ctx context.Context, operatorID int64, mode domain.ScopeMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("scope %q: %w", mode, domain.ErrInvalidInput)
	}
	_, err := s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		st.Scope = mode
		return nil
	})
	return err
}

// CycleScope advances the scope to the next mode.
func (s *SelectionService) CycleScope(ctx context.Context, operatorID int64) (domain.ScopeMode, error) {
	st, err := s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		st.Scope = st.Scope.Next()
		return nil
	})
	if err != nil {
		return "", err
	}
	return st.Scope, nil
}

// Arm marks the operator as ready to send a question.
func (s *SelectionService) Arm(ctx context.Context, operatorID int64) error {
	_, err := s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		if len(st.Basket) == 0 {
			return domain.ErrEmptySelection
		}
		st.Armed = true
		return nil
	})
	return err
}

// Disarm clears the armed flag.
func (s *SelectionService) Disarm(ctx context.Context, operatorID int64) error {
	_, err := s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		st.Armed = false
		return nil
	})
	return err
}

// SetModel sets the operator's preferred model.
func (s *SelectionService) SetModel(ctx context.Context, operatorID int64, model string) error {
	_, err := s.update(ctx, operatorID, func(st *domain.OperatorState) error {
		st.Model = strings.TrimSpace(model)
		return nil
	})
	return err
}
