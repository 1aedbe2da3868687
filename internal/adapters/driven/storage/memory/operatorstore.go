package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure OperatorStore implements the interface.
var _ driven.OperatorStore = (*OperatorStore)(nil)

// OperatorStore is an in-memory implementation of driven.OperatorStore.
type OperatorStore struct {
	mu     sync.Mutex
	states map[int64]domain.OperatorState
	now    func() time.Time
}

// NewOperatorStore creates a new in-memory operator store.
func NewOperatorStore() *OperatorStore {
	return &OperatorStore{
		states: make(map[int64]domain.OperatorState),
		now:    time.Now,
	}
}

// Get returns the operator's record, initialising an empty one if none exists.
func (s *OperatorStore) Get(_ context.Context, operatorID int64) (*domain.OperatorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getLocked(operatorID)
	out := cloneState(st)
	return &out, nil
}

// Save writes the record, leaving the run guard untouched.
func (s *OperatorStore) Save(_ context.Context, state *domain.OperatorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(state)
	return nil
}

// BeginRun takes the operator's run guard for runID.
func (s *OperatorStore) BeginRun(
	_ context.Context,
	operatorID int64,
	runID string,
	now time.Time,
	staleAfter time.Duration,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getLocked(operatorID)
	if st.RunInFlight(now, staleAfter) {
		return false, nil
	}
	since := now
	st.InFlightRunID = runID
	st.InFlightSince = &since
	s.states[operatorID] = st
	return true, nil
}

// CompleteRun saves state and releases the guard held by runID.
func (s *OperatorStore) CompleteRun(_ context.Context, state *domain.OperatorState, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(state)
	s.endLocked(state.OperatorID, runID)
	return nil
}

// EndRun releases the guard held by runID.
func (s *OperatorStore) EndRun(_ context.Context, operatorID int64, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked(operatorID, runID)
	return nil
}

func (s *OperatorStore) getLocked(operatorID int64) domain.OperatorState {
	st, ok := s.states[operatorID]
	if !ok {
		st = *domain.NewOperatorState(operatorID)
		st.Basket = []int64{}
		st.LinkedCollectionIDs = []int64{}
		st.UpdatedAt = s.now().UTC()
		s.states[operatorID] = st
	}
	return st
}

func (s *OperatorStore) saveLocked(state *domain.OperatorState) {
	cur := s.getLocked(state.OperatorID)
	next := cloneState(*state)
	next.Basket = domain.SortedUnique(next.Basket)
	next.LinkedCollectionIDs = domain.SortedUnique(next.LinkedCollectionIDs)
	next.InFlightRunID = cur.InFlightRunID
	next.InFlightSince = cur.InFlightSince
	next.UpdatedAt = s.now().UTC()
	s.states[state.OperatorID] = next
}

func (s *OperatorStore) endLocked(operatorID int64, runID string) {
	st, ok := s.states[operatorID]
	if !ok || st.InFlightRunID != runID {
		return
	}
	st.InFlightRunID = ""
	st.InFlightSince = nil
	s.states[operatorID] = st
}

func cloneState(st domain.OperatorState) domain.OperatorState {
	st.Basket = append([]int64{}, st.Basket...)
	st.LinkedCollectionIDs = append([]int64{}, st.LinkedCollectionIDs...)
	if st.ActiveCollectionID != nil {
		v := *st.ActiveCollectionID
		st.ActiveCollectionID = &v
	}
	if st.InFlightSince != nil {
		v := *st.InFlightSince
		st.InFlightSince = &v
	}
	if st.LastRun != nil {
		lr := *st.LastRun
		lr.UsedSourceIDs = append([]int64(nil), lr.UsedSourceIDs...)
		if lr.SavedDocumentID != nil {
			v := *lr.SavedDocumentID
			lr.SavedDocumentID = &v
		}
		st.LastRun = &lr
	}
	return st
}
