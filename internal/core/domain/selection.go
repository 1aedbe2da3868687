package domain

import (
	"sort"
	"time"
)

// ScopeMode decides which collections are visible to an operator.
type ScopeMode string

// Scope modes.
const (
	// ScopeActive makes only the active collection visible.
	ScopeActive ScopeMode = "active"

	// ScopeLinked adds linked collections to the active one.
	ScopeLinked ScopeMode = "linked"

	// ScopeAll makes every collection visible.
	ScopeAll ScopeMode = "all"

	// ScopeNone hides every collection.
	ScopeNone ScopeMode = "none"
)

// DefaultScope is the scope of a freshly initialised operator.
const DefaultScope = ScopeLinked

// IsValid returns true if the scope is recognised.
func (m ScopeMode) IsValid() bool {
	switch m {
	case ScopeActive, ScopeLinked, ScopeAll, ScopeNone:
		return true
	default:
		return false
	}
}

// Next returns the scope after m in the cycle active, linked, all, none.
func (m ScopeMode) Next() ScopeMode {
	switch m {
	case ScopeActive:
		return ScopeLinked
	case ScopeLinked:
		return ScopeAll
	case ScopeAll:
		return ScopeNone
	default:
		return ScopeActive
	}
}

// String returns the string representation.
func (m ScopeMode) String() string {
	return string(m)
}

// RunState is a stage of the request pipeline.
type RunState string

// Run states.
const (
	RunArmed        RunState = "armed"
	RunPreparing    RunState = "preparing"
	RunCallingModel RunState = "calling-model"
	RunSucceeded    RunState = "succeeded"
	RunFailed       RunState = "failed"
)

// Usage describes one successful model call.
type Usage struct {
	Model     string
	TokensIn  int
	TokensOut int
	CostUSD   float64
	Duration  time.Duration
}

// LastRun is the record of the operator's most recent successful run.
// It is replaced wholesale by each success.
type LastRun struct {
	RunID         string        `json:"run_id"`
	Question      string        `json:"question"`
	Text          string        `json:"text"`
	UsedSourceIDs []int64       `json:"used_source_ids"`
	Model         string        `json:"model"`
	TokensIn      int           `json:"tokens_in"`
	TokensOut     int           `json:"tokens_out"`
	CostUSD       float64       `json:"cost_usd"`
	Duration      time.Duration `json:"duration_ns"`
	Attempts      int           `json:"attempts"`
	Saved         bool          `json:"saved"`
	Pinned        bool          `json:"pinned"`

	// SavedDocumentID is set once the answer has been stored as a document.
	SavedDocumentID *int64 `json:"saved_document_id,omitempty"`

	CompletedAt time.Time `json:"completed_at"`
}

// Usage returns the usage metadata recorded for the run.
func (r *LastRun) Usage() Usage {
	return Usage{
		Model:     r.Model,
		TokensIn:  r.TokensIn,
		TokensOut: r.TokensOut,
		CostUSD:   r.CostUSD,
		Duration:  r.Duration,
	}
}

// OperatorState is the persisted per-operator selection record.
type OperatorState struct {
	OperatorID int64

	// ActiveCollectionID is nil when no collection is active.
	ActiveCollectionID *int64

	// LinkedCollectionIDs are extra visible collections, sorted unique.
	LinkedCollectionIDs []int64

	// Basket is the selected document ids, sorted unique.
	Basket []int64

	AutoClear bool
	Scope     ScopeMode

	// Armed is set while the operator is expected to send a question.
	Armed bool

	// Model overrides the configured model when non-empty.
	Model string

	// LastRun is nil until a run succeeds.
	LastRun *LastRun

	// InFlightRunID and InFlightSince describe the guard held by a running request.
	// Only the guard operations of the operator store write these fields.
	InFlightRunID string
	InFlightSince *time.Time

	UpdatedAt time.Time
}

// NewOperatorState returns an empty record for an operator.
func NewOperatorState(operatorID int64) *OperatorState {
	return &OperatorState{
		OperatorID: operatorID,
		Scope:      DefaultScope,
	}
}

// InBasket reports whether id is selected.
func (s *OperatorState) InBasket(id int64) bool {
	i := sort.Search(len(s.Basket), func(i int) bool { return s.Basket[i] >= id })
	return i < len(s.Basket) && s.Basket[i] == id
}

// ToggleBasket flips membership of id and reports whether it was added.
func (s *OperatorState) ToggleBasket(id int64) bool {
	if s.InBasket(id) {
		out := s.Basket[:0:0]
		for _, v := range s.Basket {
			if v != id {
				out = append(out, v)
			}
		}
		s.Basket = out
		return false
	}
	s.Basket = SortedUnique(append(append([]int64(nil), s.Basket...), id))
	return true
}

// IsLinked reports whether a collection is linked.
func (s *OperatorState) IsLinked(id int64) bool {
	for _, v := range s.LinkedCollectionIDs {
		if v == id {
			return true
		}
	}
	return false
}

// ToggleLink flips whether a collection is linked and reports the new state.
func (s *OperatorState) ToggleLink(id int64) bool {
	if s.IsLinked(id) {
		out := make([]int64, 0, len(s.LinkedCollectionIDs))
		for _, v := range s.LinkedCollectionIDs {
			if v != id {
				out = append(out, v)
			}
		}
		s.LinkedCollectionIDs = out
		return false
	}
	s.LinkedCollectionIDs = SortedUnique(append(append([]int64(nil), s.LinkedCollectionIDs...), id))
	return true
}

// RunInFlight reports whether a run guard is held and younger than staleAfter.
func (s *OperatorState) RunInFlight(now time.Time, staleAfter time.Duration) bool {
	if s.InFlightRunID == "" || s.InFlightSince == nil {
		return false
	}
	return now.Sub(*s.InFlightSince) < staleAfter
}

// SortedUnique returns ids sorted ascending with duplicates removed.
func SortedUnique(ids []int64) []int64 {
	if len(ids) == 0 {
		return []int64{}
	}
	cp := append([]int64(nil), ids...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:1]
	for _, v := range cp[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
