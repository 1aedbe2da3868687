package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// Verify interface compliance.
var _ driven.OperatorStore = (*operatorStore)(nil)

// operatorStore wraps Store to implement driven.OperatorStore.
// The run guard lives in the in_flight_* columns; in_flight_since is unix nanoseconds
// so staleness is a numeric comparison inside a single UPDATE.
type operatorStore struct {
	store *Store
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get returns the operator's record, initialising an empty one if none exists.
func (s *operatorStore) Get(ctx context.Context, operatorID int64) (*domain.OperatorState, error) {
	if err := ensureOperator(ctx, s.store.db, operatorID); err != nil {
		return nil, err
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT operator_id, active_collection_id, linked_collection_ids, basket, auto_clear,
			scope, armed, model, last_run, in_flight_run_id, in_flight_since, updated_at
		FROM operator_states WHERE operator_id = ?
	`, operatorID)
	return scanOperatorState(row)
}

// Save writes every field except the run guard.
func (s *operatorStore) Save(ctx context.Context, state *domain.OperatorState) error {
	return saveOperator(ctx, s.store.db, state)
}

// BeginRun takes the guard with a conditional UPDATE, so two callers cannot both win.
func (s *operatorStore) BeginRun(ctx context.Context, operatorID int64, runID string, now time.Time, staleAfter time.Duration) (bool, error) {
	if err := ensureOperator(ctx, s.store.db, operatorID); err != nil {
		return false, err
	}

	cutoff := now.Add(-staleAfter).UnixNano()
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE operator_states
		SET in_flight_run_id = ?, in_flight_since = ?
		WHERE operator_id = ?
		  AND (in_flight_run_id = '' OR in_flight_since IS NULL OR in_flight_since <= ?)
	`, runID, now.UnixNano(), operatorID, cutoff)
	if err != nil {
		return false, fmt.Errorf("taking run guard: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n == 1, nil
}

// CompleteRun saves state and releases the guard held by runID in one transaction.
func (s *operatorStore) CompleteRun(ctx context.Context, state *domain.OperatorState, runID string) error {
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		if err := saveOperator(ctx, tx, state); err != nil {
			return err
		}
		return releaseGuard(ctx, tx, state.OperatorID, runID)
	})
}

// EndRun releases the guard held by runID.
func (s *operatorStore) EndRun(ctx context.Context, operatorID int64, runID string) error {
	return releaseGuard(ctx, s.store.db, operatorID, runID)
}

func ensureOperator(ctx context.Context, db execer, operatorID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO operator_states (operator_id, scope, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(operator_id) DO NOTHING
	`, operatorID, string(domain.DefaultScope), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("initialising operator state: %w", err)
	}
	return nil
}

func saveOperator(ctx context.Context, db execer, state *domain.OperatorState) error {
	linked, err := json.Marshal(domain.SortedUnique(state.LinkedCollectionIDs))
	if err != nil {
		return fmt.Errorf("encoding linked collections: %w", err)
	}
	basket, err := json.Marshal(domain.SortedUnique(state.Basket))
	if err != nil {
		return fmt.Errorf("encoding basket: %w", err)
	}
	var lastRun any
	if state.LastRun != nil {
		b, err := json.Marshal(state.LastRun)
		if err != nil {
			return fmt.Errorf("encoding last run: %w", err)
		}
		lastRun = string(b)
	}
	var active any
	if state.ActiveCollectionID != nil {
		active = *state.ActiveCollectionID
	}
	scope := state.Scope
	if !scope.IsValid() {
		scope = domain.DefaultScope
	}

	state.UpdatedAt = time.Now().UTC()
	_, err = db.ExecContext(ctx, `
		INSERT INTO operator_states (operator_id, active_collection_id, linked_collection_ids, basket,
			auto_clear, scope, armed, model, last_run, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(operator_id) DO UPDATE SET
			active_collection_id = excluded.active_collection_id,
			linked_collection_ids = excluded.linked_collection_ids,
			basket = excluded.basket,
			auto_clear = excluded.auto_clear,
			scope = excluded.scope,
			armed = excluded.armed,
			model = excluded.model,
			last_run = excluded.last_run,
			updated_at = excluded.updated_at
	`, state.OperatorID, active, string(linked), string(basket), boolInt(state.AutoClear),
		string(scope), boolInt(state.Armed), state.Model, lastRun, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving operator state: %w", err)
	}
	return nil
}

func releaseGuard(ctx context.Context, db execer, operatorID int64, runID string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE operator_states SET in_flight_run_id = '', in_flight_since = NULL
		WHERE operator_id = ? AND in_flight_run_id = ?
	`, operatorID, runID)
	if err != nil {
		return fmt.Errorf("releasing run guard: %w", err)
	}
	return nil
}

func scanOperatorState(row scanner) (*domain.OperatorState, error) {
	var (
		st      domain.OperatorState
		active  sql.NullInt64
		linked  string
		basket  string
		auto    int
		scope   string
		armed   int
		lastRun sql.NullString
		since   sql.NullInt64
	)
	err := row.Scan(&st.OperatorID, &active, &linked, &basket, &auto, &scope, &armed,
		&st.Model, &lastRun, &st.InFlightRunID, &since, &st.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning operator state: %w", err)
	}

	if active.Valid {
		id := active.Int64
		st.ActiveCollectionID = &id
	}
	if err := json.Unmarshal([]byte(linked), &st.LinkedCollectionIDs); err != nil {
		return nil, fmt.Errorf("decoding linked collections: %w", err)
	}
	if err := json.Unmarshal([]byte(basket), &st.Basket); err != nil {
		return nil, fmt.Errorf("decoding basket: %w", err)
	}
	st.LinkedCollectionIDs = domain.SortedUnique(st.LinkedCollectionIDs)
	st.Basket = domain.SortedUnique(st.Basket)
	st.AutoClear = auto != 0
	st.Armed = armed != 0
	st.Scope = domain.ScopeMode(scope)
	if !st.Scope.IsValid() {
		st.Scope = domain.DefaultScope
	}
	if lastRun.Valid && lastRun.String != "" {
		// An unreadable last run is dropped so the operator's selection stays usable.
		var lr domain.LastRun
		if err := json.Unmarshal([]byte(lastRun.String), &lr); err != nil {
			logger.Warn("sqlite: discarding unreadable last run for operator %d: %v", st.OperatorID, err)
		} else {
			st.LastRun = &lr
		}
	}
	if since.Valid {
		t := time.Unix(0, since.Int64).UTC()
		st.InFlightSince = &t
	}
	return &st, nil
}
