package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// visibleCollections resolves the collections visible under the operator's scope.
// It reports false when the operator has no active collection.
func visibleCollections(ctx context.Context, docs driven.DocumentStore, st *domain.OperatorState) ([]int64, bool, error) {
	if st.ActiveCollectionID == nil {
		return nil, false, nil
	}
	active := *st.ActiveCollectionID

	switch st.Scope {
	case domain.ScopeActive:
		return []int64{active}, true, nil
	case domain.ScopeAll:
		cols, err := docs.ListCollections(ctx)
		if err != nil {
			return nil, true, fmt.Errorf("listing collections: %w", err)
		}
		ids := make([]int64, 0, len(cols))
		for _, c := range cols {
			ids = append(ids, c.ID)
		}
		return domain.SortedUnique(ids), true, nil
	case domain.ScopeNone:
		return []int64{}, true, nil
	default:
		return domain.SortedUnique(append([]int64{active}, st.LinkedCollectionIDs...)), true, nil
	}
}
