package reconcile

import (
	"context"

	"github.com/membreg/reconciler/internal/store"
	"github.com/membreg/reconciler/internal/store/model"
)

// Selector loads the candidates a run has to verify.
type Selector struct {
	candidates store.Candidate
}

func NewSelector(candidates store.Candidate) *Selector {
	return &Selector{candidates: candidates}
}

// Select returns the candidates in Unknown or VerificationFailed status, ordered by ascending id,
// restricted to cfg.Scope when set and capped at cfg.Limit when positive.
// An empty result is not an error.
func (s *Selector) Select(ctx context.Context, cfg RunConfig) (model.CandidateList, error) {
	filter := store.NewCandidateQueryFilter().Selectable()
	if cfg.Scope != "" {
		filter = filter.ByScope(cfg.Scope)
	}

	opts := store.NewCandidateQueryOptions().WithSortOrder(store.SortByID)
	if cfg.Limit > 0 {
		opts = opts.WithLimit(cfg.Limit)
	}

	candidates, err := s.candidates.List(ctx, filter, opts)
	if err != nil {
		return nil, &SelectionError{Err: err}
	}
	return candidates, nil
}
