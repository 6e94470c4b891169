package reconcile

import (
	"context"

	"github.com/membreg/reconciler/internal/store"
	"github.com/membreg/reconciler/internal/store/model"
	"go.uber.org/zap"
)

// Writer persists the result of one candidate.
type Writer interface {
	Write(ctx context.Context, candidateID int64, update model.VerificationUpdate) error
}

type storeWriter struct {
	candidates store.Candidate
}

func (w *storeWriter) Write(ctx context.Context, candidateID int64, update model.VerificationUpdate) error {
	return w.candidates.UpdateVerification(ctx, candidateID, update)
}

// dryRunWriter stands in for the store during a dry run.
type dryRunWriter struct {
	log *zap.SugaredLogger
}

func (w *dryRunWriter) Write(_ context.Context, candidateID int64, update model.VerificationUpdate) error {
	w.log.Debugw("dry run: skipping write", "candidate_id", candidateID, "status", update.Status)
	return nil
}

// NewWriter returns the store-backed writer, or a no-op one when dryRun is set.
func NewWriter(candidates store.Candidate, dryRun bool) Writer {
	if dryRun {
		return &dryRunWriter{log: zap.S().Named("dry_run")}
	}
	return &storeWriter{candidates: candidates}
}
