package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/membreg/reconciler/internal/ratelimit"
	"github.com/membreg/reconciler/internal/registry"
	"github.com/membreg/reconciler/internal/store"
	"github.com/membreg/reconciler/internal/store/model"
	"github.com/membreg/reconciler/pkg/metrics"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Verifier resolves one external key, retries included.
type Verifier interface {
	Verify(ctx context.Context, key string) registry.Result
}

// Orchestrator runs one reconciliation pass. It is single use.
type Orchestrator struct {
	cfg              RunConfig
	selector         *Selector
	verifier         Verifier
	reconciler       Reconciler
	writer           Writer
	pacer            *ratelimit.Pacer
	clock            clock.Clock
	recorders        []Recorder
	progressInterval time.Duration
	collector        *Collector
	log              *zap.SugaredLogger
}

type Option func(*Orchestrator)

func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithPacer shares p with the verifier so retries and first attempts draw from the same bucket.
func WithPacer(p *ratelimit.Pacer) Option {
	return func(o *Orchestrator) {
		o.pacer = p
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorders = append(o.recorders, r)
	}
}

func WithProgressInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.progressInterval = d
	}
}

func WithWriter(w Writer) Option {
	return func(o *Orchestrator) {
		o.writer = w
	}
}

func NewOrchestrator(cfg RunConfig, candidates store.Candidate, verifier Verifier, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	o := &Orchestrator{
		cfg:        cfg,
		selector:   NewSelector(candidates),
		verifier:   verifier,
		reconciler: NewReconciler(cfg.SentinelCode),
		clock:      clock.RealClock{},
		collector:  NewCollector(runID, cfg.DryRun),
		log:        zap.S().Named("orchestrator").With("run_id", runID),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.pacer == nil {
		o.pacer = ratelimit.NewPacer(cfg.RateLimit, o.clock)
	}
	// the dry-run guard always wins over an injected writer
	if o.writer == nil || cfg.DryRun {
		o.writer = NewWriter(candidates, cfg.DryRun)
	}

	return o, nil
}

func (o *Orchestrator) RunID() string {
	return o.collector.Snapshot().RunID
}

// Run selects the candidates and verifies them in batches. Failures of single candidates are
// recorded and never stop the run, and a candidate deleted after selection counts as skipped.
// Cancelling ctx stops the run at the next candidate boundary; the statistics are then returned
// with Aborted set and a nil error. Selection and persistence failures are returned as
// *SelectionError and *PersistenceError.
func (o *Orchestrator) Run(ctx context.Context) (RunStatistics, error) {
	o.collector.Start(o.clock.Now())

	candidates, err := o.selector.Select(ctx, o.cfg)
	if err != nil {
		return o.collector.Finish(o.clock.Now()), err
	}
	o.collector.Selected(len(candidates))
	metrics.SetCandidatesPendingMetric(len(candidates))

	batches := partition(candidates, o.cfg.BatchSize)
	o.log.Infow("starting run",
		"mode", o.cfg.Mode(),
		"candidates", len(candidates),
		"batches", len(batches),
		"batch_size", o.cfg.BatchSize,
		"rate_limit", o.cfg.RateLimit,
		"call_interval", o.cfg.CallInterval(),
		"scope", o.cfg.Scope,
	)

	stopProgress := startProgress(ctx, o.collector, o.progressInterval, o.log)
	err = o.runBatches(ctx, batches, len(candidates))
	stopProgress()

	stats := o.collector.Finish(o.clock.Now())
	metrics.SetCandidatesPendingMetric(0)
	if err != nil {
		o.log.Errorw("run failed", "error", err, "processed", stats.TotalProcessed)
		return stats, err
	}

	o.log.Infow("run finished",
		"processed", stats.TotalProcessed,
		"registered", stats.Registered,
		"not_registered", stats.NotRegistered,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"aborted", stats.Aborted,
		"duration", stats.Duration,
	)
	return stats, nil
}

func (o *Orchestrator) runBatches(ctx context.Context, batches []model.CandidateList, total int) error {
	done := 0
	for i, batch := range batches {
		for _, candidate := range batch {
			if ctx.Err() != nil {
				o.abort(total - done)
				return nil
			}
			if err := o.pacer.Wait(ctx); err != nil {
				o.abort(total - done)
				return nil
			}

			// an interrupt lets the current candidate finish and persist
			if err := o.process(context.WithoutCancel(ctx), candidate); err != nil {
				return err
			}
			done++
		}
		o.collector.BatchDone()

		if i == len(batches)-1 {
			break
		}
		if ctx.Err() != nil {
			o.abort(total - done)
			return nil
		}
		o.collector.BatchPaused()
		o.log.Debugw("pausing between batches", "batch", i+1, "pause", o.cfg.BatchPause)
		if err := ratelimit.Sleep(ctx, o.clock, o.cfg.BatchPause); err != nil {
			o.abort(total - done)
			return nil
		}
	}
	return nil
}

func (o *Orchestrator) process(ctx context.Context, candidate model.Candidate) error {
	res := o.verifier.Verify(ctx, candidate.ExternalKey)
	o.collector.AddAttempts(res.Attempts)

	var (
		decision Decision
		label    string
	)
	if res.Succeeded() {
		decision = o.reconciler.Reconcile(res.Outcome, candidate.DistrictCode)
		label = res.Outcome.StatusLabel
	} else {
		decision = Failed(candidate.DistrictCode)
		logFailure := o.log.Warnw
		if registry.GetCategory(res.Err) == registry.ErrorAuthentication {
			logFailure = o.log.Errorw
		}
		logFailure("verification failed",
			"candidate_id", candidate.ID,
			"category", registry.GetCategory(res.Err),
			"attempts", res.Attempts,
			"error", res.Err,
		)
	}

	verifiedAt := o.clock.Now()
	update := model.VerificationUpdate{
		Status:       decision.Status,
		DistrictCode: decision.DistrictCode,
		VerifiedAt:   verifiedAt,
	}
	if err := o.writer.Write(ctx, candidate.ID, update); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			o.collector.Skip()
			o.log.Warnw("candidate removed before its update", "candidate_id", candidate.ID)
			return nil
		}
		return NewPersistenceError(candidate.ID, err)
	}

	o.collector.Record(decision.Status)
	o.log.Debugw("candidate reconciled",
		"candidate_id", candidate.ID,
		"previous_status", candidate.StatusID,
		"status", decision.Status,
		"attempts", res.Attempts,
	)

	entry := Entry{
		CandidateID:    candidate.ID,
		ExternalKey:    candidate.ExternalKey,
		PreviousStatus: candidate.StatusID,
		Status:         decision.Status,
		DistrictCode:   decision.DistrictCode,
		StatusLabel:    label,
		Attempts:       res.Attempts,
		Err:            res.Err,
		DryRun:         o.cfg.DryRun,
		VerifiedAt:     verifiedAt,
	}
	if res.Err != nil {
		entry.ErrorCategory = registry.GetCategory(res.Err)
	}
	for _, r := range o.recorders {
		r.Record(entry)
	}

	return nil
}

func (o *Orchestrator) abort(remaining int) {
	o.collector.Abort(remaining)
	o.log.Warnw("run interrupted", "remaining", remaining)
}

func partition(candidates model.CandidateList, size int) []model.CandidateList {
	if size <= 0 {
		panic(fmt.Sprintf("reconcile: invalid batch size %d", size))
	}
	batches := make([]model.CandidateList, 0, (len(candidates)+size-1)/size)
	for start := 0; start < len(candidates); start += size {
		end := min(start+size, len(candidates))
		batches = append(batches, candidates[start:end])
	}
	return batches
}
