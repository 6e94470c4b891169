package reconcile

import (
	"sync"
	"time"

	"github.com/membreg/reconciler/internal/store/model"
	"github.com/membreg/reconciler/pkg/metrics"
)

// RunStatistics summarizes one run.
type RunStatistics struct {
	RunID          string        `json:"run_id"`
	DryRun         bool          `json:"dry_run"`
	Aborted        bool          `json:"aborted"`
	Selected       int           `json:"selected"`
	TotalProcessed int           `json:"total_processed"`
	Registered     int           `json:"registered"`
	NotRegistered  int           `json:"not_registered"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"`
	Attempts       int           `json:"attempts"`
	Batches        int           `json:"batches"`
	BatchPauses    int           `json:"batch_pauses"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Duration       time.Duration `json:"duration"`
}

func (s RunStatistics) Mode() string {
	if s.DryRun {
		return "dry-run"
	}
	return "live"
}

// Collector accumulates the statistics of a run. Counters only grow.
// It is safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	stats RunStatistics
}

func NewCollector(runID string, dryRun bool) *Collector {
	return &Collector{stats: RunStatistics{RunID: runID, DryRun: dryRun}}
}

func (c *Collector) Start(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.StartedAt = at
}

func (c *Collector) Selected(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Selected = n
}

// Record counts one processed candidate under its resulting status.
func (c *Collector) Record(status model.VerificationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.TotalProcessed++
	switch status {
	case model.StatusRegistered:
		c.stats.Registered++
	case model.StatusNotRegistered:
		c.stats.NotRegistered++
	default:
		c.stats.Failed++
	}
	metrics.IncreaseCandidatesTotalMetric(status.String(), c.stats.DryRun)
}

func (c *Collector) AddAttempts(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Attempts += n
}

func (c *Collector) BatchDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Batches++
}

func (c *Collector) BatchPaused() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.BatchPauses++
	metrics.IncreaseBatchPausesMetric()
}

// Skip counts a selected candidate that could not be written because it no longer exists.
func (c *Collector) Skip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Skipped++
}

// Abort marks the run as interrupted with remaining candidates left untouched.
func (c *Collector) Abort(remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Aborted = true
	if remaining > 0 {
		c.stats.Skipped += remaining
	}
}

func (c *Collector) Finish(at time.Time) RunStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.FinishedAt = at
	c.stats.Duration = at.Sub(c.stats.StartedAt)
	return c.stats
}

func (c *Collector) Snapshot() RunStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
