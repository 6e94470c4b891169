package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/membreg/reconciler/internal/reconcile"
	"github.com/xuri/excelize/v2"
)

const (
	candidatesSheet = "Candidates"
	summarySheet    = "Summary"
)

var auditHeaders = []string{
	"Candidate ID", "External Key", "Previous Status", "Status", "District",
	"Status Label", "Attempts", "Error Category", "Error", "Dry Run", "Verified At",
}

// Audit collects one row per processed candidate and renders them as an XLSX workbook.
type Audit struct {
	mu      sync.Mutex
	entries []reconcile.Entry
}

var _ reconcile.Recorder = (*Audit)(nil)

func NewAudit() *Audit {
	return &Audit{entries: make([]reconcile.Entry, 0)}
}

func (a *Audit) Record(e reconcile.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *Audit) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// WriteTo renders the workbook with the candidate rows and the run summary.
func (a *Audit) WriteTo(w io.Writer, stats reconcile.RunStatistics) error {
	f, err := a.build(stats)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing audit report: %w", err)
	}
	return nil
}

// Save writes the workbook to path.
func (a *Audit) Save(path string, stats reconcile.RunStatistics) error {
	f, err := a.build(stats)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving audit report to %s: %w", path, err)
	}
	return nil
}

func (a *Audit) build(stats reconcile.RunStatistics) (*excelize.File, error) {
	a.mu.Lock()
	entries := make([]reconcile.Entry, len(a.entries))
	copy(entries, a.entries)
	a.mu.Unlock()

	f := excelize.NewFile()

	sheetIndex, err := f.NewSheet(candidatesSheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(sheetIndex)
	_ = f.DeleteSheet("Sheet1")

	for col, header := range auditHeaders {
		if err := f.SetCellValue(candidatesSheet, cellRef(col, 1), header); err != nil {
			f.Close()
			return nil, err
		}
	}

	for i, e := range entries {
		row := i + 2
		values := []any{
			e.CandidateID,
			e.ExternalKey,
			e.PreviousStatus.String(),
			e.Status.String(),
			deref(e.DistrictCode),
			e.StatusLabel,
			e.Attempts,
			string(e.ErrorCategory),
			errString(e.Err),
			e.DryRun,
			e.VerifiedAt.UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			if err := f.SetCellValue(candidatesSheet, cellRef(col, row), v); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	s := NewSummary(stats)
	summary := [][]any{
		{"Run ID", s.RunID},
		{"Mode", s.Mode},
		{"Aborted", s.Aborted},
		{"Selected", s.Selected},
		{"Processed", s.TotalProcessed},
		{"Registered", s.Registered},
		{"Not Registered", s.NotRegistered},
		{"Failed", s.Failed},
		{"Skipped", s.Skipped},
		{"Attempts", s.Attempts},
		{"Batches", s.Batches},
		{"Batch Pauses", s.BatchPauses},
		{"Started At", s.StartedAt.Format(time.RFC3339)},
		{"Finished At", s.FinishedAt.Format(time.RFC3339)},
		{"Duration", s.Duration},
	}
	for i, kv := range summary {
		for col, v := range kv {
			if err := f.SetCellValue(summarySheet, cellRef(col, i+1), v); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	return f, nil
}

func cellRef(col, row int) string {
	name, _ := excelize.ColumnNumberToName(col + 1)
	return fmt.Sprintf("%s%d", name, row)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
