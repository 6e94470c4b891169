package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/membreg/reconciler/internal/reconcile"
	"github.com/membreg/reconciler/internal/store/model"
	"github.com/thoas/go-funk"
	"sigs.k8s.io/yaml"
)

const (
	TableFormat = "table"
	JsonFormat  = "json"
	YamlFormat  = "yaml"
)

var (
	legalOutputTypes = []string{TableFormat, JsonFormat, YamlFormat}
)

func LegalOutputTypes() []string {
	return legalOutputTypes
}

// ValidateFormat accepts the empty string as table output.
func ValidateFormat(format string) error {
	if len(format) > 0 && !funk.Contains(legalOutputTypes, format) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

// Summary is the printable form of a run's statistics.
type Summary struct {
	RunID          string    `json:"runId"`
	Mode           string    `json:"mode"`
	Aborted        bool      `json:"aborted"`
	Selected       int       `json:"selected"`
	TotalProcessed int       `json:"totalProcessed"`
	Registered     int       `json:"registered"`
	NotRegistered  int       `json:"notRegistered"`
	Failed         int       `json:"failed"`
	Skipped        int       `json:"skipped"`
	Attempts       int       `json:"attempts"`
	Batches        int       `json:"batches"`
	BatchPauses    int       `json:"batchPauses"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	Duration       string    `json:"duration"`
}

func NewSummary(stats reconcile.RunStatistics) Summary {
	return Summary{
		RunID:          stats.RunID,
		Mode:           stats.Mode(),
		Aborted:        stats.Aborted,
		Selected:       stats.Selected,
		TotalProcessed: stats.TotalProcessed,
		Registered:     stats.Registered,
		NotRegistered:  stats.NotRegistered,
		Failed:         stats.Failed,
		Skipped:        stats.Skipped,
		Attempts:       stats.Attempts,
		Batches:        stats.Batches,
		BatchPauses:    stats.BatchPauses,
		StartedAt:      stats.StartedAt.UTC(),
		FinishedAt:     stats.FinishedAt.UTC(),
		Duration:       stats.Duration.Round(time.Millisecond).String(),
	}
}

// WriteSummary prints the run summary in the requested format.
func WriteSummary(w io.Writer, stats reconcile.RunStatistics, format string) error {
	s := NewSummary(stats)

	switch format {
	case JsonFormat, YamlFormat:
		return marshal(w, s, format)
	default:
		tw := tabwriter.NewWriter(w, 0, 8, 1, '\t', 0)
		fmt.Fprintf(tw, "RUN\t%s\n", s.RunID)
		fmt.Fprintf(tw, "MODE\t%s\n", s.Mode)
		if s.Aborted {
			fmt.Fprintf(tw, "ABORTED\ttrue\n")
		}
		fmt.Fprintf(tw, "SELECTED\t%d\n", s.Selected)
		fmt.Fprintf(tw, "PROCESSED\t%d\n", s.TotalProcessed)
		fmt.Fprintf(tw, "REGISTERED\t%d\n", s.Registered)
		fmt.Fprintf(tw, "NOT REGISTERED\t%d\n", s.NotRegistered)
		fmt.Fprintf(tw, "FAILED\t%d\n", s.Failed)
		fmt.Fprintf(tw, "SKIPPED\t%d\n", s.Skipped)
		fmt.Fprintf(tw, "ATTEMPTS\t%d\n", s.Attempts)
		fmt.Fprintf(tw, "BATCHES\t%d\n", s.Batches)
		fmt.Fprintf(tw, "BATCH PAUSES\t%d\n", s.BatchPauses)
		fmt.Fprintf(tw, "DURATION\t%s\n", s.Duration)
		return tw.Flush()
	}
}

type statusCount struct {
	Status string `json:"status"`
	Total  int64  `json:"total"`
}

// WriteStatusCounts prints the number of candidates per verification status.
func WriteStatusCounts(w io.Writer, counts []model.StatusCount, format string) error {
	out := make([]statusCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, statusCount{Status: c.Status.String(), Total: c.Total})
	}

	switch format {
	case JsonFormat, YamlFormat:
		return marshal(w, out, format)
	default:
		tw := tabwriter.NewWriter(w, 0, 8, 1, '\t', 0)
		fmt.Fprintln(tw, "STATUS\tCOUNT")
		for _, c := range out {
			fmt.Fprintf(tw, "%s\t%d\n", c.Status, c.Total)
		}
		return tw.Flush()
	}
}

func marshal(w io.Writer, v any, format string) error {
	var (
		marshalled []byte
		err        error
	)
	if format == YamlFormat {
		marshalled, err = yaml.Marshal(v)
	} else {
		marshalled, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshalling summary: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", string(marshalled))
	return err
}
