package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/membreg/reconciler/internal/reconcile"
	"github.com/membreg/reconciler/internal/registry"
	"github.com/membreg/reconciler/internal/report"
	"github.com/membreg/reconciler/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
	"sigs.k8s.io/yaml"
)

func sampleStats() reconcile.RunStatistics {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return reconcile.RunStatistics{
		RunID:          "3f7c0c8e-7a43-4d0f-9d0e-8f6a9a1c2b11",
		DryRun:         true,
		Selected:       5,
		TotalProcessed: 5,
		Registered:     3,
		NotRegistered:  1,
		Failed:         1,
		Attempts:       9,
		Batches:        3,
		BatchPauses:    2,
		StartedAt:      start,
		FinishedAt:     start.Add(16 * time.Second),
		Duration:       16 * time.Second,
	}
}

var _ = Describe("summary", func() {
	It("validates output formats", func() {
		Expect(report.ValidateFormat("")).To(Succeed())
		Expect(report.ValidateFormat("table")).To(Succeed())
		Expect(report.ValidateFormat("json")).To(Succeed())
		Expect(report.ValidateFormat("yaml")).To(Succeed())
		Expect(report.ValidateFormat("xml")).To(MatchError(ContainSubstring("output format must be one of")))
	})

	It("prints a table", func() {
		var buf bytes.Buffer
		Expect(report.WriteSummary(&buf, sampleStats(), "")).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("dry-run"))
		Expect(out).To(MatchRegexp(`PROCESSED\s+5`))
		Expect(out).To(MatchRegexp(`NOT REGISTERED\s+1`))
		Expect(out).To(MatchRegexp(`BATCH PAUSES\s+2`))
		Expect(out).To(MatchRegexp(`DURATION\s+16s`))
		Expect(out).ToNot(ContainSubstring("ABORTED"))
	})

	It("flags aborted runs", func() {
		stats := sampleStats()
		stats.Aborted = true
		stats.Skipped = 2

		var buf bytes.Buffer
		Expect(report.WriteSummary(&buf, stats, report.TableFormat)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("ABORTED"))
		Expect(buf.String()).To(MatchRegexp(`SKIPPED\s+2`))
	})

	It("prints json", func() {
		var buf bytes.Buffer
		Expect(report.WriteSummary(&buf, sampleStats(), report.JsonFormat)).To(Succeed())

		var s report.Summary
		Expect(json.Unmarshal(buf.Bytes(), &s)).To(Succeed())
		Expect(s.Mode).To(Equal("dry-run"))
		Expect(s.TotalProcessed).To(Equal(5))
		Expect(s.Duration).To(Equal("16s"))
	})

	It("prints yaml", func() {
		var buf bytes.Buffer
		Expect(report.WriteSummary(&buf, sampleStats(), report.YamlFormat)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("totalProcessed: 5"))

		var s report.Summary
		Expect(yaml.Unmarshal(buf.Bytes(), &s)).To(Succeed())
		Expect(s.Registered).To(Equal(3))
	})

	It("prints status counts", func() {
		counts := []model.StatusCount{
			{Status: model.StatusUnknown, Total: 12},
			{Status: model.StatusRegistered, Total: 40},
		}

		var buf bytes.Buffer
		Expect(report.WriteStatusCounts(&buf, counts, "")).To(Succeed())
		Expect(buf.String()).To(MatchRegexp(`unknown\s+12`))
		Expect(buf.String()).To(MatchRegexp(`registered\s+40`))

		buf.Reset()
		Expect(report.WriteStatusCounts(&buf, counts, report.JsonFormat)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(`{"status":"registered","total":40}`))
	})
})

var _ = Describe("audit", func() {
	var audit *report.Audit

	BeforeEach(func() {
		district := "0412"
		audit = report.NewAudit()
		audit.Record(reconcile.Entry{
			CandidateID:    1,
			ExternalKey:    "0123456789",
			PreviousStatus: model.StatusUnknown,
			Status:         model.StatusRegistered,
			DistrictCode:   &district,
			StatusLabel:    "ACTIVE",
			Attempts:       1,
			DryRun:         true,
			VerifiedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		})
		audit.Record(reconcile.Entry{
			CandidateID:    2,
			ExternalKey:    "0123456790",
			PreviousStatus: model.StatusVerificationFailed,
			Status:         model.StatusVerificationFailed,
			Attempts:       3,
			ErrorCategory:  registry.ErrorTransient,
			Err:            errors.New("retries exhausted after 3 attempts"),
			DryRun:         true,
			VerifiedAt:     time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC),
		})
	})

	It("renders one row per candidate", func() {
		Expect(audit.Len()).To(Equal(2))

		var buf bytes.Buffer
		Expect(audit.WriteTo(&buf, sampleStats())).To(Succeed())

		f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
		Expect(err).To(BeNil())
		defer f.Close()

		rows, err := f.GetRows("Candidates")
		Expect(err).To(BeNil())
		Expect(rows).To(HaveLen(3))
		Expect(rows[0][0]).To(Equal("Candidate ID"))
		Expect(rows[1][1]).To(Equal("0123456789"))
		Expect(rows[1][3]).To(Equal("registered"))
		Expect(rows[1][4]).To(Equal("0412"))
		Expect(rows[2][2]).To(Equal("verification_failed"))
		Expect(rows[2][7]).To(Equal("transient"))
		Expect(rows[2][8]).To(ContainSubstring("retries exhausted"))

		summary, err := f.GetRows("Summary")
		Expect(err).To(BeNil())
		Expect(summary[1]).To(Equal([]string{"Mode", "dry-run"}))
	})

	It("saves to a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "audit.xlsx")
		Expect(audit.Save(path, sampleStats())).To(Succeed())

		content, err := os.ReadFile(path)
		Expect(err).To(BeNil())
		Expect(content[:2]).To(Equal([]byte{0x50, 0x4B}))
	})
})

var _ = Describe("uploader", func() {
	It("requires an endpoint and a bucket", func() {
		_, err := report.NewMinioUploader(report.WithBucket("reports"))
		Expect(err).ToNot(BeNil())

		_, err = report.NewMinioUploader(report.WithEndpoint("localhost:9000"))
		Expect(err).ToNot(BeNil())
	})

	It("puts the report in the bucket", func() {
		var (
			mu   sync.Mutex
			puts []string
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			if _, ok := r.URL.Query()["location"]; ok {
				w.Header().Set("Content-Type", "application/xml")
				_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`))
				return
			}
			if r.Method == http.MethodPut {
				mu.Lock()
				puts = append(puts, r.URL.Path)
				mu.Unlock()
				w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotImplemented)
		}))
		defer server.Close()

		path := filepath.Join(GinkgoT().TempDir(), "audit.xlsx")
		Expect(report.NewAudit().Save(path, sampleStats())).To(Succeed())

		u, err := report.NewMinioUploader(
			report.WithEndpoint(strings.TrimPrefix(server.URL, "http://")),
			report.WithBucket("reports"),
			report.WithAccessKey("access"),
			report.WithSecretKey("secret"),
			report.WithSSL(false),
		)
		Expect(err).To(BeNil())

		Expect(u.Upload(context.TODO(), "runs/audit.xlsx", path)).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(puts).To(ContainElement("/reports/runs/audit.xlsx"))
	})
})
