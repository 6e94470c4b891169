package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/membreg/reconciler/internal/config"
	"github.com/membreg/reconciler/internal/ratelimit"
	"github.com/membreg/reconciler/internal/reconcile"
	"github.com/membreg/reconciler/internal/registry"
	"github.com/membreg/reconciler/internal/report"
	"github.com/membreg/reconciler/pkg/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

type RunOptions struct {
	DryRun     bool
	BatchSize  int
	RateLimit  int
	Scope      string
	Limit      int
	ReportPath string
	Output     string

	cfg    *config.Config
	runCfg reconcile.RunConfig
}

func DefaultRunOptions() *RunOptions {
	return &RunOptions{
		BatchSize: reconcile.DefaultBatchSize,
		RateLimit: reconcile.DefaultRateLimit,
	}
}

func NewCmdRun() *cobra.Command {
	o := DefaultRunOptions()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Verify the pending candidates against the registry and store the outcome.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd, args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *RunOptions) Bind(fs *pflag.FlagSet) {
	fs.BoolVar(&o.DryRun, "dry-run", o.DryRun, "Verify candidates without writing anything to the database.")
	fs.IntVar(&o.BatchSize, "batch-size", o.BatchSize, "Number of candidates processed between two pauses.")
	fs.IntVar(&o.RateLimit, "rate-limit", o.RateLimit, "Maximum number of registry calls per minute.")
	fs.StringVar(&o.Scope, "scope", o.Scope, "Only select candidates of this scope code.")
	fs.IntVar(&o.Limit, "limit", o.Limit, "Maximum number of candidates to select. 0 selects all of them.")
	fs.StringVar(&o.ReportPath, "report", o.ReportPath, "Write an XLSX audit of every processed candidate to this path.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Summary format. One of: (%s).", strings.Join(report.LegalOutputTypes(), ", ")))
}

// Complete merges the flags into the environment configuration. Flags win when set.
func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}
	o.cfg = cfg

	rc := reconcile.NewRunConfig(cfg)
	flags := cmd.Flags()
	if flags.Changed("batch-size") {
		rc.BatchSize = o.BatchSize
	}
	if flags.Changed("rate-limit") {
		rc.RateLimit = o.RateLimit
	}
	rc.DryRun = o.DryRun
	rc.Scope = o.Scope
	rc.Limit = o.Limit
	o.runCfg = rc

	return nil
}

func (o *RunOptions) Validate(args []string) error {
	if err := report.ValidateFormat(o.Output); err != nil {
		return err
	}
	if o.ReportPath != "" && filepath.Ext(o.ReportPath) != ".xlsx" {
		return fmt.Errorf("report path must end with .xlsx")
	}
	return o.runCfg.Validate()
}

func (o *RunOptions) Run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	undo := initLogging(o.cfg)
	defer undo()

	log := zap.S().Named("run")
	log.Infof("Using config: %s", o.cfg)

	s, err := openStore(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if addr := o.cfg.Service.MetricsAddress; addr != "" {
		stopMetrics, err := serveMetrics(ctx, addr)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	clk := clock.RealClock{}
	pacer := ratelimit.NewPacer(o.runCfg.RateLimit, clk)
	client := registry.NewHTTPClient(o.cfg.Registry.BaseUrl, o.cfg.Registry.ApiKey, o.runCfg.CallTimeout)
	verifier := registry.NewVerifier(client, o.runCfg.VerifierOptions(clk, pacer)...)

	opts := []reconcile.Option{
		reconcile.WithClock(clk),
		reconcile.WithPacer(pacer),
		reconcile.WithProgressInterval(o.cfg.Service.ProgressInterval),
	}
	var audit *report.Audit
	if o.ReportPath != "" {
		audit = report.NewAudit()
		opts = append(opts, reconcile.WithRecorder(audit))
	}

	orchestrator, err := reconcile.NewOrchestrator(o.runCfg, s.Candidate(), verifier, opts...)
	if err != nil {
		return err
	}

	stats, err := orchestrator.Run(ctx)
	if err != nil {
		log.Errorw("run failed", "run_id", orchestrator.RunID(), "error", err)
		return err
	}

	if audit != nil {
		if err := o.saveReport(cmd.Context(), audit, stats); err != nil {
			return err
		}
	}

	return report.WriteSummary(cmd.OutOrStdout(), stats, o.Output)
}

func (o *RunOptions) saveReport(ctx context.Context, audit *report.Audit, stats reconcile.RunStatistics) error {
	if err := audit.Save(o.ReportPath, stats); err != nil {
		return err
	}
	zap.S().Named("run").Infow("audit report written", "path", o.ReportPath, "rows", audit.Len())

	rc := o.cfg.Report
	if rc == nil || rc.Bucket == "" {
		return nil
	}

	uploader, err := report.NewMinioUploader(
		report.WithEndpoint(rc.Endpoint),
		report.WithBucket(rc.Bucket),
		report.WithAccessKey(rc.AccessKey),
		report.WithSecretKey(rc.SecretKey),
		report.WithSSL(rc.UseSSL),
	)
	if err != nil {
		return err
	}

	objectName := fmt.Sprintf("%s/%s", stats.RunID, filepath.Base(o.ReportPath))
	return uploader.Upload(ctx, objectName, o.ReportPath)
}

// serveMetrics starts the metrics server in the background. The returned function stops it.
func serveMetrics(ctx context.Context, addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("creating listener: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	server := metrics.NewServer(addr, listener)
	go func() {
		defer close(done)
		if err := server.Run(ctx); err != nil {
			zap.S().Named("metrics_server").Errorw("metrics server stopped", "error", err)
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
