package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/ngrok/sqlmw"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsDriverName is the pgx driver wrapped with the metric interceptor.
const metricsDriverName = "pgx-metrics"

var (
	opRegex     = regexp.MustCompile(`^\w+`)
	pgOpLatency *prometheus.HistogramVec
	pgOpTotal   *prometheus.CounterVec
)

type metricInterceptor struct {
	sqlmw.NullInterceptor
}

func init() {
	pgOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "pg_op_duration_milliseconds",
		Help:      "Time spent on a postgres operation",
		Subsystem: "reconciler",
		Buckets:   []float64{100, 300, 500, 1000, 5000},
	},
		[]string{"op", "method"},
	)
	pgOpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "pg_op_total",
		Help:      "Number of postgres operations",
		Subsystem: "reconciler",
	},
		[]string{"op"},
	)

	prometheus.MustRegister(pgOpLatency)
	prometheus.MustRegister(pgOpTotal)

	sql.Register(metricsDriverName, sqlmw.Driver(stdlib.GetDefaultDriver(), &metricInterceptor{}))
}

func (mi *metricInterceptor) ConnBeginTx(ctx context.Context, conn driver.ConnBeginTx, opts driver.TxOptions) (context.Context, driver.Tx, error) {
	defer mi.measure("conn-begin-tx", "begin", time.Now())

	tx, err := conn.BeginTx(ctx, opts)
	return ctx, tx, err
}

func (mi *metricInterceptor) ConnPing(ctx context.Context, conn driver.Pinger) error {
	defer mi.measure("conn-ping", "ping", time.Now())

	return conn.Ping(ctx)
}

func (mi *metricInterceptor) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	defer mi.measure("conn-exec-context", statementVerb(query, "exec"), time.Now())

	return conn.ExecContext(ctx, query, args)
}

func (mi *metricInterceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	defer mi.measure("conn-query-context", statementVerb(query, "query"), time.Now())

	rows, err := conn.QueryContext(ctx, query, args)
	return ctx, rows, err
}

func (mi *metricInterceptor) StmtExecContext(ctx context.Context, conn driver.StmtExecContext, query string, args []driver.NamedValue) (driver.Result, error) {
	defer mi.measure("stmt-exec-context", statementVerb(query, "exec"), time.Now())

	return conn.ExecContext(ctx, args)
}

func (mi *metricInterceptor) StmtQueryContext(ctx context.Context, conn driver.StmtQueryContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	defer mi.measure("stmt-query-context", statementVerb(query, "query"), time.Now())

	rows, err := conn.QueryContext(ctx, args)
	return ctx, rows, err
}

func (mi *metricInterceptor) TxCommit(ctx context.Context, conn driver.Tx) error {
	defer mi.measure("tx-commit", "commit", time.Now())
	return conn.Commit()
}

func (mi *metricInterceptor) TxRollback(ctx context.Context, conn driver.Tx) error {
	defer mi.measure("tx-rollback", "rollback", time.Now())
	return conn.Rollback()
}

func (mi *metricInterceptor) measure(op, method string, start time.Time) {
	pgOpTotal.With(prometheus.Labels{"op": op}).Inc()
	pgOpLatency.With(prometheus.Labels{
		"op":     op,
		"method": method,
	}).Observe(float64(time.Since(start).Milliseconds()))
}

// statementVerb returns the leading SQL keyword of query, lower cased.
func statementVerb(query, fallback string) string {
	if m := opRegex.FindString(strings.TrimSpace(query)); m != "" {
		return strings.ToLower(m)
	}
	return fallback
}
