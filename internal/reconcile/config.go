package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/membreg/reconciler/internal/config"
	"github.com/membreg/reconciler/internal/ratelimit"
	"github.com/membreg/reconciler/internal/registry"
	"k8s.io/utils/clock"
)

const (
	DefaultBatchSize    = 100
	DefaultRateLimit    = 60
	DefaultBatchPause   = 5 * time.Second
	DefaultSentinelCode = "0000"
)

// RunConfig holds the parameters of one run. It is passed by value and never changes once a run starts.
type RunConfig struct {
	DryRun    bool
	BatchSize int    `validate:"gte=1"`
	RateLimit int    `validate:"gte=1"`
	Scope     string `validate:"omitempty,max=32"`
	// Limit caps the number of selected candidates. Zero means no cap.
	Limit int `validate:"gte=0"`

	BatchPause   time.Duration `validate:"gte=0"`
	MaxRetries   int           `validate:"gte=1"`
	RetryDelay   time.Duration `validate:"gte=0"`
	CallTimeout  time.Duration `validate:"gt=0"`
	KeyLength    int           `validate:"gte=1"`
	SentinelCode string
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		BatchSize:    DefaultBatchSize,
		RateLimit:    DefaultRateLimit,
		BatchPause:   DefaultBatchPause,
		MaxRetries:   registry.DefaultMaxRetries,
		RetryDelay:   registry.DefaultRetryDelay,
		CallTimeout:  registry.DefaultCallTimeout,
		KeyLength:    registry.DefaultKeyLength,
		SentinelCode: DefaultSentinelCode,
	}
}

// NewRunConfig builds a RunConfig from the process configuration.
func NewRunConfig(cfg *config.Config) RunConfig {
	rc := DefaultRunConfig()
	if cfg == nil {
		return rc
	}
	if r := cfg.Reconcile; r != nil {
		rc.BatchSize = r.BatchSize
		rc.RateLimit = r.RateLimit
		rc.BatchPause = r.BatchPause
		rc.MaxRetries = r.MaxRetries
		rc.RetryDelay = r.RetryDelay
		rc.SentinelCode = r.SentinelCode
	}
	if r := cfg.Registry; r != nil {
		rc.CallTimeout = r.CallTimeout
		rc.KeyLength = r.KeyLength
	}
	return rc
}

func (c RunConfig) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRunConfig, strings.Join(msgs, "; "))
}

// CallInterval is the minimum spacing between two registry calls.
func (c RunConfig) CallInterval() time.Duration {
	return ratelimit.DelayFor(c.RateLimit)
}

func (c RunConfig) Mode() string {
	if c.DryRun {
		return "dry-run"
	}
	return "live"
}

// VerifierOptions returns the registry verifier settings matching this run.
func (c RunConfig) VerifierOptions(clk clock.Clock, pacer *ratelimit.Pacer) []registry.VerifierOption {
	return []registry.VerifierOption{
		registry.WithClock(clk),
		registry.WithRetries(c.MaxRetries, c.RetryDelay),
		registry.WithCallTimeout(c.CallTimeout),
		registry.WithKeyLength(c.KeyLength),
		registry.WithPacer(pacer),
	}
}
