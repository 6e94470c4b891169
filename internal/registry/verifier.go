package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/membreg/reconciler/internal/ratelimit"
	"github.com/membreg/reconciler/pkg/metrics"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

const (
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultCallTimeout = 10 * time.Second
)

// Result is the outcome of a verification including every retry.
// Exactly one of Outcome and Err is set once Attempts > 0; a key rejected
// by validation carries Err with zero Attempts.
type Result struct {
	Outcome  *Outcome
	Err      error
	Attempts int
}

func (r Result) Succeeded() bool {
	return r.Err == nil && r.Outcome != nil
}

// Verifier calls the registry for one key with bounded retries.
type Verifier struct {
	client      Client
	validator   *KeyValidator
	clock       clock.Clock
	maxRetries  int
	retryDelay  time.Duration
	callTimeout time.Duration
	pacer       *ratelimit.Pacer
	log         *zap.SugaredLogger
}

type VerifierOption func(*Verifier)

func WithClock(c clock.Clock) VerifierOption {
	return func(v *Verifier) {
		v.clock = c
	}
}

func WithRetries(maxRetries int, delay time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.maxRetries = maxRetries
		v.retryDelay = delay
	}
}

func WithCallTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.callTimeout = d
	}
}

// WithPacer makes every retry also wait for the pacer, so retries count against the rate ceiling.
func WithPacer(p *ratelimit.Pacer) VerifierOption {
	return func(v *Verifier) {
		v.pacer = p
	}
}

func WithKeyLength(n int) VerifierOption {
	return func(v *Verifier) {
		v.validator = NewKeyValidator(n)
	}
}

func NewVerifier(client Client, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		client:      client,
		validator:   NewKeyValidator(DefaultKeyLength),
		clock:       clock.RealClock{},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		callTimeout: DefaultCallTimeout,
		log:         zap.S().Named("verifier"),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.maxRetries < 1 {
		v.maxRetries = 1
	}
	return v
}

// Verify resolves key against the registry. Transient failures are retried
// up to the configured number of attempts, waiting retryDelay between them;
// any other failure ends the loop at once. A retry wait interrupted by ctx
// ends the loop with the last error.
func (v *Verifier) Verify(ctx context.Context, key string) Result {
	if err := v.validator.Validate(key); err != nil {
		metrics.IncreaseVerifyAttemptsMetric(string(ErrorTerminalInput))
		return Result{Err: err}
	}

	var res Result
	for attempt := 1; attempt <= v.maxRetries; attempt++ {
		res.Attempts = attempt

		outcome, err := v.call(ctx, key)
		if err == nil {
			metrics.IncreaseVerifyAttemptsMetric("success")
			res.Outcome = outcome
			res.Err = nil
			return res
		}

		res.Err = err
		metrics.IncreaseVerifyAttemptsMetric(string(GetCategory(err)))

		if !IsRetryable(err) {
			v.log.Debugw("registry lookup failed", "key", key, "attempt", attempt, "category", GetCategory(err), "error", err)
			return res
		}

		if attempt == v.maxRetries {
			break
		}

		v.log.Infow("retrying registry lookup", "key", key, "attempt", attempt, "max_attempts", v.maxRetries, "delay", v.retryDelay, "error", err)
		if err := ratelimit.Sleep(ctx, v.clock, v.retryDelay); err != nil {
			return res
		}
		if v.pacer != nil {
			if err := v.pacer.Wait(ctx); err != nil {
				return res
			}
		}
	}

	res.Err = fmt.Errorf("retries exhausted after %d attempts: %w", res.Attempts, res.Err)
	return res
}

func (v *Verifier) call(ctx context.Context, key string) (*Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()

	start := v.clock.Now()
	defer func() {
		metrics.ObserveVerifyDuration(float64(v.clock.Since(start).Milliseconds()))
	}()

	outcome, err := v.client.Lookup(callCtx, key)
	if err != nil {
		// a client that does not classify its errors is treated as a network failure
		var re *Error
		if !errors.As(err, &re) {
			return nil, NewTransientError(key, "registry call failed", err)
		}
		return nil, err
	}
	if outcome == nil {
		return nil, NewNoDataError(key)
	}
	return outcome, nil
}
