package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

// startProgress logs the collector state every interval until the returned stop function is called.
func startProgress(ctx context.Context, collector *Collector, interval time.Duration, log *zap.SugaredLogger) (stop func()) {
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := jitterbug.New(interval, &jitterbug.Norm{Stdev: 30 * time.Millisecond, Mean: 0})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			s := collector.Snapshot()
			log.Infow("progress",
				"processed", s.TotalProcessed,
				"selected", s.Selected,
				"registered", s.Registered,
				"not_registered", s.NotRegistered,
				"failed", s.Failed,
				"attempts", s.Attempts,
				"batches", s.Batches,
			)
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}
