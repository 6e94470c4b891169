// Package clocktest drives a fake clock forward whenever something is waiting on it,
// so code that sleeps through an injected clock runs in virtual time.
package clocktest

import (
	"sync"
	"time"

	testingclock "k8s.io/utils/clock/testing"
)

const DefaultQuantum = 10 * time.Millisecond

// AutoStep advances fc by quantum each time it has pending timers. The returned
// function stops the stepping goroutine and waits for it to exit.
func AutoStep(fc *testingclock.FakeClock, quantum time.Duration) (stop func()) {
	if quantum <= 0 {
		quantum = DefaultQuantum
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if fc.HasWaiters() {
				fc.Step(quantum)
				continue
			}
			time.Sleep(50 * time.Microsecond)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
