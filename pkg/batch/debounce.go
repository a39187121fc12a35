package batch

import (
	"context"
	"time"
)

// Debounce calls render once events have been quiet for wait. Renders run in
// their own goroutine and never overlap, so events keep draining while one is
// in progress; a quiet period that ends mid-render queues exactly one more.
// Debounce returns when ctx is done or events is closed, after any render in
// progress has finished.
func Debounce(ctx context.Context, events <-chan struct{}, wait time.Duration, render func()) {
	timer := time.NewTimer(wait)
	timer.Stop()
	defer timer.Stop()

	done := make(chan struct{})
	busy, pending := false, false

	for {
		select {
		case <-ctx.Done():
			if busy {
				<-done
			}
			return
		case _, ok := <-events:
			if !ok {
				if busy {
					<-done
				}
				return
			}
			timer.Reset(wait)
		case <-timer.C:
			if busy {
				pending = true
				continue
			}
			busy = true
			go func() {
				render()
				done <- struct{}{}
			}()
		case <-done:
			busy = false
			if pending {
				pending = false
				timer.Reset(wait)
			}
		}
	}
}
