package notify

import (
	"context"
	"sync"
)

// target is one pending push.
type target struct {
	to   string
	text string
}

// PushError pairs a failed recipient with its error.
type PushError struct {
	To  string
	Err error
}

const defaultConcurrency = 4

// fanOut delivers to every target with at most `limit` pushes in flight.
// Each failure is captured individually; the batch always runs to
// completion. The returned slice holds only the failures.
func fanOut(ctx context.Context, limit int, targets []target, push func(ctx context.Context, to, text string) error) []PushError {
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []PushError
	)
	sem := make(chan struct{}, limit)

	for _, t := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(t target) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := push(ctx, t.to, t.text); err != nil {
				mu.Lock()
				errs = append(errs, PushError{To: t.to, Err: err})
				mu.Unlock()
			}
		}(t)
	}

	wg.Wait()
	return errs
}
