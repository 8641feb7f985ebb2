package store

import (
	"context"
	"log"
	"time"
)

// =============================================================================
// RETRY WRAPPER - One bounded retry at the collaborator boundary
// =============================================================================

// Retrying wraps a Store and retries each failed call once after a short
// delay. A hung or flaky external dependency gets exactly one second chance;
// after that the error propagates and the caller logs-and-continues.
type Retrying struct {
	Inner Store
	Delay time.Duration
}

// WithRetry wraps a store with the default retry delay.
func WithRetry(inner Store) *Retrying {
	return &Retrying{Inner: inner, Delay: 500 * time.Millisecond}
}

func (r *Retrying) retry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	log.Printf("[Store] %s failed, retrying once: %v", op, err)

	select {
	case <-time.After(r.Delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn()
}

func (r *Retrying) AppendRoster(ctx context.Context, rec RosterRecord) error {
	return r.retry(ctx, "append roster", func() error { return r.Inner.AppendRoster(ctx, rec) })
}

func (r *Retrying) AppendAttendance(ctx context.Context, rec AttendanceRecord) error {
	return r.retry(ctx, "append attendance", func() error { return r.Inner.AppendAttendance(ctx, rec) })
}

func (r *Retrying) AppendTransaction(ctx context.Context, rec TransactionRecord) error {
	return r.retry(ctx, "append transaction", func() error { return r.Inner.AppendTransaction(ctx, rec) })
}

func (r *Retrying) AppendPayout(ctx context.Context, rec PayoutRecord) error {
	return r.retry(ctx, "append payout", func() error { return r.Inner.AppendPayout(ctx, rec) })
}

func (r *Retrying) ReadRoster(ctx context.Context) ([]RosterRecord, error) {
	var recs []RosterRecord
	err := r.retry(ctx, "read roster", func() error {
		var err error
		recs, err = r.Inner.ReadRoster(ctx)
		return err
	})
	return recs, err
}

func (r *Retrying) ReadAttendance(ctx context.Context) ([]AttendanceRecord, error) {
	var recs []AttendanceRecord
	err := r.retry(ctx, "read attendance", func() error {
		var err error
		recs, err = r.Inner.ReadAttendance(ctx)
		return err
	})
	return recs, err
}

func (r *Retrying) ReadTransactions(ctx context.Context) ([]TransactionRecord, error) {
	var recs []TransactionRecord
	err := r.retry(ctx, "read transactions", func() error {
		var err error
		recs, err = r.Inner.ReadTransactions(ctx)
		return err
	})
	return recs, err
}

func (r *Retrying) ReadPayouts(ctx context.Context) ([]PayoutRecord, error) {
	var recs []PayoutRecord
	err := r.retry(ctx, "read payouts", func() error {
		var err error
		recs, err = r.Inner.ReadPayouts(ctx)
		return err
	})
	return recs, err
}

func (r *Retrying) Close() error { return r.Inner.Close() }
