// Package memory provides an in-memory Store for tests and development.
package memory

import (
	"context"
	"sync"

	"github.com/Natts95/line-checkin-bot/store"
)

// Store keeps the append logs in slices. Safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	roster       []store.RosterRecord
	attendance   []store.AttendanceRecord
	transactions []store.TransactionRecord
	payouts      []store.PayoutRecord
	appendErr    error
}

func New() *Store { return &Store{} }

// SetAppendErr makes every subsequent append fail with err (nil to clear).
// Lets tests exercise the failed-but-logged persistence path.
func (m *Store) SetAppendErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}

func (m *Store) AppendRoster(_ context.Context, rec store.RosterRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.roster = append(m.roster, rec)
	return nil
}

func (m *Store) AppendAttendance(_ context.Context, rec store.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.attendance = append(m.attendance, rec)
	return nil
}

func (m *Store) AppendTransaction(_ context.Context, rec store.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.transactions = append(m.transactions, rec)
	return nil
}

func (m *Store) AppendPayout(_ context.Context, rec store.PayoutRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.payouts = append(m.payouts, rec)
	return nil
}

func (m *Store) ReadRoster(_ context.Context) ([]store.RosterRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.RosterRecord(nil), m.roster...), nil
}

func (m *Store) ReadAttendance(_ context.Context) ([]store.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.AttendanceRecord(nil), m.attendance...), nil
}

func (m *Store) ReadTransactions(_ context.Context) ([]store.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.TransactionRecord(nil), m.transactions...), nil
}

func (m *Store) ReadPayouts(_ context.Context) ([]store.PayoutRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.PayoutRecord(nil), m.payouts...), nil
}

// Payouts returns the payout log without a context, for test assertions.
func (m *Store) Payouts() []store.PayoutRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.PayoutRecord(nil), m.payouts...)
}

func (m *Store) Close() error { return nil }
