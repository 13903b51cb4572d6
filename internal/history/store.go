package history

import (
	"context"
	"slices"

	"github.com/Simplici0/dairycalc/internal/pricing"
)

// StorageKey is the key the calculation history is stored under.
const StorageKey = "@milk_calculator_history"

// KeyValueStore is the persistence capability the history depends on.
// Get reports false when the key holds no value.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Store owns the ordered calculation history, newest first, and mirrors it
// into a KeyValueStore under a single key. It is not safe for concurrent use.
type Store struct {
	kv      KeyValueStore
	key     string
	limit   int
	records []pricing.Result
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides StorageKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLimit keeps at most n records, dropping the oldest on append.
// Zero or a negative n keeps everything.
func WithLimit(n int) Option {
	return func(s *Store) { s.limit = n }
}

// NewStore returns an empty Store backed by kv. Call Load to read what is
// already persisted.
func NewStore(kv KeyValueStore, opts ...Option) *Store {
	s := &Store{kv: kv, key: StorageKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory history with the persisted one. A missing key
// yields an empty history. A value that does not decode is reported as
// *CorruptHistoryError and the history is reset to empty. A failed read is
// reported as *PersistenceError and leaves the in-memory history untouched.
func (s *Store) Load(ctx context.Context) ([]pricing.Result, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return s.Records(), &PersistenceError{Op: "read", Key: s.key, Err: err}
	}
	if !ok {
		s.records = nil
		return s.Records(), nil
	}

	records, err := Decode(raw)
	if err != nil {
		s.records = nil
		return s.Records(), &CorruptHistoryError{Key: s.key, Err: err}
	}
	s.records = s.capped(records)
	return s.Records(), nil
}

// Append puts r at the front of the history and persists the whole list.
// On a write failure the in-memory prepend is kept and *PersistenceError is
// returned with the updated history.
func (s *Store) Append(ctx context.Context, r pricing.Result) ([]pricing.Result, error) {
	next := make([]pricing.Result, 0, len(s.records)+1)
	next = append(next, r)
	next = append(next, s.records...)
	s.records = s.capped(next)

	raw, err := Encode(s.records)
	if err != nil {
		return s.Records(), &PersistenceError{Op: "encode", Key: s.key, Err: err}
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return s.Records(), &PersistenceError{Op: "write", Key: s.key, Err: err}
	}
	return s.Records(), nil
}

// Clear empties the history and removes the stored value. Removing a key that
// was never written is not an error.
func (s *Store) Clear(ctx context.Context) error {
	s.records = nil
	if err := s.kv.Remove(ctx, s.key); err != nil {
		return &PersistenceError{Op: "remove", Key: s.key, Err: err}
	}
	return nil
}

// Records returns a copy of the history, newest first.
func (s *Store) Records() []pricing.Result {
	if len(s.records) == 0 {
		return []pricing.Result{}
	}
	return slices.Clone(s.records)
}

// Len returns the number of records held in memory.
func (s *Store) Len() int { return len(s.records) }

func (s *Store) capped(records []pricing.Result) []pricing.Result {
	if s.limit > 0 && len(records) > s.limit {
		return records[:s.limit]
	}
	return records
}
