package calculator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/dairycalc/internal/history"
	"github.com/Simplici0/dairycalc/internal/pricing"
)

// DefaultTimestampLayout labels records the way the mobile calculator did.
const DefaultTimestampLayout = "1/2/2006, 3:04:05 PM"

// Clock supplies the wall-clock time used to label records.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Engine computes milk prices and records them in a persisted history.
// Like the history it wraps, it expects a single caller at a time.
type Engine struct {
	history *history.Store
	clock   Clock
	layout  string
	newID   func() string
	log     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTimestampLayout sets the time.Format layout used for record timestamps.
func WithTimestampLayout(layout string) Option {
	return func(e *Engine) {
		if layout != "" {
			e.layout = layout
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an Engine over store. Call Open before serving requests.
func New(store *history.Store, opts ...Option) *Engine {
	e := &Engine{
		history: store,
		clock:   ClockFunc(time.Now),
		layout:  DefaultTimestampLayout,
		newID:   uuid.NewString,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open loads the persisted history. Corrupt history is logged and replaced by
// an empty one; only a failed read is returned.
func (e *Engine) Open(ctx context.Context) error {
	records, err := e.history.Load(ctx)
	var corrupt *history.CorruptHistoryError
	if errors.As(err, &corrupt) {
		e.log.Warn("discarding unreadable calculation history", zap.String("key", corrupt.Key), zap.Error(corrupt.Err))
		return nil
	}
	if err != nil {
		return err
	}
	e.log.Debug("calculation history loaded", zap.Int("records", len(records)))
	return nil
}

// Compute validates in and returns a labelled result without recording it.
func (e *Engine) Compute(in pricing.Inputs) (pricing.Result, error) {
	r, err := pricing.Calculate(in)
	if err != nil {
		return pricing.Result{}, err
	}
	r.ID = e.newID()
	r.Timestamp = e.clock.Now().Format(e.layout)
	return r, nil
}

// History returns the recorded results, newest first.
func (e *Engine) History() []pricing.Result {
	return e.history.Records()
}

// RecordAndPersist prepends r to the history and persists it. A
// *history.PersistenceError means r is recorded for this session only.
func (e *Engine) RecordAndPersist(ctx context.Context, r pricing.Result) error {
	records, err := e.history.Append(ctx, r)
	if err != nil {
		e.log.Warn("calculation recorded but not persisted", zap.String("id", r.ID), zap.Error(err))
		return err
	}
	e.log.Info("calculation recorded",
		zap.String("id", r.ID),
		zap.String("mode", string(r.Mode)),
		zap.Stringer("buy_total", r.BuyTotal),
		zap.Stringer("sell_total", r.SellTotal),
		zap.Int("records", len(records)),
	)
	return nil
}

// Calculate computes a result and records it. A persistence failure is
// returned together with the valid result.
func (e *Engine) Calculate(ctx context.Context, in pricing.Inputs) (pricing.Result, error) {
	r, err := e.Compute(in)
	if err != nil {
		return pricing.Result{}, err
	}
	return r, e.RecordAndPersist(ctx, r)
}

// ClearHistory removes every recorded result.
func (e *Engine) ClearHistory(ctx context.Context) error {
	if err := e.history.Clear(ctx); err != nil {
		e.log.Warn("history cleared in memory only", zap.Error(err))
		return err
	}
	e.log.Info("calculation history cleared")
	return nil
}
