package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/dairycalc/internal/pricing"
)

// fakeKV is an in-memory KeyValueStore whose operations can be made to fail.
type fakeKV struct {
	values    map[string]string
	getErr    error
	setErr    error
	removeErr error
	sets      int
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.values[key] = value
	return nil
}

func (f *fakeKV) Remove(_ context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.values, key)
	return nil
}

func calc(t *testing.T, id string, in pricing.Inputs) pricing.Result {
	t.Helper()
	r, err := pricing.Calculate(in)
	require.NoError(t, err)
	r.ID = id
	r.Timestamp = "10/15/2026, 9:30:00 AM"
	return r
}

func ids(results []pricing.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func TestAppendKeepsNewestFirstAndClearEmpties(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewStore(kv)

	history, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	r1 := calc(t, "r1", pricing.Inputs{Quantity: "100", Rate: "30", Fat: "4.0", SNF: "8.5"})
	r2 := calc(t, "r2", pricing.Inputs{Quantity: "50", Rate: "32", Fat: "4.0", Mode: pricing.ModeCLR, CLR: "28.5"})

	_, err = store.Append(ctx, r1)
	require.NoError(t, err)
	history, err = store.Append(ctx, r2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, ids(history))
	assert.Equal(t, 2, kv.sets)

	require.NoError(t, store.Clear(ctx))
	assert.Empty(t, store.Records())
	_, stored := kv.values[StorageKey]
	assert.False(t, stored)

	history, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLoadRestoresPersistedHistory(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()

	first := NewStore(kv)
	r1 := calc(t, "r1", pricing.Inputs{Quantity: "100", Rate: "30", Fat: "4.0", SNF: "8.5"})
	r2 := calc(t, "r2", pricing.Inputs{Quantity: "12.5", Rate: "45", Fat: "6.2", SNF: "9.1"})
	_, err := first.Append(ctx, r1)
	require.NoError(t, err)
	_, err = first.Append(ctx, r2)
	require.NoError(t, err)

	second := NewStore(kv)
	history, err := second.Load(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assertSameResult(t, r2, history[0])
	assertSameResult(t, r1, history[1])
}

func TestLoadCorruptValueYieldsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewStore(kv)
	_, err := store.Append(ctx, calc(t, "r1", pricing.Inputs{Quantity: "1", Rate: "1", Fat: "1", SNF: "1"}))
	require.NoError(t, err)

	kv.values[StorageKey] = "{not json"

	history, err := store.Load(ctx)
	var corrupt *CorruptHistoryError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, StorageKey, corrupt.Key)
	assert.Empty(t, history)
	assert.Zero(t, store.Len())
}

func TestClearWithNothingStoredSucceeds(t *testing.T) {
	store := NewStore(newFakeKV())
	require.NoError(t, store.Clear(context.Background()))
	assert.Empty(t, store.Records())
}

func TestAppendWriteFailureKeepsInMemoryPrepend(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.setErr = errors.New("disk full")
	store := NewStore(kv)

	history, err := store.Append(ctx, calc(t, "r1", pricing.Inputs{Quantity: "1", Rate: "1", Fat: "1", SNF: "1"}))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "write", perr.Op)
	assert.ErrorIs(t, err, kv.setErr)
	assert.Equal(t, []string{"r1"}, ids(history))
	assert.Equal(t, 1, store.Len())
}

func TestClearRemoveFailureStillResetsMemory(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewStore(kv)
	_, err := store.Append(ctx, calc(t, "r1", pricing.Inputs{Quantity: "1", Rate: "1", Fat: "1", SNF: "1"}))
	require.NoError(t, err)

	kv.removeErr = errors.New("locked")
	err = store.Clear(ctx)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "remove", perr.Op)
	assert.Empty(t, store.Records())
}

func TestLoadReadFailureKeepsCurrentHistory(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewStore(kv)
	_, err := store.Append(ctx, calc(t, "r1", pricing.Inputs{Quantity: "1", Rate: "1", Fat: "1", SNF: "1"}))
	require.NoError(t, err)

	kv.getErr = errors.New("io timeout")
	history, err := store.Load(ctx)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "read", perr.Op)
	assert.Equal(t, []string{"r1"}, ids(history))
}

func TestWithLimitDropsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeKV(), WithLimit(2), WithKey("custom"))

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Append(ctx, calc(t, id, pricing.Inputs{Quantity: "1", Rate: "1", Fat: "1", SNF: "1"}))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"c", "b"}, ids(store.Records()))
}

func TestRecordsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeKV())
	_, err := store.Append(ctx, calc(t, "r1", pricing.Inputs{Quantity: "1", Rate: "1", Fat: "1", SNF: "1"}))
	require.NoError(t, err)

	snapshot := store.Records()
	snapshot[0].ID = "tampered"

	assert.Equal(t, "r1", store.Records()[0].ID)
}
