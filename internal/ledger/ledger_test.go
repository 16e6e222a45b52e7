package ledger_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/trivial-pay-tracker/internal/ledger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
	"github.com/Tiliavir/trivial-pay-tracker/internal/remote"
	"github.com/Tiliavir/trivial-pay-tracker/internal/storage"
)

// memStore is an append-only in-memory remote.
type memStore struct {
	mu       sync.Mutex
	rows     []model.Entry
	saveErr  error
	fetchErr error
	saves    int
}

func (m *memStore) Save(_ context.Context, e model.Entry) (remote.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return remote.Confirmation{}, m.saveErr
	}
	ts := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)
	e.Timestamp = ts
	m.rows = append(m.rows, e)
	return remote.Confirmation{Timestamp: ts}, nil
}

func (m *memStore) Fetch(_ context.Context) ([]model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return append([]model.Entry(nil), m.rows...), nil
}

// brokenSlot fails every write.
type brokenSlot struct{ storage.Slot }

func (brokenSlot) Write([]model.Entry) error { return errors.New("disk full") }

var (
	hourlyDraft = model.Draft{Date: "2024-03-15", Hours: 8, RateType: model.Hourly, RawRate: 25}
	dailyDraft  = model.Draft{Date: "2024-03-20", Hours: 6, RateType: model.Daily, RawRate: 150}
	aprilDraft  = model.Draft{Date: "2024-04-02", Hours: 4, RateType: model.Hourly, RawRate: 30}
)

func newRepo(t *testing.T, store remote.Store) (*ledger.Repository, *storage.FileSlot) {
	t.Helper()
	slot := storage.NewFileSlot(t.TempDir(), "payTrackerEntries")
	return ledger.New(store, slot, nil), slot
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func readSlot(t *testing.T, slot storage.Slot) []model.Entry {
	t.Helper()
	entries, _, err := slot.Read()
	require.NoError(t, err)
	return entries
}

func TestAddEntryHourly(t *testing.T) {
	store := &memStore{}
	repo, slot := newRepo(t, store)

	e, err := repo.AddEntry(context.Background(), hourlyDraft)
	require.NoError(t, err)
	assert.InDelta(t, 8, e.Hours, 1e-9)
	assert.InDelta(t, 25, e.Rate, 1e-9)
	assert.InDelta(t, 200, e.Pay, 1e-9)
	assert.False(t, e.Timestamp.IsZero())

	require.Len(t, repo.Entries(), 1)
	require.Len(t, store.rows, 1)
	stored := readSlot(t, slot)
	require.Len(t, stored, 1)
	assert.InDelta(t, 200, stored[0].Pay, 1e-9)
}

func TestAddEntryDaily(t *testing.T) {
	repo, _ := newRepo(t, &memStore{})

	e, err := repo.AddEntry(context.Background(), dailyDraft)
	require.NoError(t, err)
	assert.InDelta(t, 150, e.Pay, 1e-9)
	assert.InDelta(t, 25, e.Rate, 1e-9)
}

func TestAddEntryRemoteFailureLeavesStateUntouched(t *testing.T) {
	store := &memStore{}
	repo, slot := newRepo(t, store)
	ctx := context.Background()
	_, err := repo.AddEntry(ctx, hourlyDraft)
	require.NoError(t, err)
	before := readSlot(t, slot)

	cause := errors.New("503 backend error")
	store.saveErr = remote.Failure("save", cause)

	_, err = repo.AddEntry(ctx, dailyDraft)
	require.ErrorIs(t, err, ledger.ErrPersistenceFailed)
	assert.ErrorIs(t, err, cause)
	var fe *remote.FailureError
	assert.ErrorAs(t, err, &fe)

	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, before, readSlot(t, slot))
	assert.Equal(t, 2, store.saves, "exactly one attempt per add")
}

func TestAddEntryNotReady(t *testing.T) {
	repo, slot := newRepo(t, remote.NewDeferred(func(context.Context) (remote.Store, error) {
		return &memStore{}, nil
	}))

	_, err := repo.AddEntry(context.Background(), hourlyDraft)
	require.ErrorIs(t, err, ledger.ErrPersistenceFailed)
	assert.ErrorIs(t, err, remote.ErrNotReady)
	assert.Equal(t, 0, repo.Len())

	_, ok, err := slot.Read()
	require.NoError(t, err)
	assert.False(t, ok, "slot must not be written")
}

func TestAddEntryInvalidDraft(t *testing.T) {
	store := &memStore{}
	repo, _ := newRepo(t, store)

	_, err := repo.AddEntry(context.Background(), model.Draft{Date: "2024-03-15", Hours: 0, RateType: model.Hourly, RawRate: 25})
	require.ErrorIs(t, err, model.ErrInvalidDraft)
	assert.Equal(t, 0, store.saves)
}

func TestAddEntryLocalWriteFailureKeepsRemoteEntry(t *testing.T) {
	store := &memStore{}
	slot := storage.NewFileSlot(t.TempDir(), "payTrackerEntries")
	repo := ledger.New(store, brokenSlot{slot}, nil)

	e, err := repo.AddEntry(context.Background(), hourlyDraft)
	require.ErrorIs(t, err, ledger.ErrLocalWrite)
	assert.Equal(t, "2024-03-15", e.Date)
	assert.Equal(t, 1, repo.Len())
	assert.Len(t, store.rows, 1)
}

func TestLoadPrefersNonEmptyRemote(t *testing.T) {
	store := &memStore{rows: []model.Entry{
		{Date: "2024-05-01", Hours: 1, RateType: model.Hourly, Rate: 10, Pay: 10},
	}}
	repo, slot := newRepo(t, store)
	require.NoError(t, slot.Write([]model.Entry{
		{Date: "2024-01-01", Hours: 2, RateType: model.Hourly, Rate: 5, Pay: 10},
		{Date: "2024-01-02", Hours: 2, RateType: model.Hourly, Rate: 5, Pay: 10},
	}))

	entries, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-05-01", entries[0].Date)
	assert.Equal(t, ledger.SourceRemote, repo.Source())
}

func TestLoadFallsBackToLocal(t *testing.T) {
	local := []model.Entry{
		{Date: "2024-01-01", Hours: 2, RateType: model.Hourly, Rate: 5, Pay: 10},
		{Date: "2024-01-02", Hours: 3, RateType: model.Daily, Rate: 10, Pay: 30},
	}
	tests := []struct {
		name  string
		store remote.Store
	}{
		{"empty remote", &memStore{}},
		{"failed remote", &memStore{fetchErr: remote.Failure("fetch", errors.New("timeout"))}},
		{"not ready", remote.NewDeferred(nil)},
		{"offline", remote.Offline{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, slot := newRepo(t, tt.store)
			require.NoError(t, slot.Write(local))

			entries, err := repo.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, local, entries)
			assert.Equal(t, ledger.SourceLocal, repo.Source())
		})
	}
}

func TestLoadWithNothingStored(t *testing.T) {
	repo, _ := newRepo(t, &memStore{fetchErr: errors.New("offline")})

	entries, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, ledger.SourceEmpty, repo.Source())
}

func TestLoadCorruptLocalDegradesToEmpty(t *testing.T) {
	base := t.TempDir()
	slot := storage.NewFileSlot(base, "payTrackerEntries")
	require.NoError(t, writeFile(slot.Path(), "[{"))
	repo := ledger.New(&memStore{}, slot, nil)

	entries, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, ledger.SourceEmpty, repo.Source())
}

func TestLoadDropsInvalidLocalEntries(t *testing.T) {
	repo, slot := newRepo(t, &memStore{})
	require.NoError(t, slot.Write([]model.Entry{
		{Date: "2024-01-01", Hours: 2, RateType: model.Hourly, Rate: 5, Pay: 10},
		{Date: "bad", Hours: 2, RateType: model.Hourly, Rate: 5, Pay: 10},
		{Date: "2024-01-03", Hours: 0, RateType: model.Hourly, Rate: 5, Pay: 0},
		{Date: "2024-01-04", Hours: 8, RateType: model.Hourly, Rate: 25, Pay: 999},
		{Date: "2024-01-05", Hours: 6, RateType: model.Daily, Rate: 30, Pay: 150},
	}))

	entries, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-01-01", entries[0].Date)
}

func TestLoadReplacesRatherThanMerges(t *testing.T) {
	store := &memStore{}
	repo, _ := newRepo(t, store)
	ctx := context.Background()
	_, err := repo.AddEntry(ctx, hourlyDraft)
	require.NoError(t, err)

	store.rows = []model.Entry{{Date: "2024-06-01", Hours: 1, RateType: model.Hourly, Rate: 1, Pay: 1}}
	entries, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-06-01", entries[0].Date)
}

func TestRoundTripThroughRemote(t *testing.T) {
	store := &memStore{}
	repo, _ := newRepo(t, store)
	ctx := context.Background()
	added, err := repo.AddEntry(ctx, hourlyDraft)
	require.NoError(t, err)

	fresh, _ := newRepo(t, store)
	entries, err := fresh.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, entries, added)
}

func TestRoundTripThroughLocalWhenRemoteUnavailable(t *testing.T) {
	store := &memStore{}
	slot := storage.NewFileSlot(t.TempDir(), "payTrackerEntries")
	ctx := context.Background()

	repo := ledger.New(store, slot, nil)
	_, err := repo.AddEntry(ctx, dailyDraft)
	require.NoError(t, err)

	store.fetchErr = remote.ErrNotReady
	fresh := ledger.New(store, slot, nil)
	entries, err := fresh.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-03-20", entries[0].Date)
	assert.InDelta(t, 150, entries[0].Pay, 1e-9)
}

func TestDeleteEntry(t *testing.T) {
	store := &memStore{}
	repo, slot := newRepo(t, store)
	ctx := context.Background()
	for _, d := range []model.Draft{hourlyDraft, dailyDraft, aprilDraft} {
		_, err := repo.AddEntry(ctx, d)
		require.NoError(t, err)
	}

	removed, err := repo.DeleteEntry(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", removed.Date)

	entries := repo.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-03-20", entries[0].Date)
	assert.Equal(t, "2024-04-02", entries[1].Date)

	stored := readSlot(t, slot)
	require.Len(t, stored, 2)
	assert.Equal(t, "2024-03-20", stored[0].Date)
	assert.Equal(t, "2024-04-02", stored[1].Date)

	assert.Len(t, store.rows, 3, "remote is append-only")
}

func TestDeleteEntryOutOfRange(t *testing.T) {
	repo, _ := newRepo(t, &memStore{})
	ctx := context.Background()
	_, err := repo.AddEntry(ctx, hourlyDraft)
	require.NoError(t, err)

	for _, pos := range []int{-1, 1, 5} {
		_, err := repo.DeleteEntry(ctx, pos)
		assert.ErrorIs(t, err, ledger.ErrPositionOutOfRange, "position %d", pos)
	}
	assert.Equal(t, 1, repo.Len())
}

func TestDeleteEntryLocalFailureRollsBack(t *testing.T) {
	store := &memStore{rows: []model.Entry{
		{Date: "2024-01-01", Hours: 2, RateType: model.Hourly, Rate: 5, Pay: 10},
	}}
	slot := storage.NewFileSlot(t.TempDir(), "payTrackerEntries")
	repo := ledger.New(store, brokenSlot{slot}, nil)
	ctx := context.Background()
	_, err := repo.Load(ctx)
	require.NoError(t, err)

	_, err = repo.DeleteEntry(ctx, 0)
	require.ErrorIs(t, err, ledger.ErrLocalWrite)
	assert.Equal(t, 1, repo.Len())
}

func TestFilteredBy(t *testing.T) {
	repo, _ := newRepo(t, &memStore{})
	ctx := context.Background()
	for _, d := range []model.Draft{hourlyDraft, aprilDraft, dailyDraft} {
		_, err := repo.AddEntry(ctx, d)
		require.NoError(t, err)
	}

	march := repo.FilteredBy("2024-03")
	require.Len(t, march, 2)
	assert.Equal(t, "2024-03-15", march[0].Date)
	assert.Equal(t, "2024-03-20", march[1].Date)
	assert.Len(t, repo.FilteredBy(""), 3)
	assert.Equal(t, 3, repo.Len())
}

// blockingStore holds Save until released so concurrent adds can be observed.
type blockingStore struct {
	memStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Save(ctx context.Context, e model.Entry) (remote.Confirmation, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.memStore.Save(ctx, e)
}

func TestMutationsAreSerialized(t *testing.T) {
	store := &blockingStore{entered: make(chan struct{}, 2), release: make(chan struct{})}
	repo, slot := newRepo(t, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, d := range []model.Draft{hourlyDraft, dailyDraft} {
		wg.Add(1)
		go func(d model.Draft) {
			defer wg.Done()
			_, err := repo.AddEntry(ctx, d)
			assert.NoError(t, err)
		}(d)
	}

	<-store.entered
	select {
	case <-store.entered:
		t.Fatal("second save started while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	// Readers are not blocked by the pending mutation.
	assert.Equal(t, 0, repo.Len())

	close(store.release)
	wg.Wait()

	assert.Equal(t, 2, repo.Len())
	assert.Len(t, readSlot(t, slot), 2)
}

func TestCancelledContextWhileQueued(t *testing.T) {
	store := &blockingStore{entered: make(chan struct{}, 1), release: make(chan struct{})}
	repo, _ := newRepo(t, store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = repo.AddEntry(context.Background(), hourlyDraft)
	}()
	<-store.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.DeleteEntry(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)

	close(store.release)
	<-done
	assert.Equal(t, 1, repo.Len())
}

func TestAddEntryRejectsOverflowingPay(t *testing.T) {
	repo, slot := newRepo(t, remote.Offline{})

	_, err := repo.AddEntry(context.Background(), model.Draft{Date: "2024-03-15", Hours: 1e200, RateType: model.Hourly, RawRate: 1e200})
	require.ErrorIs(t, err, model.ErrInvalidDraft)
	assert.Equal(t, 0, repo.Len())

	_, ok, err := slot.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}
