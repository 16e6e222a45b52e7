// Package ledger owns the ordered entry sequence. It decides whether the
// remote store or the local slot is authoritative at startup, saves new
// entries remote-first, and serializes every mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/Tiliavir/trivial-pay-tracker/internal/logger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
	"github.com/Tiliavir/trivial-pay-tracker/internal/remote"
	"github.com/Tiliavir/trivial-pay-tracker/internal/report"
	"github.com/Tiliavir/trivial-pay-tracker/internal/storage"
)

var (
	// ErrPersistenceFailed means the remote save failed and nothing was recorded.
	ErrPersistenceFailed = errors.New("entry not saved")
	// ErrPositionOutOfRange is returned by DeleteEntry for a position with no entry.
	ErrPositionOutOfRange = errors.New("no entry at position")
	// ErrLocalWrite means the local slot could not be rewritten.
	ErrLocalWrite = errors.New("local storage not updated")
)

// Source tells where the current sequence was loaded from.
type Source string

const (
	SourceEmpty  Source = "empty"
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Repository is the single owner of the in-memory entry sequence.
type Repository struct {
	store remote.Store
	slot  storage.Slot
	log   *log.Logger

	// gate admits one mutating operation at a time; waiters queue.
	gate *semaphore.Weighted

	mu      sync.RWMutex
	entries []model.Entry
	source  Source
}

// New returns an empty repository. Call Load to populate it.
func New(store remote.Store, slot storage.Slot, l *log.Logger) *Repository {
	return &Repository{
		store:   store,
		slot:    slot,
		log:     logger.OrDiscard(l),
		gate:    semaphore.NewWeighted(1),
		entries: []model.Entry{},
		source:  SourceEmpty,
	}
}

func (r *Repository) lock(ctx context.Context) error {
	if err := r.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for pending operation: %w", err)
	}
	return nil
}

func (r *Repository) unlock() { r.gate.Release(1) }

func (r *Repository) commit(entries []model.Entry) {
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
}

// Entries returns a copy of the sequence in insertion order.
func (r *Repository) Entries() []model.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Len returns the number of entries.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Source reports where the last Load took its data from.
func (r *Repository) Source() Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// FilteredBy returns the entries in monthKey (YYYY-MM), or all entries when
// monthKey is empty.
func (r *Repository) FilteredBy(monthKey string) []model.Entry {
	return report.FilteredBy(r.Entries(), monthKey)
}

// AddEntry derives the entry from d and saves it remotely. Only after the
// remote save succeeds is it appended to memory and the local slot. A failed
// save returns an error matching ErrPersistenceFailed and changes nothing.
//
// If the local slot cannot be rewritten the entry stays recorded (it is
// durable remotely) and the returned error matches ErrLocalWrite.
func (r *Repository) AddEntry(ctx context.Context, d model.Draft) (model.Entry, error) {
	e, err := model.NewEntry(d)
	if err != nil {
		return model.Entry{}, err
	}

	if err := r.lock(ctx); err != nil {
		return model.Entry{}, err
	}
	defer r.unlock()

	conf, err := r.store.Save(ctx, e)
	if err != nil {
		r.log.Warn("remote save failed", "date", e.Date, "err", err)
		return model.Entry{}, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	e.Timestamp = conf.Timestamp

	next := append(r.Entries(), e)
	r.commit(next)
	r.log.Info("entry added", "date", e.Date, "pay", e.Pay, "range", conf.Range)

	if err := r.slot.Write(next); err != nil {
		r.log.Error("local write failed after remote save", "err", err)
		return e, fmt.Errorf("%w: %w", ErrLocalWrite, err)
	}
	return e, nil
}

// DeleteEntry removes the entry at position and rewrites the local slot.
// The remote store is append-only and is not touched.
func (r *Repository) DeleteEntry(ctx context.Context, position int) (model.Entry, error) {
	if err := r.lock(ctx); err != nil {
		return model.Entry{}, err
	}
	defer r.unlock()

	current := r.Entries()
	if position < 0 || position >= len(current) {
		return model.Entry{}, fmt.Errorf("%w: %d (have %d)", ErrPositionOutOfRange, position, len(current))
	}
	removed := current[position]
	next := slices.Delete(current, position, position+1)

	if err := r.slot.Write(next); err != nil {
		return model.Entry{}, fmt.Errorf("%w: %w", ErrLocalWrite, err)
	}
	r.commit(next)
	r.log.Info("entry deleted", "position", position, "date", removed.Date)
	return removed, nil
}

// Load populates memory once: a non-empty remote fetch replaces the
// sequence outright; an empty or failed fetch falls back to the local slot.
// Read failures never surface; only a cancelled ctx returns an error.
func (r *Repository) Load(ctx context.Context) ([]model.Entry, error) {
	if err := r.lock(ctx); err != nil {
		return nil, err
	}
	defer r.unlock()

	fetched, err := r.store.Fetch(ctx)
	switch {
	case errors.Is(err, remote.ErrNotReady):
		r.log.Info("remote not ready, using local storage")
	case err != nil:
		r.log.Warn("remote fetch failed, using local storage", "err", err)
	case len(fetched) == 0:
		r.log.Debug("remote has no rows, using local storage")
	}

	entries, src := choose(fetched, err, r.readLocal)

	r.mu.Lock()
	r.entries = entries
	r.source = src
	r.mu.Unlock()
	r.log.Info("entries loaded", "source", src, "count", len(entries))
	return slices.Clone(entries), nil
}

// choose applies the load precedence: remote when it produced entries,
// otherwise whatever the local slot holds.
func choose(fetched []model.Entry, fetchErr error, local func() []model.Entry) ([]model.Entry, Source) {
	if fetchErr == nil && len(fetched) > 0 {
		return slices.Clone(fetched), SourceRemote
	}
	if entries := local(); entries != nil {
		return entries, SourceLocal
	}
	return []model.Entry{}, SourceEmpty
}

// readLocal returns the valid slot entries, or nil when the slot is missing
// or unreadable.
func (r *Repository) readLocal() []model.Entry {
	stored, ok, err := r.slot.Read()
	if err != nil {
		r.log.Warn("local storage unreadable", "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	entries := make([]model.Entry, 0, len(stored))
	for i, e := range stored {
		if err := e.Check(); err != nil {
			r.log.Warn("dropping invalid local entry", "index", i, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}
