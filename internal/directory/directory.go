// Package directory maintains the in-memory index of all known threads:
// titles, pin flags and last activity, combined from the store's derived
// metadata and the user's durable overrides.
package directory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"threadchat/internal/store"
	"threadchat/internal/title"
)

// Entry is the read model consumed by the presentation layer.
type Entry struct {
	ThreadID   string
	Title      string
	Pinned     bool
	LastActive int64
}

type entry struct {
	Entry
	// userTitled marks threads whose title came from an explicit rename.
	// Automatic derivation must never touch those again.
	userTitled bool
}

// Directory is the queryable thread index. All mutations write through to
// the store before the in-memory entry changes, so the view never diverges
// from durable state.
type Directory struct {
	mu       sync.RWMutex
	store    store.Storer
	entries  map[string]*entry
	hydrated bool
	now      func() int64
}

// New creates an empty directory over st. Call Hydrate before reading.
func New(st store.Storer) *Directory {
	return &Directory{
		store:   st,
		entries: make(map[string]*entry),
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Hydrate builds the index from the store: every thread with at least one
// turn, its title derived from the first user turn, then user overrides
// applied. Until Hydrate returns the directory presents an empty view,
// never a partially populated one.
func (d *Directory) Hydrate() error {
	infos, err := d.store.ListThreads()
	if err != nil {
		return errors.Wrap(err, "hydrate directory")
	}

	entries := make(map[string]*entry, len(infos))
	for _, info := range infos {
		e := &entry{Entry: Entry{
			ThreadID:   info.ThreadID,
			Title:      title.Derive(info.FirstUser),
			LastActive: info.LastActive,
		}}
		ov, err := d.store.Overrides(info.ThreadID)
		if err != nil {
			return errors.Wrapf(err, "hydrate thread %s", info.ThreadID)
		}
		if ov.Title != nil {
			e.Title = *ov.Title
			e.userTitled = true
		}
		if ov.Pinned != nil {
			e.Pinned = *ov.Pinned
		}
		entries[info.ThreadID] = e
	}

	d.mu.Lock()
	d.entries = entries
	d.hydrated = true
	d.mu.Unlock()
	return nil
}

// Hydrated reports whether the one-shot startup scan has completed.
func (d *Directory) Hydrated() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hydrated
}

// Create registers a fresh thread with a never-before-issued identifier.
// Nothing is written to the store; the thread materializes on first append.
func (d *Directory) Create() string {
	id := uuid.NewString()
	d.mu.Lock()
	d.entries[id] = &entry{Entry: Entry{
		ThreadID:   id,
		Title:      title.Sentinel,
		LastActive: d.now(),
	}}
	d.mu.Unlock()
	return id
}

// Get returns the entry for a thread, if known.
func (d *Directory) Get(threadID string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[threadID]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// SortedView returns all entries, pinned first, then by last activity
// descending, with thread_id as the deterministic tie-break.
func (d *Directory) SortedView() []Entry {
	d.mu.RLock()
	out := make([]Entry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e.Entry)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		if out[i].LastActive != out[j].LastActive {
			return out[i].LastActive > out[j].LastActive
		}
		return out[i].ThreadID < out[j].ThreadID
	})
	return out
}

// Rename sets a permanent user title. The override is written through to the
// store first; on failure the in-memory entry keeps its prior value and the
// error is surfaced.
func (d *Directory) Rename(threadID, newTitle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[threadID]
	if !ok {
		return errors.Wrapf(store.ErrNotFound, "rename %s", threadID)
	}
	if err := d.store.SetTitle(threadID, newTitle); err != nil {
		return errors.Wrap(err, "rename thread")
	}
	e.Title = newTitle
	e.userTitled = true
	return nil
}

// TogglePin flips the pin flag and returns the new state. Applying it twice
// restores the original state.
func (d *Directory) TogglePin(threadID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[threadID]
	if !ok {
		return false, errors.Wrapf(store.ErrNotFound, "toggle pin %s", threadID)
	}
	next := !e.Pinned
	if err := d.store.SetPinned(threadID, next); err != nil {
		return e.Pinned, errors.Wrap(err, "toggle pin")
	}
	e.Pinned = next
	return next, nil
}

// Touch advances the cached last-activity timestamp after a new turn. The
// durable value lives in the turn log itself, so no write-through is needed;
// the cached value only ever moves forward.
func (d *Directory) Touch(threadID string, ts int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[threadID]
	if !ok {
		e = &entry{Entry: Entry{ThreadID: threadID, Title: title.Sentinel}}
		d.entries[threadID] = e
	}
	if ts > e.LastActive {
		e.LastActive = ts
	}
}

// AutoTitle derives a title from the thread's first user message. It applies
// only while the thread still carries the sentinel title and no user rename
// exists; once a user override is present it never re-derives.
func (d *Directory) AutoTitle(threadID, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[threadID]
	if !ok || e.userTitled || e.Title != title.Sentinel {
		return
	}
	e.Title = title.Derive(text)
}

// Remove deletes the thread's turns and metadata from the store and drops the
// entry. Idempotent: removing an unknown thread is not an error.
func (d *Directory) Remove(threadID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.store.DeleteThread(threadID); err != nil {
		return errors.Wrap(err, "remove thread")
	}
	delete(d.entries, threadID)
	return nil
}

// Len returns the number of known threads.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
