package directory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadchat/internal/store"
	"threadchat/internal/title"
)

// failingStore wraps a MemStore and fails selected write-through operations.
type failingStore struct {
	*store.MemStore
	failTitle bool
	failPin   bool
	failList  bool
}

var errDisk = errors.New("disk full")

func (f *failingStore) ListThreads() ([]store.ThreadInfo, error) {
	if f.failList {
		return nil, errDisk
	}
	return f.MemStore.ListThreads()
}

func (f *failingStore) SetTitle(threadID, t string) error {
	if f.failTitle {
		return errDisk
	}
	return f.MemStore.SetTitle(threadID, t)
}

func (f *failingStore) SetPinned(threadID string, pinned bool) error {
	if f.failPin {
		return errDisk
	}
	return f.MemStore.SetPinned(threadID, pinned)
}

func TestCreateYieldsDistinctIDs(t *testing.T) {
	d := New(store.NewMemStore())
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := d.Create()
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate thread id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 100, d.Len())
}

func TestCreateStartsWithSentinelTitle(t *testing.T) {
	d := New(store.NewMemStore())
	id := d.Create()
	e, ok := d.Get(id)
	require.True(t, ok)
	assert.Equal(t, title.Sentinel, e.Title)
	assert.False(t, e.Pinned)
}

func TestHydrate(t *testing.T) {
	st := store.NewMemStore()
	_, err := st.AppendTurn("t1", store.RoleUser, "# Hello World\nmore")
	require.NoError(t, err)
	_, err = st.AppendTurn("t2", store.RoleUser, "second thread")
	require.NoError(t, err)
	require.NoError(t, st.SetTitle("t2", "my custom name"))
	require.NoError(t, st.SetPinned("t2", true))

	d := New(st)
	assert.False(t, d.Hydrated())
	assert.Empty(t, d.SortedView(), "empty until ready, never half populated")

	require.NoError(t, d.Hydrate())
	assert.True(t, d.Hydrated())

	e1, ok := d.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "Hello World", e1.Title, "derived from first user turn")
	assert.False(t, e1.Pinned)

	e2, ok := d.Get("t2")
	require.True(t, ok)
	assert.Equal(t, "my custom name", e2.Title, "override beats derivation")
	assert.True(t, e2.Pinned)
}

func TestHydrateSurfacesStorageFailure(t *testing.T) {
	st := store.NewMemStore()
	_, err := st.AppendTurn("t1", store.RoleUser, "hello")
	require.NoError(t, err)

	f := &failingStore{MemStore: st, failList: true}
	d := New(f)
	err = d.Hydrate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errDisk))
	assert.False(t, d.Hydrated())
	assert.Empty(t, d.SortedView())
}

func TestSortedView(t *testing.T) {
	st := store.NewMemStore()
	d := New(st)
	require.NoError(t, d.Hydrate())

	add := func(id string, last int64, pinned bool) {
		d.Touch(id, last)
		if pinned {
			_, err := d.TogglePin(id)
			require.NoError(t, err)
		}
	}
	add("old-pinned", 100, true)
	add("new-pinned", 300, true)
	add("old", 50, false)
	add("new", 500, false)

	view := d.SortedView()
	require.Len(t, view, 4)
	assert.Equal(t, "new-pinned", view[0].ThreadID)
	assert.Equal(t, "old-pinned", view[1].ThreadID)
	assert.Equal(t, "new", view[2].ThreadID)
	assert.Equal(t, "old", view[3].ThreadID)
}

func TestSortedViewTieBreak(t *testing.T) {
	d := New(store.NewMemStore())
	require.NoError(t, d.Hydrate())
	d.Touch("bbb", 100)
	d.Touch("aaa", 100)
	d.Touch("ccc", 100)

	view := d.SortedView()
	require.Len(t, view, 3)
	assert.Equal(t, "aaa", view[0].ThreadID)
	assert.Equal(t, "bbb", view[1].ThreadID)
	assert.Equal(t, "ccc", view[2].ThreadID)
}

func TestTogglePinIsItsOwnInverse(t *testing.T) {
	st := store.NewMemStore()
	d := New(st)
	id := d.Create()

	pinned, err := d.TogglePin(id)
	require.NoError(t, err)
	assert.True(t, pinned)

	pinned, err = d.TogglePin(id)
	require.NoError(t, err)
	assert.False(t, pinned)

	e, _ := d.Get(id)
	assert.False(t, e.Pinned)
}

func TestRenameWritesThrough(t *testing.T) {
	st := store.NewMemStore()
	d := New(st)
	id := d.Create()

	require.NoError(t, d.Rename(id, "budget planning"))

	e, _ := d.Get(id)
	assert.Equal(t, "budget planning", e.Title)

	ov, err := st.Overrides(id)
	require.NoError(t, err)
	require.NotNil(t, ov.Title)
	assert.Equal(t, "budget planning", *ov.Title)
}

func TestRenameUnknownThread(t *testing.T) {
	d := New(store.NewMemStore())
	err := d.Rename("missing", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRenameRollsBackOnStoreFailure(t *testing.T) {
	f := &failingStore{MemStore: store.NewMemStore(), failTitle: true}
	d := New(f)
	id := d.Create()

	err := d.Rename(id, "will not stick")
	require.Error(t, err)

	e, _ := d.Get(id)
	assert.Equal(t, title.Sentinel, e.Title, "in-memory entry must not diverge from durable state")
}

func TestTogglePinRollsBackOnStoreFailure(t *testing.T) {
	f := &failingStore{MemStore: store.NewMemStore(), failPin: true}
	d := New(f)
	id := d.Create()

	_, err := d.TogglePin(id)
	require.Error(t, err)

	e, _ := d.Get(id)
	assert.False(t, e.Pinned)
}

func TestAutoTitle(t *testing.T) {
	d := New(store.NewMemStore())
	id := d.Create()

	d.AutoTitle(id, "What is 2+2?")
	e, _ := d.Get(id)
	assert.Equal(t, "What is 2+2?", e.Title)

	// derived exactly once
	d.AutoTitle(id, "something else entirely")
	e, _ = d.Get(id)
	assert.Equal(t, "What is 2+2?", e.Title)
}

func TestAutoTitleNeverOverwritesUserRename(t *testing.T) {
	d := New(store.NewMemStore())
	id := d.Create()

	require.NoError(t, d.Rename(id, "kept forever"))
	d.AutoTitle(id, "a new first message after a reset")

	e, _ := d.Get(id)
	assert.Equal(t, "kept forever", e.Title)
}

func TestTouchIsMonotonic(t *testing.T) {
	d := New(store.NewMemStore())
	id := d.Create()

	d.Touch(id, 1000)
	d.Touch(id, 500)

	e, _ := d.Get(id)
	assert.Equal(t, int64(1000), e.LastActive)
}

func TestRemove(t *testing.T) {
	st := store.NewMemStore()
	_, err := st.AppendTurn("t1", store.RoleUser, "hello")
	require.NoError(t, err)
	require.NoError(t, st.SetTitle("t1", "named"))

	d := New(st)
	require.NoError(t, d.Hydrate())
	require.Equal(t, 1, d.Len())

	require.NoError(t, d.Remove("t1"))
	assert.Equal(t, 0, d.Len())

	turns, err := st.ReadThread("t1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	// removing again is not an error
	require.NoError(t, d.Remove("t1"))
}
