package store

import (
	"errors"
	"fmt"
	"sync"
)

// Turn roles. A thread's log may only contain these.
const (
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleToolCall   = "tool_call"
	RoleToolResult = "tool_result"
)

// Turn is a single immutable message in a thread. Seq and CreatedAt are
// assigned by the store on append; Seq preserves conversation order.
type Turn struct {
	Seq       int    `json:"seq"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"` // unix milliseconds
}

// ThreadInfo is the store-derived metadata for one thread: its latest
// activity and the content of its first user turn (empty if none yet),
// which the directory uses to derive a default title.
type ThreadInfo struct {
	ThreadID   string
	LastActive int64
	FirstUser  string
}

// Overrides holds user-assigned title/pin state. A nil field means the
// user never set it and the derived default applies.
type Overrides struct {
	Title  *string
	Pinned *bool
}

// Storer persists the per-thread conversation log plus title/pin overrides.
// Threads materialize on first append; reading an unknown thread returns an
// empty log, not an error, so a brand-new thread and a never-written one are
// indistinguishable to callers. Implementations must be safe for concurrent
// use and must serialize appends per thread, not globally.
type Storer interface {
	// Turns
	AppendTurn(threadID, role, content string) (Turn, error)
	ReadThread(threadID string) ([]Turn, error)
	ListThreads() ([]ThreadInfo, error)
	DeleteThread(threadID string) error

	// Title/pin overrides
	SetTitle(threadID, title string) error
	SetPinned(threadID string, pinned bool) error
	Overrides(threadID string) (Overrides, error)

	// Lifecycle
	Close() error
}

// ErrNotFound reports a thread_id with no backing data where the operation
// requires one to exist.
var ErrNotFound = errors.New("thread not found")

// StorageError wraps an I/O failure against the persistence medium. It is
// always surfaced to the caller; an I/O failure must never be collapsed into
// an empty result, because that is indistinguishable from "no turns yet".
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func validRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleToolCall, RoleToolResult:
		return true
	}
	return false
}

func checkTurn(threadID string, t Turn) error {
	if !validRole(t.Role) {
		return storageErr("read thread", fmt.Errorf("malformed turn record %s/%d: unknown role %q", threadID, t.Seq, t.Role))
	}
	return nil
}

// lockTable hands out one mutex per thread_id so appends to the same thread
// are serialized without a write lock across unrelated threads.
type lockTable struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{m: make(map[string]*sync.Mutex)}
}

func (t *lockTable) get(threadID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lk, ok := t.m[threadID]
	if !ok {
		lk = &sync.Mutex{}
		t.m[threadID] = lk
	}
	return lk
}

func (t *lockTable) drop(threadID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, threadID)
}
