package store

import (
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory Storer used in tests and as a reference for the
// interface's semantics.
type MemStore struct {
	mu     sync.RWMutex
	turns  map[string][]Turn
	titles map[string]string
	pins   map[string]bool
	locks  *lockTable
	now    func() int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		turns:  make(map[string][]Turn),
		titles: make(map[string]string),
		pins:   make(map[string]bool),
		locks:  newLockTable(),
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error { return nil }

func (s *MemStore) AppendTurn(threadID, role, content string) (Turn, error) {
	if !validRole(role) {
		return Turn{}, fmt.Errorf("append turn: unknown role %q", role)
	}
	lk := s.locks.get(threadID)
	lk.Lock()
	defer lk.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	t := Turn{
		Seq:       len(s.turns[threadID]),
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.turns[threadID] = append(s.turns[threadID], t)
	return t, nil
}

func (s *MemStore) ReadThread(threadID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.turns[threadID]
	if len(src) == 0 {
		return nil, nil
	}
	out := make([]Turn, len(src))
	copy(out, src)
	return out, nil
}

func (s *MemStore) ListThreads() ([]ThreadInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var infos []ThreadInfo
	for id, ts := range s.turns {
		if len(ts) == 0 {
			continue
		}
		info := ThreadInfo{ThreadID: id, LastActive: ts[len(ts)-1].CreatedAt}
		for _, t := range ts {
			if t.CreatedAt > info.LastActive {
				info.LastActive = t.CreatedAt
			}
			if info.FirstUser == "" && t.Role == RoleUser {
				info.FirstUser = t.Content
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *MemStore) DeleteThread(threadID string) error {
	lk := s.locks.get(threadID)
	lk.Lock()
	defer lk.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, threadID)
	delete(s.titles, threadID)
	delete(s.pins, threadID)
	s.locks.drop(threadID)
	return nil
}

func (s *MemStore) SetTitle(threadID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles[threadID] = title
	return nil
}

func (s *MemStore) SetPinned(threadID string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[threadID] = pinned
	return nil
}

func (s *MemStore) Overrides(threadID string) (Overrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out Overrides
	if title, ok := s.titles[threadID]; ok {
		t := title
		out.Title = &t
	}
	if pinned, ok := s.pins[threadID]; ok {
		p := pinned
		out.Pinned = &p
	}
	return out, nil
}

// Compile-time interface check
var _ Storer = (*MemStore)(nil)
