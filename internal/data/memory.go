package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/yola1107/czech/internal/biz/room"
)

// MemoryStore 进程内存储, 重启即丢失; 用于开发和测试
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*room.Snapshot
}

var _ room.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*room.Snapshot)}
}

func (m *MemoryStore) Save(_ context.Context, s *room.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.snaps[s.RoomID]; ok && old.Seq >= s.Seq {
		return nil
	}
	m.snaps[s.RoomID] = s
	return nil
}

func (m *MemoryStore) Load(_ context.Context, roomID string) (*room.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snaps[roomID]
	if !ok {
		return nil, room.ErrSnapshotNotFound
	}
	return s, nil
}

func (m *MemoryStore) LoadAll(context.Context) ([]*room.Snapshot, error) {
	m.mu.RLock()
	out := lo.Values(m.snaps)
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, roomID string) error {
	m.mu.Lock()
	delete(m.snaps, roomID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.snaps {
		if s.UpdatedAt.Before(before) {
			delete(m.snaps, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteAll(context.Context) error {
	m.mu.Lock()
	clear(m.snaps)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
