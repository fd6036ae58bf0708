package room

import (
	"context"
	"errors"
	"time"

	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/library/work"
)

// Repo 房间依赖的外部能力, 由 Registry 实现
type Repo interface {
	GetLoop() work.Loop
	GetTimer() work.Scheduler
	GetRoomConfig() *conf.Room

	// 以下在房间锁内调用, 不得阻塞
	Persist(s *Snapshot)
	Forget(roomID string)
	RoomChanged(roomID string)
	RoomClosed(roomID string)
	PlayerRemoved(roomID, playerID string)
}

// ErrSnapshotNotFound 存储中没有该房间
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store 房间快照存储
type Store interface {
	// Save 只接受更大的 seq
	Save(ctx context.Context, s *Snapshot) error
	Load(ctx context.Context, roomID string) (*Snapshot, error)
	LoadAll(ctx context.Context) ([]*Snapshot, error)
	Delete(ctx context.Context, roomID string) error
	// Prune 删除 before 之前未更新的房间
	Prune(ctx context.Context, before time.Time) (int, error)
	DeleteAll(ctx context.Context) error
	Close() error
}

// Persister 按房间有序的异步写入
type Persister interface {
	Save(s *Snapshot)
	Delete(roomID string)
	// Corrupt 无法恢复的快照: 计数后删除
	Corrupt(roomID string, err error)
}

// Listener 网关监听房间变化
type Listener interface {
	RoomsChanged()
	PlayerRemoved(roomID, playerID string)
}

type nopListener struct{}

func (nopListener) RoomsChanged()                {}
func (nopListener) PlayerRemoved(string, string) {}
