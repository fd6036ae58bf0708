package room

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/samber/lo"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/robot"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/library/ext"
	"github.com/yola1107/czech/library/work"
	"golang.org/x/sync/singleflight"
)

const (
	roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomIDLen      = 6
	botIDPrefix    = "bot_"
	storeTimeout   = 10 * time.Second
)

type listenerBox struct{ Listener }

// Registry 所有在内存中的房间
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	work     work.Work
	holder   *conf.RoomHolder
	data     *conf.Data
	store    Store
	writer   Persister
	listener atomic.Pointer[listenerBox]
	group    singleflight.Group
	sweepID  int64
}

func NewRegistry(w work.Work, holder *conf.RoomHolder, c *conf.Data, store Store, writer Persister) *Registry {
	m := &Registry{
		rooms:  make(map[string]*Room),
		work:   w,
		holder: holder,
		data:   c,
		store:  store,
		writer: writer,
	}
	m.listener.Store(&listenerBox{nopListener{}})
	return m
}

func (m *Registry) SetListener(l Listener) {
	m.listener.Store(&listenerBox{l})
}

/*
	Repo
*/

func (m *Registry) GetLoop() work.Loop        { return m.work }
func (m *Registry) GetTimer() work.Scheduler  { return m.work }
func (m *Registry) GetRoomConfig() *conf.Room { return m.holder.Load() }
func (m *Registry) Persist(s *Snapshot)       { m.writer.Save(s) }
func (m *Registry) Forget(roomID string)      { m.writer.Delete(roomID) }
func (m *Registry) RoomChanged(roomID string) { m.listener.Load().RoomsChanged() }

func (m *Registry) PlayerRemoved(roomID, playerID string) {
	m.listener.Load().PlayerRemoved(roomID, playerID)
}

func (m *Registry) RoomClosed(roomID string) {
	m.Remove(roomID)
	m.listener.Load().RoomsChanged()
}

/*
	房间管理
*/

// Start 启动时按配置清空或重载房间, 并开始定期清理
func (m *Registry) Start(ctx context.Context) error {
	switch {
	case m.data.ClearRooms:
		if err := m.store.DeleteAll(ctx); err != nil {
			return err
		}
		log.Infof("[registry] stored rooms cleared")
	case m.data.ShouldReload():
		if err := m.reloadAll(ctx); err != nil {
			return err
		}
	}
	m.sweepID = m.work.Forever(m.data.CleanupInterval.Std(), m.sweep)
	return nil
}

func (m *Registry) Stop(context.Context) error {
	m.work.Cancel(m.sweepID)
	return nil
}

func (m *Registry) reloadAll(ctx context.Context) error {
	if n, err := m.store.Prune(ctx, time.Now().Add(-m.data.Retention.Std())); err != nil {
		return err
	} else if n > 0 {
		log.Infof("[registry] pruned %d expired rooms", n)
	}
	snaps, err := m.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	loaded := 0
	for _, s := range snaps {
		if _, err := m.restore(s); err == nil {
			loaded++
		}
	}
	log.Infof("[registry] reloaded %d/%d rooms", loaded, len(snaps))
	return nil
}

// restore 重建并登记; 已在内存中则返回现有房间
func (m *Registry) restore(s *Snapshot) (*Room, error) {
	r, err := Restore(s, m)
	if errors.Is(err, ErrSnapshotNotFound) {
		m.writer.Delete(s.RoomID)
		return nil, err
	}
	if err != nil {
		log.Errorf("[registry] drop corrupt snapshot. room:%s err:%v", s.RoomID, err)
		m.writer.Corrupt(s.RoomID, err)
		return nil, err
	}

	m.mu.Lock()
	if old, ok := m.rooms[r.ID]; ok {
		m.mu.Unlock()
		return old, nil
	}
	m.rooms[r.ID] = r
	m.mu.Unlock()

	r.Resume()
	grace := m.GetRoomConfig().Timing.GraceWindow.Std()
	for playerID, epoch := range r.OfflineHumans() {
		m.work.Once(grace, func() { r.OnReloadGraceExpired(playerID, epoch) })
	}
	m.listener.Load().RoomsChanged()
	return r, nil
}

// sweep 定期清理过期快照和只剩机器人/长期无变化的房间
func (m *Registry) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	retention := m.data.Retention.Std()
	if n, err := m.store.Prune(ctx, time.Now().Add(-retention)); err != nil {
		log.Errorf("[registry] prune failed: %v", err)
	} else if n > 0 {
		log.Infof("[registry] pruned %d expired rooms", n)
	}
	for _, r := range m.list() {
		s := r.Summary()
		idle := time.Since(s.UpdatedAt) > retention
		if idle || (s.Humans == 0 && time.Since(s.CreatedAt) > time.Minute) {
			r.Close("")
		}
	}
}

func (m *Registry) newRoomID() (string, error) {
	for {
		id, err := gonanoid.Generate(roomIDAlphabet, roomIDLen)
		if err != nil {
			return "", err
		}
		m.mu.RLock()
		_, exists := m.rooms[id]
		m.mu.RUnlock()
		if !exists {
			return id, nil
		}
	}
}

func (m *Registry) add(deckSize int, isPrivate bool) (*Room, error) {
	id, err := m.newRoomID()
	if err != nil {
		return nil, err
	}
	r := New(id, deckSize, isPrivate, m)
	m.mu.Lock()
	m.rooms[id] = r
	m.mu.Unlock()
	return r, nil
}

// Create 创建房间, 创建者入座
func (m *Registry) Create(nickname string, isPrivate bool, deckSize int, s player.Session) (*Room, *player.Player, error) {
	r, err := m.add(deckSize, isPrivate)
	if err != nil {
		return nil, nil, err
	}
	p := player.New(uuid.NewString(), nickname, false)
	if err := r.Enter(p, s, true); err != nil {
		m.Remove(r.ID)
		return nil, nil, err
	}
	log.Infof("[registry] room created. room:%s creator:%s private:%v deck:%d", r.ID, p.GetPlayerID(), isPrivate, deckSize)
	return r, p, nil
}

// CreateBotGame 创建者加 botCount 个已准备的机器人, 不在大厅显示
func (m *Registry) CreateBotGame(nickname string, botCount, deckSize int, s player.Session) (*Room, *player.Player, error) {
	r, p, err := m.Create(nickname, true, deckSize, s)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range robot.Names(botCount, ext.NewRand(ext.NewSeed())) {
		bot := player.New(botIDPrefix+uuid.NewString(), name, true)
		if err := r.AddRobot(bot); err != nil {
			return r, p, err
		}
	}
	return r, p, nil
}

// Join 加入已有房间
func (m *Registry) Join(roomID, nickname string, s player.Session) (*Room, *player.Player, error) {
	r := m.Get(roomID)
	if r == nil {
		return nil, nil, v1.ErrRoomNotFound
	}
	p := player.New(uuid.NewString(), nickname, false)
	if err := r.Enter(p, s, false); err != nil {
		return nil, nil, err
	}
	return r, p, nil
}

// ListOpen 大厅房间列表, 只读摘要
func (m *Registry) ListOpen() []v1.RoomSummary {
	open := lo.FilterMap(m.list(), func(r *Room, _ int) (*Summary, bool) {
		s := r.Summary()
		return s, s.Open()
	})
	sort.Slice(open, func(i, j int) bool {
		if open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].ID < open[j].ID
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})
	return lo.Map(open, func(s *Summary, _ int) v1.RoomSummary {
		return v1.RoomSummary{
			ID:          s.ID,
			PlayerCount: len(s.Players),
			DeckSize:    s.DeckSize,
			Players:     s.Players,
		}
	})
}

func (m *Registry) Remove(roomID string) {
	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()
}

func (m *Registry) Get(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// Load 内存中没有时从存储重载, 并发请求合并为一次
func (m *Registry) Load(ctx context.Context, roomID string) (*Room, error) {
	if r := m.Get(roomID); r != nil {
		return r, nil
	}
	v, err, _ := m.group.Do(roomID, func() (any, error) {
		if r := m.Get(roomID); r != nil {
			return r, nil
		}
		s, err := m.store.Load(ctx, roomID)
		if errors.Is(err, ErrSnapshotNotFound) {
			return nil, v1.ErrRoomNotFound
		}
		if err != nil {
			return nil, err
		}
		r, err := m.restore(s)
		if err != nil {
			return nil, v1.ErrRoomNotFound
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Room), nil
}

func (m *Registry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func (m *Registry) list() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Values(m.rooms)
}
