package room

import (
	"context"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/rules"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/library/work"
)

func init() {
	log.SetLogger(log.NewStdLogger(os.Stdout))
}

type fakeSession struct {
	id   string
	mu   sync.Mutex
	pkts []*v1.Packet
}

func newSession(id string) *fakeSession { return &fakeSession{id: id} }

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Push(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pkts = append(s.pkts, v.(*v1.Packet))
	return nil
}

func (s *fakeSession) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.pkts, func(p *v1.Packet, _ int) string { return p.Type })
}

func (s *fakeSession) has(typ string) bool {
	return lo.Contains(s.types(), typ)
}

func (s *fakeSession) last(typ string) *v1.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.pkts) - 1; i >= 0; i-- {
		if s.pkts[i].Type == typ {
			return s.pkts[i]
		}
	}
	return nil
}

type memStore struct {
	mu    sync.Mutex
	snaps map[string]*Snapshot
}

func newMemStore() *memStore { return &memStore{snaps: make(map[string]*Snapshot)} }

func (m *memStore) Save(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.snaps[s.RoomID]; ok && old.Seq >= s.Seq {
		return nil
	}
	m.snaps[s.RoomID] = s
	return nil
}

func (m *memStore) Load(_ context.Context, id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[id]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return s, nil
}

func (m *memStore) LoadAll(context.Context) ([]*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Values(m.snaps), nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, id)
	return nil
}

func (m *memStore) Prune(_ context.Context, before time.Time) (int, error) {
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

func (m *memStore) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.snaps)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) get(id string) *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[id]
}

// syncWriter 同步写入 memStore; dropDeletes 模拟删除请求丢失
type syncWriter struct {
	store       *memStore
	mu          sync.Mutex
	deleted     []string
	corrupt     []string
	dropDeletes bool
}

func (w *syncWriter) Save(s *Snapshot) { _ = w.store.Save(context.Background(), s) }

func (w *syncWriter) Delete(id string) {
	w.mu.Lock()
	w.deleted = append(w.deleted, id)
	drop := w.dropDeletes
	w.mu.Unlock()
	if !drop {
		_ = w.store.Delete(context.Background(), id)
	}
}

func (w *syncWriter) Corrupt(id string, _ error) {
	w.mu.Lock()
	w.corrupt = append(w.corrupt, id)
	w.mu.Unlock()
	_ = w.store.Delete(context.Background(), id)
}

func (w *syncWriter) corrupted() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.corrupt)
}

func (w *syncWriter) wasDeleted(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return lo.Contains(w.deleted, id)
}

type fakeListener struct {
	mu      sync.Mutex
	changed int
	removed []string
}

func (l *fakeListener) RoomsChanged() {
	l.mu.Lock()
	l.changed++
	l.mu.Unlock()
}

func (l *fakeListener) PlayerRemoved(_, playerID string) {
	l.mu.Lock()
	l.removed = append(l.removed, playerID)
	l.mu.Unlock()
}

func (l *fakeListener) wasRemoved(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo.Contains(l.removed, id)
}

type testEnv struct {
	reg      *Registry
	store    *memStore
	writer   *syncWriter
	listener *fakeListener
	data     *conf.Data
}

func testRoomConfig() *conf.Room {
	c := conf.DefaultRoom()
	c.Timing.Countdown = conf.Duration(5 * time.Second)
	c.Timing.AllReadyCountdown = 0
	c.Timing.BotDelay = conf.Duration(time.Millisecond)
	c.Timing.GraceWindow = conf.Duration(50 * time.Millisecond)
	c.Timing.SettleDelay = conf.Duration(time.Hour)
	c.LogCache.Open = false
	return c
}

func newTestEnv(t *testing.T, mutate ...func(*conf.Room)) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := work.New(ctx, 16, 5*time.Millisecond)
	require.NoError(t, w.Start())
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})

	c := testRoomConfig()
	for _, fn := range mutate {
		fn(c)
	}
	data := conf.Default().Data
	store := newMemStore()
	env := &testEnv{
		store:    store,
		writer:   &syncWriter{store: store},
		listener: &fakeListener{},
		data:     &data,
	}
	env.reg = NewRegistry(w, conf.NewRoomHolder(c), env.data, store, env.writer)
	env.reg.SetListener(env.listener)
	return env
}

// startPair 两人房间并开局(全部准备后立即开局)
func (e *testEnv) startPair(t *testing.T) (*Room, *fakeSession, *fakeSession, string, string) {
	t.Helper()
	sa, sb := newSession("sa"), newSession("sb")
	r, ann, err := e.reg.Create("Ann", false, 52, sa)
	require.NoError(t, err)
	_, bob, err := e.reg.Join(r.ID, "Bob", sb)
	require.NoError(t, err)
	require.NoError(t, r.OnToggleReady(ann.GetPlayerID()))
	require.NoError(t, r.OnToggleReady(bob.GetPlayerID()))
	require.Equal(t, PhPlaying, r.stage.GetState())
	return r, sa, sb, ann.GetPlayerID(), bob.GetPlayerID()
}

func cards(t *testing.T, ids ...string) []rules.Card {
	t.Helper()
	out := make([]rules.Card, 0, len(ids))
	for _, id := range ids {
		c, err := rules.ParseCard(id)
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

// rig 把对局改成确定的牌面, 座位0先手; draw 按摸牌顺序
func rig(t *testing.T, r *Room, hands [][]string, top string, draw []string) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.game
	require.NotNil(t, g)
	for i, h := range hands {
		g.Seats[i].Hand = cards(t, h...)
	}
	g.Deck.DiscardPile = cards(t, top)
	g.Deck.DrawPile = nil
	drawn := cards(t, draw...)
	for i := len(drawn) - 1; i >= 0; i-- {
		g.Deck.DrawPile = append(g.Deck.DrawPile, drawn[i])
	}
	g.Current, g.Turn = 0, 1
	g.ChosenSuit, g.CardDrawn = "", false
	g.WaitingForEight, g.EightDrawn, g.EightSatisfied = false, nil, false
}

func (r *Room) phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage.GetState()
}
