package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/internal/data"
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

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Push(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pkts = append(s.pkts, v.(*v1.Packet))
	return nil
}

func (s *fakeSession) count(typ string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.pkts {
		if p.Type == typ {
			n++
		}
	}
	return n
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

func (s *fakeSession) lastError() string {
	if p := s.last(v1.TypeError); p != nil {
		return p.Body.(*v1.ErrorMsg).Code
	}
	return ""
}

// nopWriter 测试不关心持久化
type nopWriter struct{}

func (nopWriter) Save(*room.Snapshot)   {}
func (nopWriter) Delete(string)         {}
func (nopWriter) Corrupt(string, error) {}

func newTestGateway(t *testing.T, mutate ...func(*conf.Room)) *Gateway {
	t.Helper()
	c := conf.DefaultRoom()
	c.Timing.Countdown = conf.Duration(5 * time.Second)
	c.Timing.BotDelay = conf.Duration(time.Millisecond)
	c.Timing.GraceWindow = conf.Duration(50 * time.Millisecond)
	for _, f := range mutate {
		f(c)
	}
	d := conf.Default().Data
	d.Driver = conf.DriverMemory

	ctx, cancel := context.WithCancel(context.Background())
	w := work.New(ctx, 16, 5*time.Millisecond)
	require.NoError(t, w.Start())
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	reg := room.NewRegistry(w, conf.NewRoomHolder(c), &d, data.NewMemoryStore(), nopWriter{})
	return NewGateway(reg)
}

func (g *Gateway) connect(id string) *fakeSession {
	s := &fakeSession{id: id}
	g.open(s)
	return s
}

func send(g *Gateway, s *fakeSession, raw string) {
	g.handle(s, []byte(raw))
}

// enter 建房并加入, 返回房间号和两名玩家ID
func enter(t *testing.T, g *Gateway, sa, sb *fakeSession) (string, string, string) {
	t.Helper()
	send(g, sa, `{"type":"create_room","nickname":"ann"}`)
	created := sa.last(v1.TypeRoomCreated)
	require.NotNil(t, created)
	ce := created.Body.(*v1.RoomEntered)

	send(g, sb, `{"type":"join_room","room_id":"`+ce.RoomID+`","nickname":"bob"}`)
	joined := sb.last(v1.TypeRoomJoined)
	require.NotNil(t, joined)
	return ce.RoomID, ce.PlayerID, joined.Body.(*v1.RoomEntered).PlayerID
}

func TestGateway_Lobby(t *testing.T) {
	g := newTestGateway(t)
	sa, sb, sc := g.connect("a"), g.connect("b"), g.connect("c")
	assert.Equal(t, 1, sc.count(v1.TypeRoomsList))

	roomID, _, _ := enter(t, g, sa, sb)

	require.Eventually(t, func() bool {
		p := sc.last(v1.TypeRoomsList)
		rooms := p.Body.(*v1.RoomsList).Rooms
		return len(rooms) == 1 && rooms[0].ID == roomID && rooms[0].PlayerCount == 2
	}, time.Second, 5*time.Millisecond)

	before := sc.count(v1.TypeRoomsList)
	send(g, sc, `{"type":"get_rooms"}`)
	assert.GreaterOrEqual(t, sc.count(v1.TypeRoomsList), before+1)

	total, seated := g.SessionCount()
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, seated)
	assert.Len(t, g.Rooms(), 1)
}

func TestGateway_Rejects(t *testing.T) {
	g := newTestGateway(t)
	sa, sb := g.connect("a"), g.connect("b")

	tests := []struct {
		name string
		s    *fakeSession
		raw  string
		code string
	}{
		{"bad json", sa, `{`, v1.ReasonValidation},
		{"unknown type", sa, `{"type":"dance"}`, v1.ReasonValidation},
		{"no nickname", sa, `{"type":"create_room","nickname":"  "}`, v1.ReasonValidation},
		{"not in room", sa, `{"type":"toggle_ready"}`, v1.ReasonNotInRoom},
		{"action not in room", sa, `{"type":"draw_card","action_id":"x"}`, v1.ReasonNotInRoom},
		{"join missing room", sb, `{"type":"join_room","room_id":"NOPE00","nickname":"bob"}`, v1.ReasonRoomNotFound},
		{"reconnect missing room", sb, `{"type":"reconnect","room_id":"NOPE00","player_id":"p"}`, v1.ReasonRoomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(g, tt.s, tt.raw)
			assert.Equal(t, tt.code, tt.s.lastError())
		})
	}

	send(g, sa, `{"type":"create_room","nickname":"ann"}`)
	require.NotNil(t, sa.last(v1.TypeRoomCreated))
	send(g, sa, `{"type":"create_room","nickname":"ann"}`)
	assert.Equal(t, v1.ReasonValidation, sa.lastError())
	assert.Equal(t, 1, sa.count(v1.TypeRoomCreated))
}

func TestGateway_RoomCommands(t *testing.T) {
	g := newTestGateway(t)
	sa, sb := g.connect("a"), g.connect("b")
	_, annID, _ := enter(t, g, sa, sb)

	send(g, sb, `{"type":"toggle_private","is_private":true}`)
	assert.Equal(t, v1.ReasonNotRoomCreator, sb.lastError())

	send(g, sa, `{"type":"change_deck_size","deck_size":36}`)
	require.NotNil(t, sb.last(v1.TypeDeckSizeChanged))

	send(g, sa, `{"type":"toggle_ready"}`)
	ready := sb.last(v1.TypePlayerReadyChanged)
	require.NotNil(t, ready)
	assert.Equal(t, annID, ready.Body.(*v1.PlayerReadyChanged).PlayerID)

	send(g, sb, `{"type":"toggle_ready"}`)
	started := sa.last(v1.TypeGameStarted)
	require.NotNil(t, started)
	assert.Equal(t, annID, started.Body.(*v1.GameStarted).PlayerID)

	send(g, sa, `{"type":"skip_turn","turn":999}`)
	assert.Equal(t, v1.ReasonStaleAction, sa.lastError())
}

func TestGateway_ChatRateLimit(t *testing.T) {
	g := newTestGateway(t, func(c *conf.Room) {
		c.Chat = conf.Chat{Rate: 0.001, Burst: 2}
	})
	sa, sb := g.connect("a"), g.connect("b")
	enter(t, g, sa, sb)

	send(g, sa, `{"type":"chat_message","message":" hi "}`)
	send(g, sa, `{"type":"reaction","reaction":"👍"}`)
	send(g, sa, `{"type":"chat_message","message":"again"}`)

	assert.Equal(t, v1.ReasonRateLimited, sa.lastError())
	chat := sb.last(v1.TypeChatMessage)
	require.NotNil(t, chat)
	assert.Equal(t, "hi", chat.Body.(*v1.ChatMessage).Message)
	assert.Equal(t, 1, sb.count(v1.TypeChatMessage))
	assert.Equal(t, 1, sb.count(v1.TypeReaction))

	// 限流按连接计算
	send(g, sb, `{"type":"chat_message","message":"yo"}`)
	assert.Equal(t, 2, sa.count(v1.TypeChatMessage))
}

func TestGateway_Leave(t *testing.T) {
	g := newTestGateway(t)
	sa, sb := g.connect("a"), g.connect("b")
	_, _, bobID := enter(t, g, sa, sb)
	lists := sb.count(v1.TypeRoomsList)

	send(g, sb, `{"type":"leave_room"}`)
	left := sa.last(v1.TypePlayerLeft)
	require.NotNil(t, left)
	assert.Equal(t, bobID, left.Body.(*v1.PlayerLeft).PlayerID)

	require.Eventually(t, func() bool {
		return sb.count(v1.TypeRoomsList) > lists
	}, time.Second, 5*time.Millisecond)
	send(g, sb, `{"type":"toggle_ready"}`)
	assert.Equal(t, v1.ReasonNotInRoom, sb.lastError())
}

func TestGateway_Supersede(t *testing.T) {
	g := newTestGateway(t)
	sa, sb := g.connect("a"), g.connect("b")
	roomID, _, bobID := enter(t, g, sa, sb)

	sb2 := g.connect("b2")
	send(g, sb2, `{"type":"reconnect","room_id":"`+roomID+`","player_id":"`+bobID+`"}`)
	require.NotNil(t, sb2.last(v1.TypeRoomJoined))
	assert.Equal(t, v1.ReasonSessionSuperseded, sb.lastError())
	require.NotNil(t, sa.last(v1.TypePlayerReconnected))

	send(g, sb, `{"type":"toggle_ready"}`)
	assert.Equal(t, v1.ReasonNotInRoom, sb.lastError())

	// 旧连接断开不影响新连接
	g.close("b")
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, sa.count(v1.TypePlayerDisconnected))
	assert.Nil(t, sa.last(v1.TypePlayerLeft))

	send(g, sb2, `{"type":"toggle_ready"}`)
	assert.NotNil(t, sa.last(v1.TypePlayerReadyChanged))
}

func TestGateway_DisconnectGrace(t *testing.T) {
	g := newTestGateway(t)
	sa, sb := g.connect("a"), g.connect("b")
	_, _, bobID := enter(t, g, sa, sb)

	g.close("b")
	require.NotNil(t, sa.last(v1.TypePlayerDisconnected))
	require.Eventually(t, func() bool {
		p := sa.last(v1.TypePlayerLeft)
		return p != nil && p.Body.(*v1.PlayerLeft).PlayerID == bobID
	}, time.Second, 5*time.Millisecond)
}

func TestGateway_ReconnectWithinGrace(t *testing.T) {
	g := newTestGateway(t, func(c *conf.Room) {
		c.Timing.GraceWindow = conf.Duration(100 * time.Millisecond)
	})
	sa, sb := g.connect("a"), g.connect("b")
	roomID, _, bobID := enter(t, g, sa, sb)

	g.close("b")
	sb2 := g.connect("b2")
	send(g, sb2, `{"type":"reconnect","room_id":"`+roomID+`","player_id":"`+bobID+`"}`)
	require.NotNil(t, sb2.last(v1.TypeRoomJoined))

	time.Sleep(250 * time.Millisecond)
	assert.Nil(t, sa.last(v1.TypePlayerLeft))

	send(g, sb2, `{"type":"reconnect","room_id":"`+roomID+`","player_id":"`+bobID+`"}`)
	assert.Empty(t, sb2.lastError())
	send(g, sb2, `{"type":"reconnect","room_id":"`+roomID+`","player_id":"someone"}`)
	assert.Equal(t, v1.ReasonValidation, sb2.lastError())
}
