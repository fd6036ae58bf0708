package service

import (
	"sync"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/transport/websocket"
	"golang.org/x/time/rate"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewGateway)

// conn 一条连接; playerID 为空表示在大厅
type conn struct {
	sess     player.Session
	roomID   string
	playerID string
	limiter  *rate.Limiter // 聊天/表情限流
}

func (c *conn) bound() bool { return c.playerID != "" }

func (c *conn) unbind() { c.roomID, c.playerID = "", "" }

// live 玩家当前连接; sessionID 为空表示断线宽限中
type live struct {
	sessionID string
	gen       int64
}

// Gateway 连接与玩家的绑定表, 把上行命令路由到房间
type Gateway struct {
	mu      sync.Mutex
	conns   map[string]*conn // sessionID ->
	players map[string]*live // playerID ->

	gen     atomic.Int64 // 每次绑定/断线 +1, 宽限回调据此判断是否过期
	pending atomic.Bool  // 大厅广播已排队
	reg     *room.Registry
}

var (
	_ websocket.Handler = (*Gateway)(nil)
	_ room.Listener     = (*Gateway)(nil)
)

func NewGateway(reg *room.Registry) *Gateway {
	g := &Gateway{
		conns:   make(map[string]*conn),
		players: make(map[string]*live),
		reg:     reg,
	}
	reg.SetListener(g)
	return g
}

/*
	websocket.Handler
*/

func (g *Gateway) OnSessionOpen(sess *websocket.Session) { g.open(sess) }

func (g *Gateway) OnSessionClose(sess *websocket.Session) { g.close(sess.ID()) }

func (g *Gateway) OnMessage(sess *websocket.Session, data []byte) { g.handle(sess, data) }

func (g *Gateway) open(s player.Session) {
	chat := g.reg.GetRoomConfig().Chat
	g.mu.Lock()
	g.conns[s.ID()] = &conn{
		sess:    s,
		limiter: rate.NewLimiter(rate.Limit(chat.Rate), chat.Burst),
	}
	g.mu.Unlock()
	g.pushRooms(s)
}

func (g *Gateway) close(sessionID string) {
	g.mu.Lock()
	c, ok := g.conns[sessionID]
	delete(g.conns, sessionID)
	if !ok || !c.bound() {
		g.mu.Unlock()
		return
	}
	l := g.players[c.playerID]
	if l == nil || l.sessionID != sessionID {
		g.mu.Unlock()
		return
	}
	l.sessionID = ""
	l.gen = g.gen.Add(1)
	roomID, playerID, gen := c.roomID, c.playerID, l.gen
	g.mu.Unlock()

	g.disconnect(roomID, playerID, sessionID, gen)
}

// disconnect 标记离线并开始宽限计时
func (g *Gateway) disconnect(roomID, playerID, sessionID string, gen int64) {
	r := g.reg.Get(roomID)
	if r == nil || !r.Disconnect(playerID, sessionID) {
		return
	}
	grace := g.reg.GetRoomConfig().Timing.GraceWindow.Std()
	g.reg.GetTimer().Once(grace, func() { g.onGraceExpired(roomID, playerID, gen) })
}

func (g *Gateway) onGraceExpired(roomID, playerID string, gen int64) {
	g.mu.Lock()
	l := g.players[playerID]
	expired := l != nil && l.gen == gen && l.sessionID == ""
	g.mu.Unlock()
	if !expired {
		return
	}
	if r := g.reg.Get(roomID); r != nil {
		r.OnGraceExpired(playerID)
	}
}

// bind 连接绑定到玩家; 玩家原有的其他连接被顶替
func (g *Gateway) bind(s player.Session, roomID, playerID string) {
	g.mu.Lock()
	var old *conn
	if l := g.players[playerID]; l != nil && l.sessionID != "" && l.sessionID != s.ID() {
		if old = g.conns[l.sessionID]; old != nil {
			old.unbind()
		}
	}
	gen := g.gen.Add(1)
	c, alive := g.conns[s.ID()]
	if alive {
		c.roomID, c.playerID = roomID, playerID
		g.players[playerID] = &live{sessionID: s.ID(), gen: gen}
	} else {
		g.players[playerID] = &live{gen: gen}
	}
	g.mu.Unlock()

	if old != nil {
		log.Infof("session superseded. player:%s old:%s new:%s", playerID, old.sess.ID(), s.ID())
		_ = old.sess.Push(v1.ErrorPayload(v1.ErrSessionSuperseded))
		g.pushRooms(old.sess)
	}
	// 绑定前连接已断开
	if !alive {
		g.disconnect(roomID, playerID, s.ID(), gen)
	}
}

// binding 连接当前绑定的房间和玩家
func (g *Gateway) binding(sessionID string) (c conn, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.conns[sessionID]
	if !ok {
		return conn{}, false
	}
	return *p, true
}

func (g *Gateway) unbindSession(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.conns[sessionID]
	if !ok || !c.bound() {
		return
	}
	if l := g.players[c.playerID]; l != nil && l.sessionID == sessionID {
		delete(g.players, c.playerID)
	}
	c.unbind()
}

/*
	room.Listener, 在房间锁内调用
*/

// RoomsChanged 合并为一次异步大厅广播
func (g *Gateway) RoomsChanged() {
	if !g.pending.CompareAndSwap(false, true) {
		return
	}
	g.reg.GetLoop().Post(func() {
		g.pending.Store(false)
		g.broadcastRooms()
	})
}

// PlayerRemoved 玩家离开房间, 连接回到大厅
func (g *Gateway) PlayerRemoved(roomID, playerID string) {
	g.mu.Lock()
	var s player.Session
	if l, ok := g.players[playerID]; ok {
		delete(g.players, playerID)
		if c := g.conns[l.sessionID]; c != nil && c.roomID == roomID && c.playerID == playerID {
			c.unbind()
			s = c.sess
		}
	}
	g.mu.Unlock()

	if s != nil {
		g.reg.GetLoop().Post(func() { g.pushRooms(s) })
	}
}

/*
	大厅
*/

func (g *Gateway) roomsList() *v1.Packet {
	return v1.NewPacket(v1.TypeRoomsList, &v1.RoomsList{Rooms: g.reg.ListOpen()})
}

func (g *Gateway) pushRooms(s player.Session) {
	_ = s.Push(g.roomsList())
}

func (g *Gateway) broadcastRooms() {
	pkt := g.roomsList()
	g.mu.Lock()
	lobby := make([]player.Session, 0, len(g.conns))
	for _, c := range g.conns {
		if !c.bound() {
			lobby = append(lobby, c.sess)
		}
	}
	g.mu.Unlock()

	for _, s := range lobby {
		_ = s.Push(pkt)
	}
}

// SessionCount 在线连接数和已入座连接数
func (g *Gateway) SessionCount() (total, seated int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.conns {
		if c.bound() {
			seated++
		}
	}
	return len(g.conns), seated
}
