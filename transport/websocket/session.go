package websocket

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yola1107/czech/library/xgo"
)

var (
	errSessionClosed = errors.New("session: closed")
	errSendNil       = errors.New("session: send nil message")
	errSendChanFull  = errors.New("session: send buffer full")
)

// sessionHandler 服务端和客户端各自实现
type sessionHandler interface {
	OnSessionOpen(sess *Session)
	// OnSessionClose 每个会话只回调一次
	OnSessionClose(sess *Session)
	// DispatchMessage 一帧 JSON 文本
	DispatchMessage(sess *Session, data []byte) error
}

type SessionConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadDeadline time.Duration
	SendChanSize int
}

// 关闭原因, 写进 close 帧
const (
	closeNormal    = "normal closure"
	closeForced    = "force closure"
	closeHeartbeat = "heartbeat timeout"
)

// Session 一条 websocket 连接.
// 读协程只读; 数据帧、ping 和 close 帧全部由写协程发出.
type Session struct {
	id     string
	h      sessionHandler
	conn   *websocket.Conn
	config *SessionConfig

	out        chan []byte
	done       chan struct{}
	closed     atomic.Bool
	reason     atomic.Value // string
	lastActive atomic.Int64 // unix nano
}

func NewSession(h sessionHandler, conn *websocket.Conn, config *SessionConfig) *Session {
	s := &Session{
		id:     uuid.NewString(),
		h:      h,
		conn:   conn,
		config: config,
		out:    make(chan []byte, config.SendChanSize),
		done:   make(chan struct{}),
	}
	s.touch()
	conn.SetPongHandler(func(string) error {
		s.touch()
		return conn.SetReadDeadline(time.Now().Add(config.ReadDeadline))
	})
	h.OnSessionOpen(s)
	go s.readLoop()
	go s.writeLoop()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) GetRemoteIP() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

func (s *Session) Closed() bool { return s.closed.Load() }

func (s *Session) touch() { s.lastActive.Store(time.Now().UnixNano()) }

// Send 非阻塞入队. 缓冲满说明对端读得太慢, 直接断开, 由断线重连恢复状态
func (s *Session) Send(message []byte) error {
	if message == nil {
		return errSendNil
	}
	if s.Closed() {
		return errSessionClosed
	}
	select {
	case s.out <- message:
		return nil
	default:
		log.Warnf("[ws] session=%s send buffer full(%d), closing", s.id, cap(s.out))
		go s.Close(true)
		return errSendChanFull
	}
}

// Push 编码为 JSON 文本帧后发送
func (s *Session) Push(v any) error {
	if v == nil {
		return errSendNil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Send(data)
}

// Close 只有第一次调用生效; 连接由写协程发完 close 帧后关闭
func (s *Session) Close(force bool) bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}
	reason := closeNormal
	if force {
		reason = closeForced
		if time.Since(s.LastActive()) > s.config.ReadDeadline {
			reason = closeHeartbeat
		}
	}
	s.reason.Store(reason)
	close(s.done)
	s.h.OnSessionClose(s)
	return true
}

func (s *Session) readLoop() {
	defer xgo.Recover("ws.read", nil)
	defer s.Close(false)

	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.ReadDeadline)); err != nil {
			return
		}
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warnf("[ws] session=%s unexpected close: %v", s.id, err)
			}
			return
		}
		s.touch()

		if typ != websocket.TextMessage {
			log.Warnf("[ws] session=%s non-text frame(%d) ignored", s.id, typ)
			continue
		}
		if err := s.h.DispatchMessage(s, data); err != nil {
			log.Warnf("[ws] session=%s dispatch: %v", s.id, err)
		}
	}
}

func (s *Session) writeLoop() {
	defer xgo.Recover("ws.write", nil)
	defer s.conn.Close()

	ping := time.NewTicker(s.config.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-s.done:
			reason, _ := s.reason.Load().(string)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.config.WriteTimeout))
			return

		case data := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if !s.Closed() {
					log.Errorf("[ws] session=%s write: %v", s.id, err)
				}
				s.Close(true)
				return
			}

		case <-ping.C:
			if time.Since(s.LastActive()) > s.config.ReadDeadline {
				log.Warnf("[ws] session=%s heartbeat timeout", s.id)
				s.Close(true)
				continue
			}
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout)); err != nil {
				s.Close(true)
			}
		}
	}
}
