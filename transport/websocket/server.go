package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var _ transport.Server = (*Server)(nil)

// Handler 业务层回调; 同一会话的 OnMessage 在读协程里串行调用
type Handler interface {
	OnSessionOpen(sess *Session)
	// OnSessionClose 每个会话只调用一次
	OnSessionClose(sess *Session)
	OnMessage(sess *Session, data []byte)
}

// ServerOption is a Websocket server option.
type ServerOption func(*Server)

func Address(addr string) ServerOption { return func(s *Server) { s.addr = addr } }

func Path(path string) ServerOption { return func(s *Server) { s.path = path } }

// Timeout 读请求头超时
func Timeout(d time.Duration) ServerOption { return func(s *Server) { s.timeout = d } }

func MaxConnLimit(n int32) ServerOption { return func(s *Server) { s.maxConn = n } }

// Heartbeat 读超时, ping 间隔, 写超时
func Heartbeat(read, ping, write time.Duration) ServerOption {
	return func(s *Server) {
		s.session.ReadDeadline, s.session.PingInterval, s.session.WriteTimeout = read, ping, write
	}
}

func SentChanSize(size int) ServerOption { return func(s *Server) { s.session.SendChanSize = size } }

// Server websocket 和普通 http 路由共用一个端口
type Server struct {
	http     *http.Server
	lis      net.Listener
	addr     string
	path     string
	timeout  time.Duration
	maxConn  int32
	session  SessionConfig
	router   *mux.Router
	upgrader websocket.Upgrader
	hub      *hub
	handler  Handler
}

// NewServer creates a Websocket server by options.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		addr:    ":0",
		path:    "/ws",
		timeout: 5 * time.Second,
		maxConn: 10000,
		session: SessionConfig{
			WriteTimeout: 10 * time.Second,
			PingInterval: 15 * time.Second,
			ReadDeadline: 60 * time.Second,
			SendChanSize: 128,
		},
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, o := range opts {
		o(s)
	}
	s.hub = newHub(s.maxConn)
	s.http = &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: s.timeout}
	s.router.HandleFunc(s.path, s.upgrade).Methods(http.MethodGet)
	return s
}

// RegisterHandler 只能注册一次, 必须在 Start 之前
func (s *Server) RegisterHandler(h Handler) {
	if s.handler != nil {
		panic("websocket: handler already registered")
	}
	s.handler = h
}

// HandleFunc 挂载普通 http 路由, 带 CORS 头
func (s *Server) HandleFunc(path string, f http.HandlerFunc) *mux.Route {
	return s.router.Handle(path, CORS(f))
}

// Router 测试时挂到 httptest
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) SessionCount() int { return s.hub.len() }

func (s *Server) Start(ctx context.Context) error {
	if s.lis == nil {
		lis, err := net.Listen("tcp", s.addr)
		if err != nil {
			return err
		}
		s.lis = lis
	}
	s.http.BaseContext = func(net.Listener) context.Context { return ctx }
	log.Infof("[websocket] listening on %s, ws path %s", s.lis.Addr(), s.path)
	if err := s.http.Serve(s.lis); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 先停止接受新连接, 再断开已有会话
func (s *Server) Stop(ctx context.Context) error {
	log.Infof("[websocket] stopping. online=%d", s.hub.len())
	err := s.http.Shutdown(ctx)
	s.hub.closeAll()
	return err
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) {
	if !s.hub.reserve() {
		log.Warnf("[websocket] over max connections(%d). remote=%s", s.maxConn, r.RemoteAddr)
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.release()
		log.Errorf("[websocket] upgrade: %v", err)
		return
	}
	NewSession(s, conn, &s.session)
}

func (s *Server) OnSessionOpen(sess *Session) {
	s.hub.add(sess)
	if s.handler != nil {
		s.handler.OnSessionOpen(sess)
	}
}

func (s *Server) OnSessionClose(sess *Session) {
	if s.handler != nil {
		s.handler.OnSessionClose(sess)
	}
	s.hub.remove(sess)
}

func (s *Server) DispatchMessage(sess *Session, data []byte) error {
	if s.handler == nil {
		return errors.New("websocket: no handler registered")
	}
	s.handler.OnMessage(sess, data)
	return nil
}

// CORS 允许任意来源的 GET; OPTIONS 预检直接返回 204
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Content-Type", "application/json; charset=utf-8")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
