package server

import (
	"net/http"

	"github.com/go-kratos/kratos/v2/transport"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/internal/service"
	"github.com/yola1107/czech/transport/websocket"
)

var (
	_ transport.Server = (*websocket.Server)(nil)
	_ transport.Server = (*room.Registry)(nil)
)

// NewWebsocketServer new an Websocket server.
func NewWebsocketServer(c *conf.Server, gw *service.Gateway, h *HTTPHandler) *websocket.Server {
	srv := websocket.NewServer(
		websocket.Address(c.Addr),
		websocket.Path(c.WsPath),
		websocket.Timeout(c.Timeout.Std()),
		websocket.MaxConnLimit(c.MaxConn),
		websocket.Heartbeat(c.ReadDeadline.Std(), c.PingInterval.Std(), c.WriteTimeout.Std()),
		websocket.SentChanSize(c.SendChanSize),
	)
	srv.RegisterHandler(gw)
	h.Register(srv)
	return srv
}

// Register 挂载 http 接口
func (h *HTTPHandler) Register(srv *websocket.Server) {
	srv.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet, http.MethodOptions)
	srv.HandleFunc("/api/rooms", h.Rooms).Methods(http.MethodGet, http.MethodOptions)
	srv.HandleFunc("/debug/metrics", h.Metrics).Methods(http.MethodGet, http.MethodOptions)
}
