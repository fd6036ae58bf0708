package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-kratos/kratos/v2/log"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/internal/data"
	"github.com/yola1107/czech/internal/service"
)

// HTTPHandler 健康检查/大厅列表/指标
type HTTPHandler struct {
	gw      *service.Gateway
	reg     *room.Registry
	metrics *data.Metrics
}

func NewHTTPHandler(gw *service.Gateway, reg *room.Registry, m *data.Metrics) *HTTPHandler {
	return &HTTPHandler{gw: gw, reg: reg, metrics: m}
}

type health struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Rooms    int    `json:"rooms"`
	Sessions int    `json:"sessions"`
	Seated   int    `json:"seated"`
}

func (h *HTTPHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	total, seated := h.gw.SessionCount()
	writeJSON(w, http.StatusOK, &health{
		Status:   "ok",
		Version:  conf.Version,
		Rooms:    h.reg.Len(),
		Sessions: total,
		Seated:   seated,
	})
}

func (h *HTTPHandler) Rooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &v1.RoomsList{Rooms: h.gw.Rooms()})
}

func (h *HTTPHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	counters, err := h.metrics.Counters(r.Context())
	if err != nil {
		log.Errorf("[http] collect metrics: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, counters)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("[http] write response: %v", err)
	}
}
