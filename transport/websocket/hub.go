package websocket

import (
	"sync"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
)

// hub 在线会话表. 升级前先占位, 并发握手也不会超过上限
type hub struct {
	limit    int32
	slots    atomic.Int32 // 已占位, 含握手中的
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newHub(limit int32) *hub {
	return &hub{limit: limit, sessions: make(map[string]*Session)}
}

// reserve 占一个连接名额, 满了返回 false
func (h *hub) reserve() bool {
	if h.slots.Add(1) > h.limit {
		h.slots.Add(-1)
		return false
	}
	return true
}

func (h *hub) release() { h.slots.Add(-1) }

func (h *hub) add(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID()] = s
	n := len(h.sessions)
	h.mu.Unlock()
	log.Infof("[ws] session open. id=%s remote=%s online=%d", s.ID(), s.GetRemoteIP(), n)
}

// remove 同时归还名额
func (h *hub) remove(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.ID()]
	delete(h.sessions, s.ID())
	n := len(h.sessions)
	h.mu.Unlock()
	if ok {
		h.release()
		log.Infof("[ws] session closed. id=%s online=%d", s.ID(), n)
	}
}

func (h *hub) get(id string) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[id]
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// closeAll 停服时断开全部连接; 回调里会 remove, 所以先拷贝
func (h *hub) closeAll() {
	h.mu.RLock()
	all := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		all = append(all, s)
	}
	h.mu.RUnlock()
	for _, s := range all {
		s.Close(true)
	}
}
