package conf

import (
	"sync/atomic"
)

// RoomHolder 房间配置, 热更新时整体替换
type RoomHolder struct {
	v atomic.Pointer[Room]
}

func NewRoomHolder(r *Room) *RoomHolder {
	h := &RoomHolder{}
	h.v.Store(r)
	return h
}

func (h *RoomHolder) Load() *Room { return h.v.Load() }

func (h *RoomHolder) Store(r *Room) { h.v.Store(r) }
