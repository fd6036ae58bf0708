package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/yola1107/czech/internal/conf"
)

const (
	MinStartPlayerCnt = 2 // 最少开局人数
	MaxPlayerCnt      = 4
)

// Phase 房间阶段: Lobby -> Playing -> RoundOver -> Lobby ..., 任意阶段都可能 Closed
type Phase int32

const (
	PhLobby Phase = iota
	PhPlaying
	PhRoundOver
	PhClosed
)

func (p Phase) String() string {
	switch p {
	case PhLobby:
		return "lobby"
	case PhPlaying:
		return "playing"
	case PhRoundOver:
		return "round_over"
	case PhClosed:
		return "closed"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

// Timeout 只有结算展示阶段自动结束
func (p Phase) Timeout(c *conf.Timing) time.Duration {
	if p == PhRoundOver {
		return c.SettleDelay.Std()
	}
	return 0
}

// Stage 当前阶段和它的定时器
type Stage struct {
	mu       sync.RWMutex
	cur      Phase
	prev     Phase
	timerID  int64
	deadline time.Time // 零值表示不限时
}

func (s *Stage) Set(state Phase, d time.Duration, timerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prev, s.cur, s.timerID = s.cur, state, timerID
	s.deadline = time.Time{}
	if d > 0 {
		s.deadline = time.Now().Add(d)
	}
}

func (s *Stage) GetState() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Stage) GetTimerID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timerID
}

func (s *Stage) Desc() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deadline.IsZero() {
		return fmt.Sprintf("[%v -> %v]", s.prev, s.cur)
	}
	return fmt.Sprintf("[%v -> %v, left=%v]", s.prev, s.cur, time.Until(s.deadline).Round(time.Millisecond))
}
