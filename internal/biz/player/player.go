package player

import (
	"fmt"
)

// 玩家状态
const (
	StFree   Status = iota // 未入座
	StSit                  // 入座
	StReady                // 准备
	StGaming               // 游戏中
)

type Status int32

func (s Status) String() string {
	switch s {
	case StFree:
		return "Free"
	case StSit:
		return "Sit"
	case StReady:
		return "Ready"
	case StGaming:
		return "Gaming"
	default:
		return fmt.Sprintf("%d", s)
	}
}

// Session 玩家当前的长连接
type Session interface {
	ID() string
	Push(v any) error
}

const actionHistory = 32

// BaseData 玩家基础信息
type BaseData struct {
	ID       string
	Nickname string
	IsBot    bool
}

// GameData 房间内的对局信息
type GameData struct {
	Seat      int    // 座位号
	status    Status // 玩家状态
	score     int    // 本场累计分
	offline   bool   // 是否离线
	autopilot bool   // 离线超时后由机器人代打
	idleCount int32  // 托管期间代打次数
	epoch     int64  // 每次绑定新连接 +1

	actions [actionHistory]string // 最近的 action_id
	next    int
}

type Player struct {
	baseData BaseData
	gameData GameData
	session  Session
}

func New(id, nickname string, isBot bool) *Player {
	p := &Player{
		baseData: BaseData{ID: id, Nickname: nickname, IsBot: isBot},
	}
	p.gameData.Seat = -1
	p.gameData.status = StSit
	p.gameData.offline = !isBot
	return p
}

func (p *Player) GetPlayerID() string { return p.baseData.ID }

func (p *Player) GetNickName() string { return p.baseData.Nickname }

func (p *Player) IsRobot() bool { return p.baseData.IsBot }

// IsAI 机器人或托管中的玩家, 由 AI 出牌
func (p *Player) IsAI() bool { return p.baseData.IsBot || p.gameData.autopilot }

func (p *Player) SetSeat(seat int) { p.gameData.Seat = seat }

func (p *Player) GetSeat() int { return p.gameData.Seat }

func (p *Player) GetStatus() Status { return p.gameData.status }

func (p *Player) SetSit() { p.gameData.status = StSit }

func (p *Player) SetReady() { p.gameData.status = StReady }

func (p *Player) IsReady() bool { return p.gameData.status == StReady }

func (p *Player) SetGaming() { p.gameData.status = StGaming }

func (p *Player) IsGaming() bool { return p.gameData.status == StGaming }

func (p *Player) GetScore() int { return p.gameData.score }

func (p *Player) SetScore(score int) { p.gameData.score = score }

func (p *Player) IsOffline() bool { return p.gameData.offline }

// Away 离线且无人代打, 轮转时跳过
func (p *Player) Away() bool { return p.gameData.offline && !p.IsAI() }

func (p *Player) IsAutopilot() bool { return p.gameData.autopilot }

func (p *Player) SetAutopilot(v bool) {
	p.gameData.autopilot = v
	if !v {
		p.gameData.idleCount = 0
	}
}

func (p *Player) IncrIdleCount() { p.gameData.idleCount++ }

func (p *Player) GetIdleCount() int32 { return p.gameData.idleCount }

func (p *Player) GetSession() Session { return p.session }

// Bind 绑定新连接, 同时恢复在线并退出托管
func (p *Player) Bind(s Session) {
	p.session = s
	p.gameData.offline = s == nil && !p.baseData.IsBot
	if s != nil {
		p.gameData.epoch++
		p.SetAutopilot(false)
	}
}

// Unbind 只解绑仍是 sessionID 的连接; 返回是否解绑
func (p *Player) Unbind(sessionID string) bool {
	if p.session == nil || p.session.ID() != sessionID {
		return false
	}
	p.session = nil
	p.gameData.offline = true
	return true
}

func (p *Player) GetEpoch() int64 { return p.gameData.epoch }

// HasAction 最近 32 个 action_id 中是否出现过
func (p *Player) HasAction(id string) bool {
	if id == "" {
		return false
	}
	for _, v := range p.gameData.actions {
		if v == id {
			return true
		}
	}
	return false
}

func (p *Player) AddAction(id string) {
	if id == "" {
		return
	}
	p.gameData.actions[p.gameData.next] = id
	p.gameData.next = (p.gameData.next + 1) % actionHistory
}

// ResetRound 一局结束: 机器人和托管玩家自动准备, 真人需重新准备
func (p *Player) ResetRound() {
	if p.IsAI() {
		p.SetReady()
		return
	}
	p.SetSit()
}

func (p *Player) Desc() string {
	return fmt.Sprintf("(%s %q seat:%d St:%v score:%d ai:%d offline:%d idle:%d)", p.GetPlayerID(), p.GetNickName(), p.GetSeat(),
		p.GetStatus(), p.GetScore(), bool2Int(p.IsAI()), bool2Int(p.IsOffline()), p.GetIdleCount())
}

func bool2Int(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Record 持久化用的玩家快照
type Record struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Seat      int    `json:"seat"`
	Status    Status `json:"status"`
	Score     int    `json:"score"`
	IsBot     bool   `json:"is_bot"`
	Autopilot bool   `json:"autopilot,omitempty"`
}

func (p *Player) Record() Record {
	return Record{
		ID:        p.baseData.ID,
		Nickname:  p.baseData.Nickname,
		Seat:      p.gameData.Seat,
		Status:    p.gameData.status,
		Score:     p.gameData.score,
		IsBot:     p.baseData.IsBot,
		Autopilot: p.gameData.autopilot,
	}
}

// FromRecord 从快照恢复; 真人一律视为离线, 等待重连
func FromRecord(r Record) *Player {
	p := New(r.ID, r.Nickname, r.IsBot)
	p.gameData.Seat = r.Seat
	p.gameData.status = r.Status
	p.gameData.score = r.Score
	p.gameData.autopilot = r.Autopilot
	return p
}
