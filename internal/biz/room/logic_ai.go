package room

import (
	"github.com/go-kratos/kratos/v2/log"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/robot"
	"github.com/yola1107/czech/internal/biz/rules"
)

// RobotLogic 机器人和托管座位的出牌逻辑
type RobotLogic struct {
	mRoom     *Room
	scheduled map[string]int64 // 玩家 -> 已安排决策时的 moves
}

func (r *RobotLogic) init(room *Room) {
	r.mRoom = room
	r.scheduled = make(map[string]int64)
}

func (r *RobotLogic) reset() {
	clear(r.scheduled)
}

// OnMessage AI 监听推送, 轮到自己时安排一次决策
func (r *RobotLogic) OnMessage(p *player.Player, pkt *v1.Packet) {
	if p == nil || pkt == nil {
		return
	}
	switch pkt.Type {
	case v1.TypeGameStarted, v1.TypeCardPlayed, v1.TypeCardDrawn, v1.TypeTurnSkipped:
		r.activePlayer(p)
	default:
	}
}

// activePlayer 持房间锁调用
func (r *RobotLogic) activePlayer(p *player.Player) {
	room := r.mRoom
	g := room.game
	if g == nil || g.Finished || room.stage.GetState() != PhPlaying {
		return
	}
	if !p.IsAI() || g.CurrentPlayerID() != p.GetPlayerID() {
		return
	}
	moves := room.moves
	if last, ok := r.scheduled[p.GetPlayerID()]; ok && last == moves {
		return
	}
	r.scheduled[p.GetPlayerID()] = moves

	delay := room.repo.GetRoomConfig().Timing.BotDelay.Std()
	playerID, turn := p.GetPlayerID(), g.Turn
	room.repo.GetTimer().Once(delay, func() {
		r.onDecide(playerID, turn, moves)
	})
}

// onDecide 定时回调: 状态未变才出手
func (r *RobotLogic) onDecide(playerID string, turn, moves int64) {
	room := r.mRoom
	room.mu.Lock()
	defer room.mu.Unlock()

	g := room.game
	if g == nil || room.stage.GetState() != PhPlaying || g.Turn != turn || room.moves != moves {
		return
	}
	p := room.getPlayer(playerID)
	if p == nil || !p.IsAI() || g.CurrentPlayerID() != playerID {
		return
	}

	points := rules.PointTable(room.repo.GetRoomConfig().Rules.Points)
	a, ok := robot.Decide(robot.FromGame(g, g.SeatOf(playerID)), points)
	if !ok {
		log.Errorf("no available action: p=%v room=%v", p.Desc(), room.Desc())
		return
	}
	log.Debugf("=> ai p:%v top=%v action=%v %s", p.Desc(), g.Top(), a.Kind, a.CardID)
	if err := room.applyAction(p, a, true); err != nil {
		log.Errorf("ai action rejected: p=%v action=%v err=%v", p.Desc(), a.Kind, err)
	}
}
