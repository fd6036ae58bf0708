package room

import (
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/rules"
)

// lobbyPlayer 大厅阶段的命令公共校验
func (r *Room) lobbyPlayer(playerID string) (*player.Player, error) {
	if r.closed() {
		return nil, v1.ErrRoomNotFound
	}
	p := r.getPlayer(playerID)
	if p == nil {
		return nil, v1.ErrPlayerNotFound
	}
	if r.stage.GetState() != PhLobby {
		return nil, v1.ErrGameStarted
	}
	return p, nil
}

// creatorOnly 房主在开局前才能改房间设置
func (r *Room) creatorOnly(playerID string) error {
	if _, err := r.lobbyPlayer(playerID); err != nil {
		return err
	}
	if r.creatorID != playerID {
		return v1.ErrNotRoomCreator
	}
	if r.sessionStarted {
		return v1.ErrGameStarted
	}
	return nil
}

func (r *Room) OnToggleReady(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.lobbyPlayer(playerID)
	if err != nil {
		return err
	}
	if p.IsReady() {
		p.SetSit()
	} else {
		p.SetReady()
	}
	r.broadcastReady(p)
	r.mLog.ready(p)
	r.commit()
	r.checkCountdown()
	return nil
}

func (r *Room) OnSetPrivacy(playerID string, private bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.creatorOnly(playerID); err != nil {
		return err
	}
	if r.isPrivate == private {
		return nil
	}
	r.isPrivate = private
	r.SendPacketToAll(v1.NewPacket(v1.TypeRoomPrivacyChanged, &v1.RoomPrivacyChanged{IsPrivate: private}))
	r.commit()
	return nil
}

func (r *Room) OnSetDeckSize(playerID string, size int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.creatorOnly(playerID); err != nil {
		return err
	}
	if !rules.ValidDeckSize(size) {
		return v1.Invalid("deck size must be 36 or 52")
	}
	if r.deckSize == size {
		return nil
	}
	r.deckSize = size
	r.SendPacketToAll(v1.NewPacket(v1.TypeDeckSizeChanged, &v1.DeckSizeChanged{DeckSize: size}))
	r.broadcastRoomUpdated()
	r.commit()
	return nil
}

// OnLeave 主动离开; 私密房间房主离开则关闭房间
func (r *Room) OnLeave(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.lobbyPlayer(playerID)
	if err != nil {
		return err
	}
	r.leave(p, "leave")
	return nil
}

// leave 移出座位; 私密房间房主离开则关闭房间
func (r *Room) leave(p *player.Player, reason string) {
	creator := r.isPrivate && r.creatorID == p.GetPlayerID()
	r.throwOff(p, reason)
	if creator {
		r.closeRoom("the room creator left")
		return
	}
	r.afterLeave()
}

// afterLeave 没有真人时删除房间, 否则重新检查倒计时
func (r *Room) afterLeave() {
	if r.humanCnt() == 0 {
		r.closeRoom("")
		return
	}
	r.broadcastRoomUpdated()
	r.commit()
	r.checkCountdown()
}

// OnAction 出牌/摸牌/过牌
func (r *Room) OnAction(playerID string, a rules.Action, meta *v1.GameAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed() {
		return v1.ErrRoomNotFound
	}
	p := r.getPlayer(playerID)
	if p == nil {
		return v1.ErrPlayerNotFound
	}
	if r.stage.GetState() != PhPlaying || r.game == nil {
		return v1.ErrIllegalAction
	}
	if meta != nil {
		// 重复的 action_id 静默丢弃
		if p.HasAction(meta.ActionID) {
			log.Debugf("duplicate action dropped. p:%v id:%s", p.Desc(), meta.ActionID)
			return nil
		}
		if meta.Turn != nil && *meta.Turn != r.game.Turn {
			return v1.ErrStaleAction
		}
	}
	if err := r.applyAction(p, a, false); err != nil {
		return err
	}
	if meta != nil {
		p.AddAction(meta.ActionID)
	}
	return nil
}

// toWireError 引擎错误转为下行错误
func toWireError(err error) error {
	switch {
	case errors.Is(err, rules.ErrNotYourTurn):
		return v1.ErrNotYourTurn
	case errors.Is(err, rules.ErrCardNotFound):
		return v1.ErrCardNotFound
	case errors.Is(err, rules.ErrDeckExhausted):
		return v1.ErrDeckExhausted
	case errors.Is(err, rules.ErrIllegalAction):
		return kerrors.New(409, v1.ReasonIllegalAction, err.Error())
	case errors.Is(err, rules.ErrRoundOver):
		return v1.ErrIllegalAction
	default:
		return err
	}
}

func (r *Room) OnChat(playerID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed() {
		return v1.ErrRoomNotFound
	}
	p := r.getPlayer(playerID)
	if p == nil {
		return v1.ErrPlayerNotFound
	}
	r.SendPacketToAll(v1.NewPacket(v1.TypeChatMessage, &v1.ChatMessage{
		PlayerID:       p.GetPlayerID(),
		PlayerNickname: p.GetNickName(),
		Message:        message,
	}))
	r.mLog.chat(p, message)
	return nil
}

func (r *Room) OnReaction(playerID, reaction string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed() {
		return v1.ErrRoomNotFound
	}
	p := r.getPlayer(playerID)
	if p == nil {
		return v1.ErrPlayerNotFound
	}
	r.SendPacketToAll(v1.NewPacket(v1.TypeReaction, &v1.Reaction{
		PlayerID:       p.GetPlayerID(),
		PlayerNickname: p.GetNickName(),
		Reaction:       reaction,
	}))
	return nil
}

// OnGraceExpired 断线超时: 开局前直接移除, 之后转为托管
func (r *Room) OnGraceExpired(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graceExpired(playerID)
}

func (r *Room) graceExpired(playerID string) {
	if r.closed() {
		return
	}
	p := r.getPlayer(playerID)
	if p == nil || p.IsRobot() || !p.IsOffline() {
		return
	}
	r.mLog.graceExpired(p)

	if !r.sessionStarted && r.stage.GetState() == PhLobby {
		r.leave(p, "grace expired")
		return
	}
	if p.IsAutopilot() {
		return
	}
	p.SetAutopilot(true)
	log.Infof("autopilot on. p:%+v room:%s", p.Desc(), r.Desc())
	switch r.stage.GetState() {
	case PhLobby:
		p.SetReady()
		r.broadcastReady(p)
		r.checkCountdown()
	case PhPlaying:
		delete(r.aiLogic.scheduled, p.GetPlayerID())
		r.aiLogic.activePlayer(p)
	}
	r.broadcastRoomUpdated()
	r.commit()
}

// Close 外部关闭房间, 例如清理只剩机器人的房间
func (r *Room) Close(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeRoom(msg)
}
