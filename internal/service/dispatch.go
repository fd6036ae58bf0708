package service

import (
	"context"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/rules"
)

const loadTimeout = 5 * time.Second

var errAlreadyInRoom = v1.Invalid("already in a room, leave it first")

// handle 处理一帧上行消息, 出错时回 error
func (g *Gateway) handle(s player.Session, data []byte) {
	cmd, err := v1.Decode(data)
	if err == nil {
		err = g.dispatch(s, cmd)
	}
	if err != nil {
		e := kerrors.FromError(err)
		if e.Reason == "" {
			log.Errorf("handle message failed. session:%s err:%v", s.ID(), err)
		} else {
			log.Debugf("request rejected. session:%s reason:%s msg:%s", s.ID(), e.Reason, e.Message)
		}
		_ = s.Push(v1.ErrorPayload(err))
	}
}

func (g *Gateway) dispatch(s player.Session, cmd v1.Command) error {
	if rc, ok := cmd.(v1.RoomCommand); ok {
		return g.roomCommand(s, rc)
	}

	switch req := cmd.(type) {
	case *v1.GetRoomsReq:
		g.pushRooms(s)
		return nil
	case *v1.CreateRoomReq:
		if err := g.lobbyOnly(s); err != nil {
			return err
		}
		r, p, err := g.reg.Create(req.Nickname, req.IsPrivate, req.DeckSize, s)
		if err != nil {
			return err
		}
		g.bind(s, r.ID, p.GetPlayerID())
	case *v1.CreateBotGameReq:
		if err := g.lobbyOnly(s); err != nil {
			return err
		}
		r, p, err := g.reg.CreateBotGame(req.Nickname, req.BotCount, req.DeckSize, s)
		if r != nil && p != nil {
			g.bind(s, r.ID, p.GetPlayerID())
		}
		return err
	case *v1.JoinRoomReq:
		if err := g.lobbyOnly(s); err != nil {
			return err
		}
		r, p, err := g.reg.Join(req.RoomID, req.Nickname, s)
		if err != nil {
			return err
		}
		g.bind(s, r.ID, p.GetPlayerID())
	case *v1.ReconnectReq:
		return g.reconnect(s, req)
	default:
		return v1.Invalid("unsupported message type %q", cmd.Type())
	}
	return nil
}

func (g *Gateway) lobbyOnly(s player.Session) error {
	if c, ok := g.binding(s.ID()); ok && c.bound() {
		return errAlreadyInRoom
	}
	return nil
}

// reconnect 房间不在内存时从存储重载
func (g *Gateway) reconnect(s player.Session, req *v1.ReconnectReq) error {
	if c, ok := g.binding(s.ID()); ok && c.bound() {
		if c.roomID == req.RoomID && c.playerID == req.PlayerID {
			return nil
		}
		return errAlreadyInRoom
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	r, err := g.reg.Load(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if err := r.Reconnect(req.PlayerID, s); err != nil {
		return err
	}
	g.bind(s, r.ID, req.PlayerID)
	return nil
}

// roomCommand 已入座连接的房间内命令
func (g *Gateway) roomCommand(s player.Session, cmd v1.RoomCommand) error {
	c, ok := g.binding(s.ID())
	if !ok || !c.bound() {
		return v1.ErrNotInRoom
	}
	r := g.reg.Get(c.roomID)
	if r == nil {
		g.unbindSession(s.ID())
		return v1.ErrRoomNotFound
	}

	pid := c.playerID
	switch req := cmd.(type) {
	case *v1.ToggleReadyReq:
		return r.OnToggleReady(pid)
	case *v1.TogglePrivateReq:
		return r.OnSetPrivacy(pid, req.IsPrivate)
	case *v1.ChangeDeckSizeReq:
		return r.OnSetDeckSize(pid, req.DeckSize)
	case *v1.LeaveRoomReq:
		return r.OnLeave(pid)
	case *v1.PlayCardReq:
		return r.OnAction(pid, rules.Play(req.CardID, rules.Suit(req.ChosenSuit)), req.Action())
	case *v1.DrawCardReq:
		return r.OnAction(pid, rules.Draw(), req.Action())
	case *v1.SkipTurnReq:
		return r.OnAction(pid, rules.Skip(), req.Action())
	case *v1.ChatMessageReq:
		if !c.limiter.Allow() {
			return v1.ErrRateLimited
		}
		return r.OnChat(pid, req.Message)
	case *v1.ReactionReq:
		if !c.limiter.Allow() {
			return v1.ErrRateLimited
		}
		return r.OnReaction(pid, req.Reaction)
	default:
		return v1.Invalid("unsupported message type %q", cmd.Type())
	}
}

// Rooms 大厅房间列表, 供 http 接口使用
func (g *Gateway) Rooms() []v1.RoomSummary {
	return g.reg.ListOpen()
}
