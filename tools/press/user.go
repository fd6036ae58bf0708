package press

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/robot"
	"github.com/yola1107/czech/internal/biz/rules"
	"github.com/yola1107/czech/library/work"
	"github.com/yola1107/czech/transport/websocket"
)

type Repo interface {
	GetTimer() work.Scheduler
	GetLoop() work.Loop
	GetContext() context.Context
	GetConfig() Press
}

// User 一个模拟玩家: 进大厅, 加入或创建房间, 准备, 轮到自己时按机器人策略出牌
type User struct {
	repo     Repo
	id       int32
	nickname string
	client   atomic.Pointer[websocket.Client]
	seq      atomic.Int64 // action_id
	points   rules.PointTable

	mu       sync.Mutex
	roomID   string
	playerID string
	entering bool
}

func NewUser(id int32, repo Repo) *User {
	u := &User{
		repo:     repo,
		id:       id,
		nickname: fmt.Sprintf("%s%d", repo.GetConfig().Prefix, id),
		points:   rules.DefaultPointTable(),
	}
	repo.GetLoop().Post(u.Login)
	return u
}

func (u *User) Alive() bool {
	return u.client.Load().IsAlive()
}

func (u *User) Release() {
	if c := u.client.Load(); c != nil {
		c.Close()
	}
}

func (u *User) Login() {
	pushHandler := map[string]websocket.PushHandler{
		v1.TypeRoomsList:    u.onRoomsList,
		v1.TypeRoomCreated:  u.onEntered,
		v1.TypeRoomJoined:   u.onEntered,
		v1.TypeRoomUpdated:  u.onRoomUpdated,
		v1.TypeGameStarted:  u.onGameView,
		v1.TypeCardPlayed:   u.onGameView,
		v1.TypeCardDrawn:    u.onGameView,
		v1.TypeTurnSkipped:  u.onGameView,
		v1.TypeGameEnded:    u.onGameEnded,
		v1.TypePlayerKicked: u.onKicked,
		v1.TypeFinalWinner:  u.onLeft,
		v1.TypeRoomClosed:   u.onLeft,
		v1.TypeError:        u.onError,
	}
	wsClient, err := websocket.NewClient(
		u.repo.GetContext(),
		websocket.WithEndpoint(u.repo.GetConfig().Url),
		websocket.WithPushHandler(pushHandler),
		websocket.WithConnectFunc(u.OnConnect),
		websocket.WithDisconnectFunc(u.OnDisconnect),
	)
	if err != nil {
		log.Errorf("uid=%d err:%v", u.id, err)
		return
	}
	u.client.Store(wsClient)
}

func (u *User) OnConnect(session *websocket.Session) {
	log.Infof("connect called. %q uid=%d", session.ID(), u.id)
}

func (u *User) OnDisconnect(session *websocket.Session) {
	log.Infof("disconnect called. %q uid=%d", session.ID(), u.id)
	u.reset()
}

func (u *User) Request(cmd v1.Command) {
	u.repo.GetLoop().Post(func() {
		wsClient := u.client.Load()
		if wsClient == nil {
			log.Warnf("wsClient is nil")
			return
		}
		if err := wsClient.Send(v1.NewPacket(cmd.Type(), cmd)); err != nil {
			log.Errorf("uid=%d send %s: %v", u.id, cmd.Type(), err)
		}
	})
}

func (u *User) reset() {
	u.mu.Lock()
	u.roomID, u.playerID, u.entering = "", "", false
	u.mu.Unlock()
}

func (u *User) me() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.playerID
}

func (u *User) onRoomsList(data []byte) {
	var msg v1.RoomsList
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Errorf("uid=%d rooms_list: %v", u.id, err)
		return
	}
	u.mu.Lock()
	if u.playerID != "" || u.entering {
		u.mu.Unlock()
		return
	}
	u.entering = true
	u.mu.Unlock()

	if len(msg.Rooms) > 0 {
		u.Request(&v1.JoinRoomReq{RoomID: msg.Rooms[0].ID, Nickname: u.nickname})
		return
	}
	u.Request(&v1.CreateRoomReq{Nickname: u.nickname, DeckSize: u.repo.GetConfig().DeckSize})
}

func (u *User) onEntered(data []byte) {
	var msg v1.RoomEntered
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Errorf("uid=%d room entered: %v", u.id, err)
		return
	}
	u.mu.Lock()
	u.roomID, u.playerID, u.entering = msg.RoomID, msg.PlayerID, false
	u.mu.Unlock()
	u.readyIfNeeded(&msg.Room)
}

func (u *User) onRoomUpdated(data []byte) {
	var msg v1.RoomUpdated
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Errorf("uid=%d room_updated: %v", u.id, err)
		return
	}
	u.readyIfNeeded(&msg.Room)
}

// readyIfNeeded 大厅阶段自己未准备则准备
func (u *User) readyIfNeeded(room *v1.RoomView) {
	if room.Phase != "lobby" {
		return
	}
	me := u.me()
	for _, p := range room.Players {
		if p.ID == me && !p.Ready {
			u.Request(&v1.ToggleReadyReq{})
			return
		}
	}
}

func (u *User) onGameView(data []byte) {
	var view v1.GameView
	if err := json.Unmarshal(data, &view); err != nil {
		log.Errorf("uid=%d game view: %v", u.id, err)
		return
	}
	if view.CurrentPlayer == "" || view.CurrentPlayer != u.me() {
		return
	}
	think := time.Duration(u.repo.GetConfig().Think) * time.Millisecond
	u.repo.GetTimer().Once(think, func() { u.act(&view) })
}

func (u *User) act(view *v1.GameView) {
	a, ok := Decide(view, u.points)
	if !ok {
		log.Warnf("uid=%d no action. turn=%d", u.id, view.Turn)
		return
	}
	turn := view.Turn
	meta := v1.GameAction{ActionID: strconv.FormatInt(u.seq.Add(1), 10), Turn: &turn}
	switch a.Kind {
	case rules.ActPlay:
		u.Request(&v1.PlayCardReq{GameAction: meta, CardID: a.CardID, ChosenSuit: string(a.ChosenSuit)})
	case rules.ActDraw:
		u.Request(&v1.DrawCardReq{GameAction: meta})
	case rules.ActSkip:
		u.Request(&v1.SkipTurnReq{GameAction: meta})
	}
}

func (u *User) onGameEnded(data []byte) {
	var msg v1.GameEnded
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	for _, r := range msg.Results {
		if r.PlayerID == u.me() {
			log.Infof("uid=%d round over. winner=%s points=%d total=%d", u.id, msg.WinnerID, r.Points, r.TotalScore)
		}
	}
}

func (u *User) onKicked(data []byte) {
	var msg v1.PlayerKicked
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.PlayerID == u.me() {
		u.onLeft(data)
	}
}

// onLeft 回大厅重新找房间
func (u *User) onLeft([]byte) {
	u.reset()
	u.Request(&v1.GetRoomsReq{})
}

func (u *User) onError(data []byte) {
	var msg v1.ErrorMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	log.Warnf("uid=%d error. code=%s msg=%s", u.id, msg.Code, msg.Message)
	switch msg.Code {
	case v1.ReasonRoomFull, v1.ReasonGameStarted, v1.ReasonRoomNotFound:
		u.mu.Lock()
		retry := u.entering
		u.entering = false
		u.mu.Unlock()
		if retry {
			u.Request(&v1.GetRoomsReq{})
		}
	}
}

// Decide 由下行的牌局视角选出一个动作
func Decide(view *v1.GameView, points rules.PointTable) (rules.Action, bool) {
	v, err := toView(view)
	if err != nil {
		log.Errorf("convert game view: %v", err)
		return rules.Action{}, false
	}
	return robot.Decide(v, points)
}

func toView(view *v1.GameView) (robot.View, error) {
	hand := make([]rules.Card, 0, len(view.Hand))
	byID := make(map[string]rules.Card, len(view.Hand))
	for _, cv := range view.Hand {
		c, err := rules.ParseCard(cv.ID)
		if err != nil {
			return robot.View{}, err
		}
		hand = append(hand, c)
		byID[c.ID] = c
	}
	playable := make([]rules.Card, 0, len(view.Playable))
	for _, id := range view.Playable {
		c, ok := byID[id]
		if !ok {
			return robot.View{}, fmt.Errorf("playable card %s not in hand", id)
		}
		playable = append(playable, c)
	}
	return robot.View{
		Hand:            hand,
		Playable:        playable,
		WaitingForEight: view.WaitingForEight,
		CanDraw:         view.CanDraw,
		CanSkip:         view.CanSkip,
		DeckSize:        view.DeckSize,
	}, nil
}
