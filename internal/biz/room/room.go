package room

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/rules"
	"github.com/yola1107/czech/library/ext"
)

type Room struct {
	mu   sync.Mutex
	ID   string // 房间ID
	repo Repo
	rng  *rand.Rand

	creatorID      string    // 房主
	isPrivate      bool      // 私密房间不在大厅显示
	deckSize       int       // 36 / 52
	createdAt      time.Time //
	updatedAt      time.Time //
	seq            int64     // 每次提交 +1, 存储只接受更大的 seq
	lastLoserID    string    // 上局输家, 下局做庄
	sessionStarted bool      // 是否已开过局

	// 游戏变量
	stage   *Stage           // 阶段状态
	mLog    *Log             // 房间日志
	seats   []*player.Player // 按入座顺序
	game    *rules.Game      // 对局中非空
	aiLogic RobotLogic       // 机器人逻辑

	stageGen      int64 // 阶段定时器代数, 过期回调直接忽略
	moves         int64 // 对局内每次状态变化 +1, 机器人据此丢弃过期决策
	counting      bool  // 倒计时中
	countdownID   int64 // 倒计时任务
	countdownGen  int64 //
	countdownLeft int   // 剩余秒数

	summary atomic.Pointer[Summary]
}

// Summary 大厅列表读取的只读摘要, 每次提交后整体替换
type Summary struct {
	ID             string
	IsPrivate      bool
	Phase          Phase
	DeckSize       int
	Players        []string
	Humans         int
	SessionStarted bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Open 可在大厅列出并加入
func (s *Summary) Open() bool {
	return !s.IsPrivate && s.Phase == PhLobby && !s.SessionStarted &&
		s.Humans > 0 && len(s.Players) < MaxPlayerCnt
}

func New(id string, deckSize int, isPrivate bool, repo Repo) *Room {
	now := time.Now()
	r := &Room{
		ID:        id,
		repo:      repo,
		rng:       ext.NewRand(ext.NewSeed()),
		isPrivate: isPrivate,
		deckSize:  deckSize,
		createdAt: now,
		updatedAt: now,
		stage:     &Stage{},
		seats:     make([]*player.Player, 0, MaxPlayerCnt),
	}
	r.mLog = NewRoomLog(id, repo.GetRoomConfig().LogCache)
	r.aiLogic.init(r)
	r.publish()
	return r
}

func (r *Room) Desc() string {
	turn := int64(0)
	if r.game != nil {
		turn = r.game.Turn
	}
	return fmt.Sprintf("(RoomID:%s Players:%d St:%v Turn:%d Seq:%d)",
		r.ID, len(r.seats), r.stage.GetState(), turn, r.seq)
}

func (r *Room) Summary() *Summary {
	return r.summary.Load()
}

// publish 刷新摘要, 返回大厅可见的内容是否变化; 持锁调用
func (r *Room) publish() bool {
	names := make([]string, 0, len(r.seats))
	humans := 0
	for _, p := range r.seats {
		names = append(names, p.GetNickName())
		if !p.IsRobot() {
			humans++
		}
	}
	next := &Summary{
		ID:             r.ID,
		IsPrivate:      r.isPrivate,
		Phase:          r.stage.GetState(),
		DeckSize:       r.deckSize,
		Players:        names,
		Humans:         humans,
		SessionStarted: r.sessionStarted,
		CreatedAt:      r.createdAt,
		UpdatedAt:      r.updatedAt,
	}
	prev := r.summary.Swap(next)
	return prev == nil || !prev.sameListing(next)
}

func (s *Summary) sameListing(o *Summary) bool {
	return s.IsPrivate == o.IsPrivate && s.Phase == o.Phase && s.DeckSize == o.DeckSize &&
		s.Humans == o.Humans && s.SessionStarted == o.SessionStarted && slices.Equal(s.Players, o.Players)
}

func (r *Room) closed() bool {
	return r.stage.GetState() == PhClosed
}

func (r *Room) getPlayer(id string) *player.Player {
	for _, p := range r.seats {
		if p.GetPlayerID() == id {
			return p
		}
	}
	return nil
}

func (r *Room) humanCnt() int {
	n := 0
	for _, p := range r.seats {
		if !p.IsRobot() {
			n++
		}
	}
	return n
}

func (r *Room) readyCnt() int {
	n := 0
	for _, p := range r.seats {
		if p.IsReady() {
			n++
		}
	}
	return n
}

// Enter 入座并绑定连接; created 决定回包类型
func (r *Room) Enter(p *player.Player, s player.Session, created bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed() {
		return v1.ErrRoomNotFound
	}
	if r.stage.GetState() != PhLobby || r.sessionStarted {
		return v1.ErrGameStarted
	}
	if len(r.seats) >= MaxPlayerCnt {
		return v1.ErrRoomFull
	}
	r.throwInto(p)
	if s != nil {
		p.Bind(s)
	}
	if r.creatorID == "" && !p.IsRobot() {
		r.creatorID = p.GetPlayerID()
	}

	typ := v1.TypeRoomJoined
	if created {
		typ = v1.TypeRoomCreated
	}
	r.SendPacketToClient(p, v1.NewPacket(typ, r.roomEntered(p)))
	r.broadcastPlayerJoined(p)

	r.mLog.userEnter(p, len(r.seats))
	log.Infof("EnterRoom. p:%+v room:%s", p.Desc(), r.Desc())

	r.commit()
	r.checkCountdown()
	return nil
}

// AddRobot 机器人入座, 直接准备
func (r *Room) AddRobot(p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seats) >= MaxPlayerCnt {
		return v1.ErrRoomFull
	}
	r.throwInto(p)
	p.SetReady()
	r.broadcastPlayerJoined(p)
	r.mLog.userEnter(p, len(r.seats))
	r.commit()
	return nil
}

func (r *Room) throwInto(p *player.Player) {
	p.SetSeat(len(r.seats))
	p.SetSit()
	r.seats = append(r.seats, p)
}

// throwOff 离座, 只在没有对局时调用
func (r *Room) throwOff(p *player.Player, reason string) {
	idx := -1
	for i, v := range r.seats {
		if v == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	r.seats = append(r.seats[:idx], r.seats[idx+1:]...)
	for i, v := range r.seats {
		v.SetSeat(i)
	}
	p.SetSeat(-1)

	r.broadcastPlayerLeft(p)
	r.mLog.userExit(p, len(r.seats), reason)
	log.Infof("ExitRoom. p:%+v reason:%s room:%s", p.Desc(), reason, r.Desc())

	if !p.IsRobot() {
		r.repo.PlayerRemoved(r.ID, p.GetPlayerID())
	}
	if r.creatorID == p.GetPlayerID() {
		r.creatorID = ""
		for _, v := range r.seats {
			if !v.IsRobot() {
				r.creatorID = v.GetPlayerID()
				break
			}
		}
	}
}

// Reconnect 同一玩家换新连接, 推送全量状态
func (r *Room) Reconnect(playerID string, s player.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed() {
		return v1.ErrRoomNotFound
	}
	p := r.getPlayer(playerID)
	if p == nil || p.IsRobot() {
		return v1.ErrPlayerNotFound
	}
	p.Bind(s)
	r.broadcastPresence(p, v1.TypePlayerReconnected)
	r.sendSceneInfo(p)

	r.mLog.reEnter(p)
	log.Infof("Reconnect. p:%+v room:%s", p.Desc(), r.Desc())
	r.publish()
	return nil
}

// Disconnect 只在 sessionID 仍是当前连接时生效; 返回是否需要开始宽限计时
func (r *Room) Disconnect(playerID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed() {
		return false
	}
	p := r.getPlayer(playerID)
	if p == nil || !p.Unbind(sessionID) {
		return false
	}
	r.broadcastPresence(p, v1.TypePlayerDisconnected)
	r.mLog.offline(p)
	log.Infof("Disconnect. p:%+v room:%s", p.Desc(), r.Desc())
	return true
}
