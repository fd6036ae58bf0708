package room

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/rules"
	"github.com/yola1107/czech/library/ext"
)

// SnapshotVersion 快照格式版本, 不兼容的修改需要 +1
const SnapshotVersion = 1

// Snapshot 房间持久化快照, 生成后不再修改
type Snapshot struct {
	RoomID    string
	Seq       int64
	UpdatedAt time.Time
	Data      []byte
}

type state struct {
	Version        int             `json:"version"`
	ID             string          `json:"id"`
	CreatorID      string          `json:"creator_id"`
	IsPrivate      bool            `json:"is_private"`
	DeckSize       int             `json:"deck_size"`
	Phase          Phase           `json:"phase"`
	LastLoserID    string          `json:"last_loser_id,omitempty"`
	SessionStarted bool            `json:"session_started"`
	CreatedAt      time.Time       `json:"created_at"`
	Players        []player.Record `json:"players"`
	Game           *rules.Game     `json:"game,omitempty"`
}

// snapshot 持锁调用
func (r *Room) snapshot() (*Snapshot, error) {
	st := state{
		Version:        SnapshotVersion,
		ID:             r.ID,
		CreatorID:      r.creatorID,
		IsPrivate:      r.isPrivate,
		DeckSize:       r.deckSize,
		Phase:          r.stage.GetState(),
		LastLoserID:    r.lastLoserID,
		SessionStarted: r.sessionStarted,
		CreatedAt:      r.createdAt,
		Game:           r.game,
	}
	for _, p := range r.seats {
		st.Players = append(st.Players, p.Record())
	}
	data, err := json.Marshal(&st)
	if err != nil {
		return nil, fmt.Errorf("marshal room %s: %w", r.ID, err)
	}
	return &Snapshot{RoomID: r.ID, Seq: r.seq, UpdatedAt: r.updatedAt, Data: data}, nil
}

func decodeState(s *Snapshot) (*state, error) {
	var st state
	if err := json.Unmarshal(s.Data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal room %s: %w", s.RoomID, err)
	}
	if st.Version != SnapshotVersion {
		return nil, fmt.Errorf("room %s: unsupported snapshot version %d", s.RoomID, st.Version)
	}
	if st.ID != s.RoomID {
		return nil, fmt.Errorf("room %s: snapshot id mismatch %q", s.RoomID, st.ID)
	}
	if st.Phase == PhClosed {
		return nil, fmt.Errorf("room %s closed: %w", s.RoomID, ErrSnapshotNotFound)
	}
	if len(st.Players) == 0 || len(st.Players) > MaxPlayerCnt {
		return nil, fmt.Errorf("room %s: bad player count %d", s.RoomID, len(st.Players))
	}
	if !rules.ValidDeckSize(st.DeckSize) {
		return nil, fmt.Errorf("room %s: bad deck size %d", s.RoomID, st.DeckSize)
	}
	switch st.Phase {
	case PhLobby, PhRoundOver:
	case PhPlaying:
		if err := checkGame(&st); err != nil {
			return nil, fmt.Errorf("room %s: %w", s.RoomID, err)
		}
	default:
		return nil, fmt.Errorf("room %s: bad phase %v", s.RoomID, st.Phase)
	}
	return &st, nil
}

// checkGame 座位与玩家一致且牌数守恒
func checkGame(st *state) error {
	g := st.Game
	if g == nil || g.Deck == nil {
		return fmt.Errorf("playing without a game")
	}
	if len(g.Seats) != len(st.Players) {
		return fmt.Errorf("game has %d seats, room has %d players", len(g.Seats), len(st.Players))
	}
	for i, s := range g.Seats {
		if s.PlayerID != st.Players[i].ID {
			return fmt.Errorf("seat %d is %q, want %q", i, s.PlayerID, st.Players[i].ID)
		}
	}
	if g.Current < 0 || g.Current >= len(g.Seats) {
		return fmt.Errorf("bad current seat %d", g.Current)
	}
	if n := g.CardCount(); n != g.Options.DeckSize {
		return fmt.Errorf("card count %d, want %d", n, g.Options.DeckSize)
	}
	return nil
}

// Restore 由快照重建房间; 真人全部视为断线
func Restore(s *Snapshot, repo Repo) (*Room, error) {
	st, err := decodeState(s)
	if err != nil {
		return nil, err
	}

	r := &Room{
		ID:             st.ID,
		repo:           repo,
		rng:            ext.NewRand(ext.NewSeed()),
		creatorID:      st.CreatorID,
		isPrivate:      st.IsPrivate,
		deckSize:       st.DeckSize,
		createdAt:      st.CreatedAt,
		updatedAt:      s.UpdatedAt,
		seq:            s.Seq,
		lastLoserID:    st.LastLoserID,
		sessionStarted: st.SessionStarted,
		stage:          &Stage{},
		seats:          make([]*player.Player, 0, MaxPlayerCnt),
	}
	for i, rec := range st.Players {
		p := player.FromRecord(rec)
		p.SetSeat(i)
		r.seats = append(r.seats, p)
	}
	if st.Phase == PhPlaying {
		r.game = st.Game
		r.game.Bind(r.rng, r.seatAway)
	}
	r.stage.Set(st.Phase, 0, 0)
	r.mLog = NewRoomLog(r.ID, repo.GetRoomConfig().LogCache)
	r.aiLogic.init(r)
	r.publish()
	return r, nil
}

// Resume 重载后恢复定时器: 结算阶段直接回大厅, 对局中唤醒 AI
func (r *Room) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Infof("ResumeRoom. room:%s", r.Desc())
	switch r.stage.GetState() {
	case PhRoundOver:
		r.onSettleTimeout()
	case PhPlaying:
		r.moves++
		for _, p := range r.seats {
			r.aiLogic.activePlayer(p)
		}
	case PhLobby:
		r.checkCountdown()
	}
}

// OfflineHumans 需要重新计宽限时间的玩家及其连接代数
func (r *Room) OfflineHumans() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64)
	for _, p := range r.seats {
		if !p.IsRobot() && p.IsOffline() {
			out[p.GetPlayerID()] = p.GetEpoch()
		}
	}
	return out
}

// OnReloadGraceExpired 重载后的宽限超时; 期间重连过则忽略
func (r *Room) OnReloadGraceExpired(playerID string, epoch int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.getPlayer(playerID); p == nil || p.GetEpoch() != epoch {
		return
	}
	r.graceExpired(playerID)
}
