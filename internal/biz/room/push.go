package room

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/samber/lo"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/rules"
)

func (r *Room) SendPacketToClient(p *player.Player, pkt *v1.Packet) {
	if p == nil {
		return
	}
	if p.IsAI() {
		r.aiLogic.OnMessage(p, pkt)
		return
	}
	session := p.GetSession()
	if session == nil {
		return
	}
	if err := session.Push(pkt); err != nil {
		log.Warnf("send packet to client error: p=%v type=%s err=%v", p.Desc(), pkt.Type, err)
	}
}

func (r *Room) SendPacketToAll(pkt *v1.Packet) {
	for _, v := range r.seats {
		r.SendPacketToClient(v, pkt)
	}
}

func (r *Room) SendPacketToAllExcept(pkt *v1.Packet, ids ...string) {
	for _, v := range r.seats {
		if lo.Contains(ids, v.GetPlayerID()) {
			continue
		}
		r.SendPacketToClient(v, pkt)
	}
}

// sendEach 每个玩家一份自己视角的包
func (r *Room) sendEach(build func(p *player.Player) *v1.Packet) {
	for _, v := range r.seats {
		r.SendPacketToClient(v, build(v))
	}
}

/*
	视图
*/

func cardView(c rules.Card) v1.CardView {
	return v1.CardView{ID: c.ID, Rank: c.Rank.String(), Suit: string(c.Suit)}
}

func cardViews(cards []rules.Card) []v1.CardView {
	out := make([]v1.CardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardView(c))
	}
	return out
}

func cardIDs(cards []rules.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func (r *Room) playerView(p *player.Player) v1.PlayerView {
	handCount := 0
	if r.game != nil {
		handCount = len(r.game.Hand(r.game.SeatOf(p.GetPlayerID())))
	}
	return v1.PlayerView{
		ID:        p.GetPlayerID(),
		Nickname:  p.GetNickName(),
		HandCount: handCount,
		Ready:     p.IsReady(),
		Score:     p.GetScore(),
		IsBot:     p.IsRobot(),
		Connected: !p.IsOffline(),
		Autopilot: p.IsAutopilot(),
	}
}

func (r *Room) playerViews() []v1.PlayerView {
	return lo.Map(r.seats, func(p *player.Player, _ int) v1.PlayerView { return r.playerView(p) })
}

func (r *Room) roomView() v1.RoomView {
	state := r.stage.GetState()
	return v1.RoomView{
		ID:          r.ID,
		Players:     r.playerViews(),
		PlayerCount: len(r.seats),
		GameStarted: state == PhPlaying,
		Phase:       state.String(),
		DeckSize:    r.deckSize,
		CreatorID:   r.creatorID,
		IsPrivate:   r.isPrivate,
	}
}

func (r *Room) roomEntered(p *player.Player) *v1.RoomEntered {
	return &v1.RoomEntered{RoomID: r.ID, PlayerID: p.GetPlayerID(), Room: r.roomView()}
}

// gameView p 视角的牌局, 只含自己的手牌
func (r *Room) gameView(p *player.Player) v1.GameView {
	g := r.game
	seat := g.SeatOf(p.GetPlayerID())
	view := v1.GameView{
		Hand:              cardViews(g.Hand(seat)),
		CurrentPlayer:     g.CurrentPlayerID(),
		Players:           r.playerViews(),
		DeckCount:         g.Deck.DrawCount(),
		DeckSize:          g.Options.DeckSize,
		ChosenSuit:        string(g.ChosenSuit),
		WaitingForEight:   g.WaitingForEight,
		CardDrawnThisTurn: g.CardDrawn,
		EightDrawnCards:   append([]string{}, g.EightDrawn...),
		Turn:              g.Turn,
		Playable:          cardIDs(g.Playable(seat)),
		CanDraw:           g.CanDraw(seat),
		CanSkip:           g.CanSkip(seat),
	}
	if top := g.Top(); !top.IsZero() {
		tv := cardView(top)
		view.TopCard = &tv
	}
	if g.Dealer >= 0 && g.Dealer < len(g.Seats) {
		view.Dealer = g.Seats[g.Dealer].PlayerID
	}
	return view
}

func (r *Room) seatPlayer(seat int) *player.Player {
	if r.game == nil || seat < 0 || seat >= len(r.game.Seats) {
		return nil
	}
	return r.getPlayer(r.game.Seats[seat].PlayerID)
}

func (r *Room) forcedDraw(d rules.CardsDrawn) *v1.ForcedDraw {
	fd := &v1.ForcedDraw{Count: len(d.Cards)}
	if p := r.seatPlayer(d.Seat); p != nil {
		fd.PlayerID, fd.PlayerNickname = p.GetPlayerID(), p.GetNickName()
	}
	return fd
}

/*
	房间协议
*/

func (r *Room) broadcastPlayerJoined(p *player.Player) {
	r.SendPacketToAllExcept(v1.NewPacket(v1.TypePlayerJoined, &v1.PlayerJoined{Player: r.playerView(p)}), p.GetPlayerID())
}

func (r *Room) broadcastPlayerLeft(p *player.Player) {
	r.SendPacketToAll(v1.NewPacket(v1.TypePlayerLeft, &v1.PlayerLeft{PlayerID: p.GetPlayerID()}))
}

func (r *Room) broadcastReady(p *player.Player) {
	r.SendPacketToAll(v1.NewPacket(v1.TypePlayerReadyChanged, &v1.PlayerReadyChanged{
		PlayerID: p.GetPlayerID(),
		Ready:    p.IsReady(),
	}))
}

func (r *Room) broadcastRoomUpdated() {
	r.SendPacketToAll(v1.NewPacket(v1.TypeRoomUpdated, &v1.RoomUpdated{Room: r.roomView()}))
}

// broadcastPresence player_disconnected / player_reconnected
func (r *Room) broadcastPresence(p *player.Player, typ string) {
	r.SendPacketToAllExcept(v1.NewPacket(typ, &v1.PlayerPresence{
		PlayerID: p.GetPlayerID(),
		Nickname: p.GetNickName(),
	}), p.GetPlayerID())
}

func (r *Room) broadcastCountdown() {
	r.SendPacketToAll(v1.NewPacket(v1.TypeCountdownTick, &v1.CountdownTick{Seconds: r.countdownLeft}))
}

// sendSceneInfo 重连后的全量状态
func (r *Room) sendSceneInfo(p *player.Player) {
	if r.stage.GetState() == PhPlaying && r.game != nil {
		r.SendPacketToClient(p, v1.NewPacket(v1.TypeGameStarted, &v1.GameStarted{
			RoomID:   r.ID,
			PlayerID: p.GetPlayerID(),
			GameView: r.gameView(p),
		}))
		return
	}
	r.SendPacketToClient(p, v1.NewPacket(v1.TypeRoomJoined, r.roomEntered(p)))
}

/*
	游戏协议
*/

// broadcastGameStarted 首张牌的罚摸并入 game_started, 其余事件照常广播
func (r *Room) broadcastGameStarted(events []rules.Event) {
	var (
		forced *v1.ForcedDraw
		rest   []rules.Event
	)
	for _, e := range events {
		if d, ok := e.(rules.CardsDrawn); ok && d.Forced && forced == nil {
			forced = r.forcedDraw(d)
			continue
		}
		rest = append(rest, e)
	}
	r.sendEach(func(p *player.Player) *v1.Packet {
		return v1.NewPacket(v1.TypeGameStarted, &v1.GameStarted{
			RoomID:     r.ID,
			PlayerID:   p.GetPlayerID(),
			GameView:   r.gameView(p),
			ForcedDraw: forced,
		})
	})
	r.broadcastEvents(rest)
}

// broadcastEvents 引擎事件转为推送; 紧跟出牌的罚摸并入 card_played
func (r *Room) broadcastEvents(events []rules.Event) {
	consumed := make(map[int]bool)
	for i, e := range events {
		if consumed[i] {
			continue
		}
		switch e := e.(type) {
		case rules.CardPlayed:
			var forced *v1.ForcedDraw
			for j := i + 1; j < len(events); j++ {
				if d, ok := events[j].(rules.CardsDrawn); ok && d.Forced {
					forced = r.forcedDraw(d)
					consumed[j] = true
					break
				}
				if _, ok := events[j].(rules.DeckShuffled); !ok {
					break
				}
			}
			src := r.seatPlayer(e.Seat)
			r.sendEach(func(p *player.Player) *v1.Packet {
				return v1.NewPacket(v1.TypeCardPlayed, &v1.CardPlayed{
					PlayerID:       src.GetPlayerID(),
					PlayerNickname: src.GetNickName(),
					Card:           cardView(e.Card),
					GameView:       r.gameView(p),
					ForcedDraw:     forced,
				})
			})

		case rules.CardsDrawn:
			src := r.seatPlayer(e.Seat)
			r.sendEach(func(p *player.Player) *v1.Packet {
				return v1.NewPacket(v1.TypeCardDrawn, &v1.CardDrawn{
					PlayerID:       src.GetPlayerID(),
					PlayerNickname: src.GetNickName(),
					CardsCount:     len(e.Cards),
					Forced:         e.Forced,
					GameView:       r.gameView(p),
				})
			})

		case rules.TurnSkipped:
			src := r.seatPlayer(e.Seat)
			r.sendEach(func(p *player.Player) *v1.Packet {
				return v1.NewPacket(v1.TypeTurnSkipped, &v1.TurnSkipped{
					PlayerID:       src.GetPlayerID(),
					PlayerNickname: src.GetNickName(),
					Reason:         string(e.Reason),
					GameView:       r.gameView(p),
				})
			})

		case rules.DeckShuffled:
			r.SendPacketToAll(v1.NewPacket(v1.TypeDeckShuffled, &v1.DeckShuffled{DrawCount: e.DrawCount}))

		case rules.TurnChanged, rules.RoundWon:
			// 视图中已包含当前玩家; 赢牌由结算推送
		}
	}
}

func (r *Room) broadcastGameEnded(st *rules.Settlement) {
	results := make([]v1.RoundResult, 0, len(st.Results))
	for _, res := range st.Results {
		nickname := ""
		if p := r.getPlayer(res.PlayerID); p != nil {
			nickname = p.GetNickName()
		}
		results = append(results, v1.RoundResult{
			PlayerID:   res.PlayerID,
			Nickname:   nickname,
			Points:     res.RoundPoints,
			TotalScore: res.Score,
			Hand:       cardViews(res.Hand),
			Reset:      res.Reset,
			Kicked:     res.Kicked,
		})
	}
	winning := cardView(st.WinningCard)
	r.SendPacketToAll(v1.NewPacket(v1.TypeGameEnded, &v1.GameEnded{
		WinnerID:    st.WinnerID,
		WinningCard: &winning,
		QueenBonus:  st.Bonus,
		Results:     results,
	}))
}

func (r *Room) broadcastKicked(p *player.Player) {
	r.SendPacketToAll(v1.NewPacket(v1.TypePlayerKicked, &v1.PlayerKicked{
		PlayerID:       p.GetPlayerID(),
		PlayerNickname: p.GetNickName(),
		Reason:         "score_over_limit",
	}))
}

func (r *Room) broadcastFinalWinner(winnerID string, kicked []*player.Player) {
	msg := &v1.FinalWinner{
		WinnerID:      winnerID,
		KickedPlayers: lo.Map(kicked, func(p *player.Player, _ int) string { return p.GetPlayerID() }),
	}
	if p := r.getPlayer(winnerID); p != nil {
		msg.WinnerNickname = p.GetNickName()
	}
	r.SendPacketToAll(v1.NewPacket(v1.TypeFinalWinner, msg))
}
