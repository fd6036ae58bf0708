package room

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/samber/lo"
	v1 "github.com/yola1107/czech/api/czech/v1"
	"github.com/yola1107/czech/internal/biz/player"
	"github.com/yola1107/czech/internal/biz/rules"
	"github.com/yola1107/czech/internal/conf"
)

/*
	游戏主逻辑
*/

func (r *Room) onTimer(gen int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.stageGen {
		return
	}

	switch state := r.stage.GetState(); state {
	case PhRoundOver:
		r.onSettleTimeout()
	default:
		log.Errorf("unhandled stage timeout: %v room:%s", state, r.ID)
	}
}

func (r *Room) updateStage(state Phase) {
	timer := r.repo.GetTimer()
	timer.Cancel(r.stage.GetTimerID())

	r.stageGen++
	gen := r.stageGen
	duration := state.Timeout(&r.repo.GetRoomConfig().Timing)
	timerID := int64(0)
	if duration > 0 {
		timerID = timer.Once(duration, func() { r.onTimer(gen) })
	}
	r.stage.Set(state, duration, timerID)
	r.mLog.stage(r.stage.Desc())
}

// commit 状态变更后: seq+1, 刷新摘要, 异步落盘
func (r *Room) commit() {
	r.seq++
	r.updatedAt = time.Now()
	if r.publish() {
		r.repo.RoomChanged(r.ID)
	}
	s, err := r.snapshot()
	if err != nil {
		log.Errorf("snapshot failed. room:%s err:%v", r.ID, err)
		return
	}
	r.repo.Persist(s)
}

func (r *Room) hasReadyHuman() bool {
	return lo.ContainsBy(r.seats, func(p *player.Player) bool {
		return !p.IsRobot() && p.IsReady()
	})
}

// checkCountdown 准备人数变化后: 开始/缩短/取消倒计时
func (r *Room) checkCountdown() {
	if r.stage.GetState() != PhLobby {
		return
	}
	ready := r.readyCnt()
	if ready < MinStartPlayerCnt || !r.hasReadyHuman() {
		r.cancelCountdown(true)
		return
	}

	t := r.repo.GetRoomConfig().Timing
	secs := seconds(t.Countdown)
	if ready == len(r.seats) {
		secs = min(secs, seconds(t.AllReadyCountdown))
	}

	if r.counting {
		if secs >= r.countdownLeft {
			return
		}
		if secs <= 0 {
			r.startRound()
			return
		}
		r.countdownLeft = secs
		r.broadcastCountdown()
		return
	}
	if secs <= 0 {
		r.startRound()
		return
	}

	r.counting = true
	r.countdownLeft = secs
	r.countdownGen++
	gen := r.countdownGen
	r.countdownID = r.repo.GetTimer().Forever(time.Second, func() { r.onCountdownTick(gen) })
	r.broadcastCountdown()
	r.mLog.countdown(secs)
}

func (r *Room) onCountdownTick(gen int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.counting || gen != r.countdownGen {
		return
	}
	r.countdownLeft--
	if r.countdownLeft > 0 {
		r.broadcastCountdown()
		return
	}
	r.startRound()
}

func (r *Room) cancelCountdown(notify bool) {
	if !r.counting {
		return
	}
	r.repo.GetTimer().Cancel(r.countdownID)
	r.counting = false
	r.countdownLeft = 0
	r.countdownID = 0
	r.countdownGen++
	if notify {
		r.SendPacketToAll(v1.NewPacket(v1.TypeCountdownCancelled, &v1.CountdownCancelled{}))
		r.mLog.countdown(0)
	}
}

func seconds(d conf.Duration) int {
	return int((d.Std() + time.Second - 1) / time.Second)
}

func gameOptions(c *conf.Rules, deckSize int) rules.Options {
	return rules.Options{
		DeckSize:                   deckSize,
		HandSize:                   c.HandSize,
		ForcedDrawSix:              c.ForcedDraw.Six,
		ForcedDrawSeven:            c.ForcedDraw.Seven,
		ForcedDrawCountsAsTurnDraw: c.ForcedDrawCountsAsTurnDraw,
		ForcedDrawSkipsTurn:        c.ForcedDrawSkipsTurn,
		EightChainShortDeck:        c.EightChainShortDeck,
		AceSkipsNext:               c.AceSkipsNext,
	}
}

func scoreKeeper(c *conf.Rules) *rules.ScoreKeeper {
	bonus, err := rules.NewBonusRule(c.Bonus.Rule, c.Bonus.Spades, c.Bonus.Other)
	if err != nil {
		log.Errorf("bonus rule %q: %v. fallback to none", c.Bonus.Rule, err)
		bonus = rules.NoBonus{}
	}
	return rules.NewScoreKeeper(c.Points, bonus, c.ScoreLimit)
}

// seatAway 离线且未托管的座位轮转时跳过
func (r *Room) seatAway(seat int) bool {
	if r.game == nil || seat < 0 || seat >= len(r.game.Seats) {
		return false
	}
	p := r.getPlayer(r.game.Seats[seat].PlayerID)
	return p == nil || p.Away()
}

// startRound 倒计时结束: 移除未准备的玩家后开局
func (r *Room) startRound() {
	r.cancelCountdown(false)

	for _, p := range append([]*player.Player(nil), r.seats...) {
		if !p.IsReady() {
			r.throwOff(p, "not ready")
		}
	}
	if r.humanCnt() == 0 {
		r.closeRoom("")
		return
	}
	if len(r.seats) < MinStartPlayerCnt {
		r.broadcastRoomUpdated()
		r.commit()
		return
	}

	cfg := r.repo.GetRoomConfig()
	ids := lo.Map(r.seats, func(p *player.Player, _ int) string { return p.GetPlayerID() })
	r.game = rules.NewGame(gameOptions(&cfg.Rules, r.deckSize), ids, r.rng)
	r.game.SetAway(r.seatAway)

	// 上局输家做庄, 否则随机
	dealer := r.rng.Intn(len(r.seats))
	if p := r.getPlayer(r.lastLoserID); p != nil {
		dealer = p.GetSeat()
	}
	events := r.game.Start(dealer)
	r.moves++

	for _, p := range r.seats {
		p.SetGaming()
	}
	r.sessionStarted = true
	r.updateStage(PhPlaying)

	log.Debugf("******** <游戏开始> %s dealer=%d top=%v", r.Desc(), dealer, r.game.Top())
	r.mLog.begin(r.Desc(), r.game, r.seats)

	r.broadcastGameStarted(events)
	r.commit()
}

// applyAction 持锁调用; 出错时状态不变
func (r *Room) applyAction(p *player.Player, a rules.Action, byAI bool) error {
	seat := r.game.SeatOf(p.GetPlayerID())
	events, err := r.game.Apply(seat, a)
	if err != nil {
		r.mLog.reject(p, a, err)
		return toWireError(err)
	}
	r.moves++
	if byAI && p.IsAutopilot() {
		p.IncrIdleCount()
	}
	r.mLog.action(p, a, events, byAI)

	r.broadcastEvents(events)
	if won, ok := roundWon(events); ok {
		r.settle(won)
		return nil
	}
	r.commit()
	return nil
}

func roundWon(events []rules.Event) (rules.RoundWon, bool) {
	for _, e := range events {
		if won, ok := e.(rules.RoundWon); ok {
			return won, true
		}
	}
	return rules.RoundWon{}, false
}

/* 一局结束 */
func (r *Room) settle(won rules.RoundWon) {
	g := r.game
	keeper := scoreKeeper(&r.repo.GetRoomConfig().Rules)

	hands := lo.Map(g.Seats, func(s *rules.Seat, _ int) rules.SeatHand {
		return rules.SeatHand{PlayerID: s.PlayerID, Hand: s.Hand}
	})
	scores := make(map[string]int, len(r.seats))
	for _, p := range r.seats {
		scores[p.GetPlayerID()] = p.GetScore()
	}
	st := keeper.Settle(g.Seats[won.Seat].PlayerID, won.Card, hands, scores)

	for _, res := range st.Results {
		if p := r.getPlayer(res.PlayerID); p != nil {
			p.SetScore(res.Score)
		}
	}
	r.lastLoserID = st.LoserID
	r.game = nil
	for _, p := range r.seats {
		p.SetSit()
	}

	r.broadcastGameEnded(st)
	r.mLog.settle(st)

	kicked := lo.FilterMap(st.Kicked(), func(id string, _ int) (*player.Player, bool) {
		p := r.getPlayer(id)
		return p, p != nil
	})
	for _, p := range kicked {
		r.broadcastKicked(p)
	}
	if st.FinalWinnerID != "" {
		r.broadcastFinalWinner(st.FinalWinnerID, kicked)
	}
	for _, p := range kicked {
		r.throwOff(p, "kicked")
	}

	if st.FinalWinnerID != "" || r.humanCnt() == 0 {
		log.Infof("session over. room:%s winner:%s", r.ID, st.FinalWinnerID)
		r.closeRoom("game over")
		return
	}
	r.updateStage(PhRoundOver)
	r.commit()
}

// onSettleTimeout 结算展示结束, 回到大厅
func (r *Room) onSettleTimeout() {
	for _, p := range r.seats {
		p.ResetRound()
	}
	r.updateStage(PhLobby)
	r.broadcastRoomUpdated()
	r.mLog.end(r.Desc())
	r.commit()
	r.checkCountdown()
}

// closeRoom 关闭并从注册表和存储中删除
func (r *Room) closeRoom(msg string) {
	if r.closed() {
		return
	}
	r.cancelCountdown(false)
	r.aiLogic.reset()
	if msg != "" {
		r.SendPacketToAll(v1.NewPacket(v1.TypeRoomClosed, &v1.RoomClosed{Message: msg}))
	}
	r.updateStage(PhClosed)
	r.game = nil
	for _, p := range r.seats {
		if !p.IsRobot() {
			r.repo.PlayerRemoved(r.ID, p.GetPlayerID())
		}
	}
	// 先落一份关闭态快照, 删除丢失时也不会被重新加载
	r.commit()
	r.repo.Forget(r.ID)
	r.repo.RoomClosed(r.ID)

	r.mLog.closed(msg)
	_ = r.mLog.Close()
	log.Infof("CloseRoom. room:%s msg:%q", r.Desc(), msg)
}
